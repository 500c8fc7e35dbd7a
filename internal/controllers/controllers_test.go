package controllers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/zaqqye/college_portal_backend/internal/database"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

func TestFlexibleTypes(t *testing.T) {
	var req struct {
		ID     FlexibleString `json:"id"`
		Amount FlexibleFloat  `json:"amount"`
		Floor  FlexibleInt    `json:"floor"`
		From   FlexibleTime   `json:"from"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "amount": "12.5", "floor": "3", "from": "2026-10-20 09:30"}`), &req))
	assert.Equal(t, "42", req.ID.String())
	assert.True(t, req.Amount.Set)
	assert.Equal(t, 12.5, req.Amount.Value)
	assert.Equal(t, 3, req.Floor.Value)
	assert.Equal(t, time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC), req.From.UTC())

	var missing struct {
		Amount FlexibleFloat `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": null}`), &missing))
	assert.False(t, missing.Amount.Set)

	assert.Error(t, json.Unmarshal([]byte(`{"amount": "ten"}`), &missing))
	for _, v := range []string{`"Inf"`, `"+Inf"`, `"-inf"`, `"NaN"`, `"1e400"`} {
		assert.Error(t, json.Unmarshal([]byte(`{"amount": `+v+`}`), &missing), v)
	}
}

func TestResolveReference(t *testing.T) {
	db, err := database.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	fine := models.Fine{StudentID: "s1", Department: models.DepartmentLibrary, Amount: 20, Reason: "Late", ImposedBy: "l1"}
	require.NoError(t, db.Create(&fine).Error)

	got, err := resolveReference(db, models.FineRef(fine.ID))
	require.NoError(t, err)
	assert.Equal(t, fine.ID, got.(models.Fine).ID)

	_, err = resolveReference(db, models.AllotmentRef("missing"))
	assert.Error(t, err)

	_, err = resolveReference(db, models.PaymentRef{Kind: "Library", ID: fine.ID})
	assert.EqualError(t, err, "unknown payment reference kind Library")
}
