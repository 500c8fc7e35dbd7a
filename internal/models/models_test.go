package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment_DerivesTypeFromReference(t *testing.T) {
	p, err := NewPayment("s1", FineRef("f1"), 150)
	require.NoError(t, err)
	assert.Equal(t, PaymentTypeFine, p.Type)
	assert.Equal(t, RefFine, p.ReferenceKind)
	assert.Equal(t, "f1", p.ReferenceID)
	assert.Equal(t, PaymentStatusSuccess, p.Status)
	assert.Equal(t, PaymentProviderMock, p.Provider)
	assert.Equal(t, "mock_"+p.ID, p.ProviderPaymentID)
	assert.Equal(t, FineRef("f1"), p.Ref())

	p, err = NewPayment("s1", AllotmentRef("a1"), 5000)
	require.NoError(t, err)
	assert.Equal(t, PaymentTypeHostelAllotment, p.Type)

	_, err = NewPayment("s1", PaymentRef{Kind: "Library", ID: "x"}, 1)
	assert.Error(t, err)
}

func TestHostelRoom_RefreshAvailability(t *testing.T) {
	r := HostelRoom{Capacity: 2, CurrentOccupancy: 1}
	r.RefreshAvailability()
	assert.True(t, r.IsAvailable)

	r.CurrentOccupancy = 2
	r.RefreshAvailability()
	assert.False(t, r.IsAvailable)
	assert.False(t, r.HasSpace())
}

func TestUser_OTPValid(t *testing.T) {
	now := time.Now()
	exp := now.Add(10 * time.Minute)
	u := User{OTP: "digest-a", OTPExpires: &exp}

	assert.True(t, u.OTPValid("digest-a", now))
	assert.False(t, u.OTPValid("digest-b", now))
	assert.False(t, u.OTPValid("digest-a", now.Add(11*time.Minute)))

	u.OTP = ""
	assert.False(t, u.OTPValid("", now))
}

func TestComplaint_SetStatus(t *testing.T) {
	c := Complaint{Status: ComplaintPending}
	now := time.Now()

	c.SetStatus(ComplaintResolved, "staff1", now)
	require.NotNil(t, c.ResolvedBy)
	assert.Equal(t, "staff1", *c.ResolvedBy)
	assert.Equal(t, now, *c.ResolvedAt)

	c.SetStatus(ComplaintPending, "staff1", now)
	assert.Nil(t, c.ResolvedBy)
	assert.Nil(t, c.ResolvedAt)
}

func TestPendingTotal(t *testing.T) {
	fines := []Fine{
		{Amount: 100, Status: FinePending},
		{Amount: 50, Status: FinePaid},
		{Amount: 25.5, Status: FinePending},
	}
	assert.Equal(t, 125.5, PendingTotal(fines))
}

func TestRolesAndDepartments(t *testing.T) {
	assert.True(t, IsValidRole("warden"))
	assert.False(t, IsValidRole("admin"))
	assert.True(t, IsValidDepartment("academics"))
	assert.False(t, IsValidDepartment("sports"))

	d, ok := DepartmentFor(RoleLibrarian)
	assert.True(t, ok)
	assert.Equal(t, DepartmentLibrary, d)
	_, ok = DepartmentFor(RoleStudent)
	assert.False(t, ok)
}
