package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.HostelRoom{}))
	return db
}

func TestRateLimit_Returns429(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewIPRateLimiter(rate.Every(time.Hour), 2)))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestResponseCache_InvalidateIsScopedToNamespace(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	store.Set("token:abc", true, cache.NoExpiration)
	rooms := NewResponseCache(store, "rooms", time.Minute)
	notices := NewResponseCache(store, "notices", time.Minute)

	roomCalls, noticeCalls := 0, 0
	r := gin.New()
	r.GET("/rooms", rooms.Handler(), func(c *gin.Context) {
		roomCalls++
		c.JSON(http.StatusOK, gin.H{"calls": roomCalls})
	})
	r.GET("/notices", notices.Handler(), func(c *gin.Context) {
		noticeCalls++
		c.JSON(http.StatusOK, gin.H{"calls": noticeCalls})
	})
	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	first := get("/rooms?floor=1&block=A")
	second := get("/rooms?block=A&floor=1")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.Equal(t, 1, roomCalls)
	get("/notices")
	assert.Equal(t, 1, noticeCalls)

	assert.Equal(t, 1, rooms.Invalidate())
	third := get("/rooms?floor=1&block=A")
	assert.Equal(t, 2, roomCalls)
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())

	assert.Equal(t, "HIT", get("/notices").Header().Get("X-Cache"))
	assert.Equal(t, 1, noticeCalls)
	_, ok := store.Get("token:abc")
	assert.True(t, ok)
}

func TestResponseCache_SkipsErrorsAndNilInvalidate(t *testing.T) {
	store := cache.New(time.Minute, time.Minute)
	rc := NewResponseCache(store, "rooms", time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/rooms", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusInternalServerError, gin.H{"message": "boom"})
	})
	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rooms", nil))
	}
	assert.Equal(t, 2, calls)
	assert.Zero(t, store.ItemCount())

	var none *ResponseCache
	assert.Zero(t, none.Invalidate())
}

func TestAuthMiddleware(t *testing.T) {
	db := newTestDB(t)
	verified := models.User{Name: "W", Email: "w@x.edu", Password: "x", Role: models.RoleWarden, IsVerified: true}
	unverified := models.User{Name: "S", Email: "s@x.edu", Password: "x", Role: models.RoleStudent}
	require.NoError(t, db.Create(&verified).Error)
	require.NoError(t, db.Create(&unverified).Error)

	r := gin.New()
	r.GET("/warden", AuthMiddleware(db, AuthConfig{JWTSecret: "k"}), RequireRoles(models.RoleWarden), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/student", AuthMiddleware(db, AuthConfig{JWTSecret: "k", AllowQueryToken: true}), RequireRoles(models.RoleStudent), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(path, token string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	wardenTok, err := IssueToken(verified, "k", time.Hour)
	require.NoError(t, err)
	unverifiedTok, err := IssueToken(unverified, "k", time.Hour)
	require.NoError(t, err)
	forged, err := IssueToken(verified, "other", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, do("/warden", ""))
	assert.Equal(t, http.StatusUnauthorized, do("/warden", forged))
	assert.Equal(t, http.StatusOK, do("/warden", wardenTok))
	assert.Equal(t, http.StatusUnauthorized, do("/warden", unverifiedTok))
	assert.Equal(t, http.StatusForbidden, do("/student", wardenTok))
	assert.Equal(t, http.StatusForbidden, do("/student?token="+wardenTok, ""))
	assert.Equal(t, http.StatusUnauthorized, do("/warden?token="+wardenTok, ""))
}
