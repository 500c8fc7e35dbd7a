package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/config"
	"github.com/zaqqye/college_portal_backend/internal/database"
	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/middleware"
	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) to(addr string) []mailer.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []mailer.Message
	for _, m := range o.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

type testServer struct {
	r    *gin.Engine
	db   *gorm.DB
	cfg  *config.Config
	mail *outbox
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		ActionTokenSecret: "test-action-secret",
		FrontendURL:       "http://portal.test",
		HostelFee:         "5000",
		RateLimitPerSec:   "1000",
		RateLimitBurst:    "1000",
	}
	box := &outbox{}
	r := gin.New()
	Register(r, Deps{
		DB:     db,
		Cfg:    cfg,
		Mailer: mailer.New(box, nil, logging.Discard()),
		Log:    logging.Discard(),
	})
	return &testServer{r: r, db: db, cfg: cfg, mail: box}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

// account inserts a verified user and returns it with a session token.
func (s *testServer) account(t *testing.T, role models.Role, email string, edit func(*models.User)) (models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	u := models.User{Name: strings.Split(email, "@")[0], Email: email, Password: hash, Role: role, IsVerified: true}
	if role == models.RoleStudent {
		u.ParentName = "Parent"
		u.ParentEmail = "parent." + email
		u.ParentPhone = "9000000000"
	}
	if edit != nil {
		edit(&u)
	}
	require.NoError(t, s.db.Create(&u).Error)
	token, err := middleware.IssueToken(u, s.cfg.JWTSecret, time.Hour)
	require.NoError(t, err)
	return u, token
}

func strp(s string) *string { return &s }

var (
	otpPattern   = regexp.MustCompile(`verification is: (\d{6})`)
	tokenPattern = regexp.MustCompile(`token=([A-Za-z0-9_.\-]+)`)
)

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
}

func TestSignup_StudentNeedsGuardianDetails(t *testing.T) {
	s := newTestServer(t)
	base := map[string]any{
		"name":        "Asha",
		"email":       "Asha@College.edu ",
		"password":    "secret123",
		"role":        "student",
		"studentId":   "S100",
		"parentName":  "Ravi",
		"parentEmail": "ravi@example.com",
		"parentPhone": 9876543210,
	}
	for _, field := range []string{"parentName", "parentEmail", "parentPhone"} {
		req := map[string]any{}
		for k, v := range base {
			req[k] = v
		}
		req[field] = ""
		code, body := s.do(t, http.MethodPost, "/api/auth/signup", "", req)
		assert.Equal(t, http.StatusBadRequest, code, field)
		assert.Equal(t, "Parent details are required for students", body["message"], field)
	}
	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)

	code, body := s.do(t, http.MethodPost, "/api/auth/signup", "", base)
	require.Equal(t, http.StatusCreated, code)
	userID, _ := body["userId"].(string)
	require.NotEmpty(t, userID)

	var user models.User
	require.NoError(t, s.db.Where("id = ?", userID).First(&user).Error)
	assert.Equal(t, "asha@college.edu", user.Email)
	assert.False(t, user.IsVerified)
	assert.Equal(t, "9876543210", user.ParentPhone)
	assert.Len(t, s.mail.to("asha@college.edu"), 1)

	code, body = s.do(t, http.MethodPost, "/api/auth/signup", "", base)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already exists with this email", body["message"])

	base["email"] = "other@college.edu"
	code, body = s.do(t, http.MethodPost, "/api/auth/signup", "", base)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Student ID already exists", body["message"])
}

func TestSignup_RejectsUnknownRole(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name": "X", "email": "x@college.edu", "password": "p", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid role", body["message"])
}

func TestSignup_RejectsLineBreaksInNames(t *testing.T) {
	s := newTestServer(t)
	for _, field := range []string{"name", "parentName"} {
		req := map[string]any{
			"name": "Asha", "email": "asha@college.edu", "password": "secret123", "role": "student",
			"studentId": "S100", "parentName": "Ravi", "parentEmail": "ravi@example.com", "parentPhone": "9876543210",
		}
		req[field] = "Asha\r\nBcc: spy@evil.com"
		code, body := s.do(t, http.MethodPost, "/api/auth/signup", "", req)
		assert.Equal(t, http.StatusBadRequest, code, field)
		assert.Equal(t, "Name contains invalid characters", body["message"], field)
	}
	var count int64
	require.NoError(t, s.db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, s.mail.to("asha@college.edu"))
}

func TestVerifyOTP_SecondCallReportsAlreadyVerified(t *testing.T) {
	s := newTestServer(t)
	code, body := s.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name": "Meera", "email": "meera@college.edu", "password": "secret123", "role": "teacher",
	})
	require.Equal(t, http.StatusCreated, code)
	userID := body["userId"].(string)

	code, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "meera@college.edu", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, true, body["isNotVerified"])

	mails := s.mail.to("meera@college.edu")
	require.Len(t, mails, 1)
	m := otpPattern.FindStringSubmatch(mails[0].HTML)
	require.Len(t, m, 2)
	otp := m[1]

	code, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"userId": userID, "otp": "000000x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired OTP", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"userId": userID, "otp": otp})
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, body = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"userId": userID, "otp": otp})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "User already verified", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "meera@college.edu", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	token := body["token"].(string)

	code, body = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "meera@college.edu", body["user"].(map[string]any)["email"])
}

func TestVerifyOTP_ExpiredCode(t *testing.T) {
	s := newTestServer(t)
	past := time.Now().Add(-time.Minute)
	u, _ := s.account(t, models.RoleStudent, "late@college.edu", func(u *models.User) {
		u.IsVerified = false
		u.OTP = utils.OTPDigest("123456")
		u.OTPExpires = &past
	})
	code, body := s.do(t, http.MethodPost, "/api/auth/verify-otp", "", map[string]any{"userId": u.ID, "otp": "123456"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired OTP", body["message"])

	code, _ = s.do(t, http.MethodPost, "/api/auth/resend-otp", "", map[string]any{"email": "late@college.edu"})
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, s.mail.to("late@college.edu"), 1)
}

func TestRoleGroups(t *testing.T) {
	s := newTestServer(t)
	_, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)

	code, body := s.do(t, http.MethodGet, "/api/warden/allotments", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Not authorized, no token", body["message"])

	code, _ = s.do(t, http.MethodGet, "/api/warden/allotments", studentToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/student/profile", studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestComplaints_ScopedByDepartment(t *testing.T) {
	s := newTestServer(t)
	_, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)
	librarian, librarianToken := s.account(t, models.RoleLibrarian, "lib@college.edu", nil)
	_, teacherToken := s.account(t, models.RoleTeacher, "t@college.edu", nil)

	code, body := s.do(t, http.MethodPost, "/api/student/complaints", studentToken, map[string]any{
		"department": "library", "subject": "Noise", "description": "Too loud after 8pm",
	})
	require.Equal(t, http.StatusCreated, code)
	id := body["complaint"].(map[string]any)["id"].(string)

	code, body = s.do(t, http.MethodGet, "/api/teacher/complaints", teacherToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["complaints"])

	code, body = s.do(t, http.MethodGet, "/api/librarian/complaints?status=pending", librarianToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["complaints"], 1)

	code, _ = s.do(t, http.MethodPut, "/api/teacher/complaints/"+id, teacherToken, map[string]any{"status": "resolved"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = s.do(t, http.MethodPut, "/api/librarian/complaints/"+id, librarianToken, map[string]any{
		"status": "resolved", "adminResponse": "Quiet hours enforced",
	})
	require.Equal(t, http.StatusOK, code)

	var stored models.Complaint
	require.NoError(t, s.db.Where("id = ?", id).First(&stored).Error)
	assert.Equal(t, models.ComplaintResolved, stored.Status)
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, librarian.ID, *stored.ResolvedBy)
	assert.NotNil(t, stored.ResolvedAt)
	assert.Equal(t, "Quiet hours enforced", stored.AdminResponse)

	code, body = s.do(t, http.MethodPost, "/api/student/feedback", studentToken, map[string]any{
		"department": "library", "subject": "Hours", "message": "Open on Sundays please",
	})
	require.Equal(t, http.StatusCreated, code)
	feedbackID := body["feedback"].(map[string]any)["id"].(string)

	code, _ = s.do(t, http.MethodPut, "/api/teacher/feedback/"+feedbackID+"/read", teacherToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPut, "/api/librarian/feedback/"+feedbackID+"/read", librarianToken, nil)
	assert.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodGet, "/api/librarian/feedback", librarianToken, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["feedbacks"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0].(map[string]any)["read"])

	code, _ = s.do(t, http.MethodDelete, "/api/librarian/feedback/"+feedbackID, librarianToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodDelete, "/api/librarian/feedback/"+feedbackID, librarianToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPayFine_OnlyOnce(t *testing.T) {
	s := newTestServer(t)
	student, studentToken := s.account(t, models.RoleStudent, "s@college.edu", func(u *models.User) { u.StudentID = strp("S1") })
	_, otherToken := s.account(t, models.RoleStudent, "o@college.edu", func(u *models.User) { u.StudentID = strp("S2") })
	_, librarianToken := s.account(t, models.RoleLibrarian, "lib@college.edu", nil)

	code, body := s.do(t, http.MethodPost, "/api/librarian/fines", librarianToken, map[string]any{
		"studentId": "S1", "amount": "150", "reason": "Late return",
	})
	require.Equal(t, http.StatusCreated, code)
	fineID := body["fine"].(map[string]any)["id"].(string)
	assert.Eventually(t, func() bool { return len(s.mail.to(student.Email)) == 1 }, time.Second, 10*time.Millisecond)

	code, body = s.do(t, http.MethodPost, "/api/librarian/fines", librarianToken, map[string]any{
		"studentId": "S1", "amount": 0, "reason": "Nothing",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Amount must be greater than 0", body["message"])

	for _, amount := range []string{"Inf", "-Inf", "NaN"} {
		code, _ = s.do(t, http.MethodPost, "/api/librarian/fines", librarianToken, map[string]any{
			"studentId": "S1", "amount": amount, "reason": "Overflow",
		})
		assert.Equal(t, http.StatusBadRequest, code, amount)
	}
	var fines int64
	require.NoError(t, s.db.Model(&models.Fine{}).Where("student_id = ?", student.ID).Count(&fines).Error)
	assert.Equal(t, int64(1), fines)

	code, body = s.do(t, http.MethodPost, "/api/payments/fines/"+fineID+"/pay", otherToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Fine not found for this student", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/payments/fines/"+fineID+"/pay", studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	payment := body["payment"].(map[string]any)
	assert.Equal(t, "success", payment["status"])
	assert.Equal(t, float64(150), payment["amount"])

	code, body = s.do(t, http.MethodPost, "/api/payments/fines/"+fineID+"/pay", studentToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Fine is already paid", body["message"])

	var payments int64
	require.NoError(t, s.db.Model(&models.Payment{}).Where("reference_id = ?", fineID).Count(&payments).Error)
	assert.Equal(t, int64(1), payments)

	var fine models.Fine
	require.NoError(t, s.db.Where("id = ?", fineID).First(&fine).Error)
	assert.Equal(t, models.FinePaid, fine.Status)
	assert.NotNil(t, fine.PaidAt)

	code, body = s.do(t, http.MethodGet, "/api/student/fines", studentToken, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["totalPending"])

	code, body = s.do(t, http.MethodGet, "/api/payments", studentToken, nil)
	require.Equal(t, http.StatusOK, code)
	list := body["payments"].([]any)
	require.Len(t, list, 1)
	ref := list[0].(map[string]any)["reference"].(map[string]any)
	assert.Equal(t, fineID, ref["id"])
}

func TestHostel_CapacityIsNeverExceeded(t *testing.T) {
	s := newTestServer(t)
	_, wardenToken := s.account(t, models.RoleWarden, "w@college.edu", nil)
	students := make([]models.User, 4)
	tokens := make([]string, 4)
	for i := range students {
		students[i], tokens[i] = s.account(t, models.RoleStudent, string(rune('a'+i))+"@college.edu", nil)
	}

	code, body := s.do(t, http.MethodPost, "/api/warden/rooms", wardenToken, map[string]any{
		"roomNumber": "B-201", "capacity": 2, "floor": 2, "block": "B", "amenities": []string{"fan"},
	})
	require.Equal(t, http.StatusCreated, code)
	roomID := body["room"].(map[string]any)["id"].(string)

	code, body = s.do(t, http.MethodGet, "/api/student/hostel/rooms", tokens[0], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["rooms"], 1)

	allotments := make([]string, 3)
	for i := 0; i < 3; i++ {
		code, body = s.do(t, http.MethodPost, "/api/student/hostel/apply", tokens[i], map[string]any{"roomId": roomID})
		require.Equal(t, http.StatusCreated, code)
		allotments[i] = body["allotment"].(map[string]any)["id"].(string)
	}
	code, body = s.do(t, http.MethodPost, "/api/student/hostel/apply", tokens[0], map[string]any{"roomId": roomID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You already have a hostel allotment application", body["message"])

	for i := 0; i < 2; i++ {
		code, _ = s.do(t, http.MethodPut, "/api/warden/allotments/"+allotments[i], wardenToken, map[string]any{"status": "approved"})
		require.Equal(t, http.StatusOK, code)
	}
	code, body = s.do(t, http.MethodPut, "/api/warden/allotments/"+allotments[2], wardenToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Room is no longer available", body["message"])

	var room models.HostelRoom
	require.NoError(t, s.db.Where("id = ?", roomID).First(&room).Error)
	assert.Equal(t, 2, room.CurrentOccupancy)
	assert.False(t, room.IsAvailable)

	var bound models.User
	require.NoError(t, s.db.Where("id = ?", students[0].ID).First(&bound).Error)
	require.NotNil(t, bound.HostelRoomID)
	assert.Equal(t, roomID, *bound.HostelRoomID)

	code, body = s.do(t, http.MethodPost, "/api/student/hostel/apply", tokens[3], map[string]any{"roomId": roomID})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Room is not available", body["message"])

	// the listing cache is flushed by the approvals
	code, body = s.do(t, http.MethodGet, "/api/student/hostel/rooms", tokens[3], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["rooms"])

	code, body = s.do(t, http.MethodPut, "/api/warden/rooms/"+roomID, wardenToken, map[string]any{"capacity": 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodDelete, "/api/warden/rooms/"+roomID, wardenToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPost, "/api/payments/hostel/"+allotments[2]+"/pay", tokens[2], nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only approved allotments can be paid for", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/payments/hostel/"+allotments[0]+"/pay", tokens[0], nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(5000), body["payment"].(map[string]any)["amount"])

	code, _ = s.do(t, http.MethodPost, "/api/payments/hostel/"+allotments[1]+"/pay", tokens[1], map[string]any{"amount": "Inf"})
	assert.Equal(t, http.StatusBadRequest, code)
	var hostelPayments int64
	require.NoError(t, s.db.Model(&models.Payment{}).Where("reference_id = ?", allotments[1]).Count(&hostelPayments).Error)
	assert.Zero(t, hostelPayments)

	code, body = s.do(t, http.MethodPost, "/api/payments/hostel/"+allotments[1]+"/pay", tokens[1], map[string]any{"amount": 4200})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(4200), body["payment"].(map[string]any)["amount"])

	code, body = s.do(t, http.MethodPost, "/api/payments/hostel/"+allotments[0]+"/pay", tokens[0], nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Hostel allotment already paid", body["message"])
}

func TestGatepass_GuardianThenWarden(t *testing.T) {
	s := newTestServer(t)
	student, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)
	_, wardenToken := s.account(t, models.RoleWarden, "w@college.edu", nil)

	code, body := s.do(t, http.MethodPost, "/api/gatepass/apply", studentToken, map[string]any{
		"fromDate": "2026-10-22", "toDate": "2026-10-20", "reason": "Home visit",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "To date cannot be before from date", body["message"])

	code, body = s.do(t, http.MethodPost, "/api/gatepass/apply", studentToken, map[string]any{
		"fromDate": "2026-10-20", "toDate": "2026-10-22", "reason": "Home visit",
	})
	require.Equal(t, http.StatusCreated, code)
	id := body["gatepass"].(map[string]any)["id"].(string)
	assert.Equal(t, "pending_parent", body["gatepass"].(map[string]any)["status"])
	assert.Len(t, s.mail.to(student.Email), 1)

	guardianMail := s.mail.to(student.ParentEmail)
	require.Len(t, guardianMail, 1)
	m := tokenPattern.FindStringSubmatch(guardianMail[0].HTML)
	require.Len(t, m, 2)
	token := m[1]

	// warden cannot act before the guardian
	code, body = s.do(t, http.MethodPut, "/api/gatepass/"+id+"/action", wardenToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Request is not pending warden approval", body["message"])
	var gp models.Gatepass
	require.NoError(t, s.db.Where("id = ?", id).First(&gp).Error)
	assert.Equal(t, models.GatepassPendingParent, gp.Status)

	code, _ = s.do(t, http.MethodGet, "/api/gatepass/"+id+"/qr", studentToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodPost, "/api/gatepass/parent-action", "", map[string]any{"token": token + "x", "action": "approve"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid or expired link", body["message"])

	code, _ = s.do(t, http.MethodPost, "/api/gatepass/parent-action", "", map[string]any{"token": token, "action": "approve"})
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPost, "/api/gatepass/parent-action", "", map[string]any{"token": token, "action": "reject"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This link has already been used", body["message"])

	code, body = s.do(t, http.MethodGet, "/api/gatepass/pending", wardenToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["gatepasses"], 1)

	code, body = s.do(t, http.MethodPut, "/api/gatepass/"+id+"/action", wardenToken, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "approved", body["gatepass"].(map[string]any)["status"])
	assert.Len(t, s.mail.to(student.Email), 2)
	assert.Len(t, s.mail.to(student.ParentEmail), 1)

	req := httptest.NewRequest(http.MethodGet, "/api/gatepass/"+id+"/qr", nil)
	req.Header.Set("Authorization", "Bearer "+studentToken)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestGatepass_GuardianRejects(t *testing.T) {
	s := newTestServer(t)
	student, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)

	code, body := s.do(t, http.MethodPost, "/api/gatepass/apply", studentToken, map[string]any{
		"fromDate": "2026-10-20T09:00", "toDate": "2026-10-20T18:00", "reason": "Doctor",
	})
	require.Equal(t, http.StatusCreated, code)
	id := body["gatepass"].(map[string]any)["id"].(string)

	token, err := utils.SignActionToken(s.cfg.ActionTokenSecret, id, time.Hour, time.Now())
	require.NoError(t, err)
	code, _ = s.do(t, http.MethodPost, "/api/gatepass/parent-action", "", map[string]any{"token": token, "action": "reject"})
	require.Equal(t, http.StatusOK, code)

	var gp models.Gatepass
	require.NoError(t, s.db.Where("id = ?", id).First(&gp).Error)
	assert.Equal(t, models.GatepassRejected, gp.Status)
	assert.Equal(t, models.ParentRejectionReason, gp.RejectionReason)
	assert.Len(t, s.mail.to(student.Email), 2)

	second, err := utils.SignActionToken(s.cfg.ActionTokenSecret, id, time.Hour, time.Now())
	require.NoError(t, err)
	code, body = s.do(t, http.MethodPost, "/api/gatepass/parent-action", "", map[string]any{"token": second, "action": "approve"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Request already processed", body["message"])
}

func TestGatepass_NoGuardianEmailCreatesNothing(t *testing.T) {
	s := newTestServer(t)
	_, token := s.account(t, models.RoleStudent, "s@college.edu", func(u *models.User) {
		u.ParentEmail = ""
		u.GuardianEmail = ""
	})

	code, body := s.do(t, http.MethodPost, "/api/gatepass/apply", token, map[string]any{
		"fromDate": "2026-10-20", "toDate": "2026-10-21", "reason": "Home",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Parent email is missing. Please update profile.", body["message"])

	var count int64
	require.NoError(t, s.db.Model(&models.Gatepass{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestComplaints_PendingQueueIsOldestFirst(t *testing.T) {
	s := newTestServer(t)
	_, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)
	_, teacherToken := s.account(t, models.RoleTeacher, "t@college.edu", nil)

	ids := make([]string, 3)
	for i, subject := range []string{"Projector", "Timetable", "Grades"} {
		code, body := s.do(t, http.MethodPost, "/api/student/complaints", studentToken, map[string]any{
			"department": "academics", "subject": subject, "description": "Needs attention",
		})
		require.Equal(t, http.StatusCreated, code)
		ids[i] = body["complaint"].(map[string]any)["id"].(string)
	}
	// filed out of order: Timetable first, then Grades, then Projector
	base := time.Now().Add(-time.Hour)
	for i, offset := range []time.Duration{2 * time.Minute, 0, time.Minute} {
		require.NoError(t, s.db.Model(&models.Complaint{}).Where("id = ?", ids[i]).UpdateColumn("created_at", base.Add(offset)).Error)
	}

	subjects := func(path string) []string {
		code, body := s.do(t, http.MethodGet, path, teacherToken, nil)
		require.Equal(t, http.StatusOK, code)
		var out []string
		for _, c := range body["complaints"].([]any) {
			out = append(out, c.(map[string]any)["subject"].(string))
		}
		return out
	}
	assert.Equal(t, []string{"Timetable", "Grades", "Projector"}, subjects("/api/teacher/complaints?status=pending"))
	assert.Equal(t, []string{"Projector", "Grades", "Timetable"}, subjects("/api/teacher/complaints"))
}

func TestDeleteRoom_PendingApplicationDoesNotBlock(t *testing.T) {
	s := newTestServer(t)
	_, wardenToken := s.account(t, models.RoleWarden, "w@college.edu", nil)
	_, studentToken := s.account(t, models.RoleStudent, "s@college.edu", nil)

	code, body := s.do(t, http.MethodPost, "/api/warden/rooms", wardenToken, map[string]any{
		"roomNumber": "C-301", "capacity": 1, "floor": 3, "block": "C",
	})
	require.Equal(t, http.StatusCreated, code)
	roomID := body["room"].(map[string]any)["id"].(string)

	code, body = s.do(t, http.MethodPost, "/api/student/hostel/apply", studentToken, map[string]any{"roomId": roomID})
	require.Equal(t, http.StatusCreated, code)
	allotmentID := body["allotment"].(map[string]any)["id"].(string)

	code, _ = s.do(t, http.MethodDelete, "/api/warden/rooms/"+roomID, wardenToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = s.do(t, http.MethodPut, "/api/warden/allotments/"+allotmentID, wardenToken, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Room is no longer available", body["message"])

	var allotment models.HostelAllotment
	require.NoError(t, s.db.Where("id = ?", allotmentID).First(&allotment).Error)
	assert.Equal(t, models.AllotmentPending, allotment.Status)
}
