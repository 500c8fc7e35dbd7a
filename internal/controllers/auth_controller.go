package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/database"
	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/middleware"
	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/utils"
)

const otpTTL = 10 * time.Minute

type AuthController struct {
	DB        *gorm.DB
	Mailer    *mailer.Mailer
	Log       logging.Logger
	JWTSecret string
	TokenTTL  time.Duration
}

type signupRequest struct {
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Password      string         `json:"password"`
	Role          string         `json:"role"`
	StudentID     FlexibleString `json:"studentId"`
	Phone         FlexibleString `json:"phone"`
	Address       string         `json:"address"`
	ParentName    string         `json:"parentName"`
	ParentEmail   string         `json:"parentEmail"`
	ParentPhone   FlexibleString `json:"parentPhone"`
	GuardianName  string         `json:"guardianName"`
	GuardianEmail string         `json:"guardianEmail"`
	GuardianPhone FlexibleString `json:"guardianPhone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	UserID string         `json:"userId"`
	OTP    FlexibleString `json:"otp"`
}

type resendOTPRequest struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func (a *AuthController) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	email := models.NormalizeEmail(req.Email)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	studentID := strings.TrimSpace(req.StudentID.String())

	if name == "" || email == "" || req.Password == "" || role == "" {
		badRequest(c, "Please provide all required fields")
		return
	}
	if !models.IsValidRole(role) {
		badRequest(c, "Invalid role")
		return
	}
	parentName := strings.TrimSpace(req.ParentName)
	guardianName := strings.TrimSpace(req.GuardianName)
	// Names end up in mail subjects.
	if hasControl(name) || hasControl(parentName) || hasControl(guardianName) {
		badRequest(c, "Name contains invalid characters")
		return
	}
	parentEmail := models.NormalizeEmail(req.ParentEmail)
	parentPhone := strings.TrimSpace(req.ParentPhone.String())
	if models.Role(role) == models.RoleStudent && (parentName == "" || parentEmail == "" || parentPhone == "") {
		badRequest(c, "Parent details are required for students")
		return
	}

	ctx := c.Request.Context()
	var count int64
	if err := a.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		serverError(c, a.Log, "signup: email lookup failed", err)
		return
	}
	if count > 0 {
		badRequest(c, "User already exists with this email")
		return
	}
	if studentID != "" {
		if err := a.DB.WithContext(ctx).Model(&models.User{}).Where("student_id = ?", studentID).Count(&count).Error; err != nil {
			serverError(c, a.Log, "signup: student id lookup failed", err)
			return
		}
		if count > 0 {
			badRequest(c, "Student ID already exists")
			return
		}
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		serverError(c, a.Log, "signup: hash password", err)
		return
	}
	otp, err := utils.GenerateOTP(6)
	if err != nil {
		serverError(c, a.Log, "signup: generate otp", err)
		return
	}
	expires := time.Now().Add(otpTTL)

	user := models.User{
		Name:          name,
		Email:         email,
		Password:      hashed,
		Role:          models.Role(role),
		Phone:         strings.TrimSpace(req.Phone.String()),
		Address:       strings.TrimSpace(req.Address),
		ParentName:    parentName,
		ParentEmail:   parentEmail,
		ParentPhone:   parentPhone,
		GuardianName:  guardianName,
		GuardianEmail: models.NormalizeEmail(req.GuardianEmail),
		GuardianPhone: strings.TrimSpace(req.GuardianPhone.String()),
		OTP:           utils.OTPDigest(otp),
		OTPExpires:    &expires,
	}
	if studentID != "" {
		user.StudentID = &studentID
	}
	if err := a.DB.WithContext(ctx).Create(&user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "User already exists with this email or student ID"})
			return
		}
		serverError(c, a.Log, "signup: create user", err)
		return
	}

	if err := a.Mailer.Send(ctx, mailer.OTPMessage(user.Email, otp)); err != nil {
		a.Log.Error(ctx, "signup: otp email failed", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Account created but the verification email could not be sent. Please request a new OTP.",
			"userId":  user.ID,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful. Please verify OTP sent to your email.",
		"userId":  user.ID,
	})
}

func (a *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		badRequest(c, "Please provide email and password")
		return
	}

	var user models.User
	if err := a.DB.WithContext(c.Request.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
			return
		}
		serverError(c, a.Log, "login: lookup", err)
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if !user.IsVerified {
		c.JSON(http.StatusUnauthorized, gin.H{
			"message":       "Please verify your email first",
			"isNotVerified": true,
			"userId":        user.ID,
		})
		return
	}

	token, err := middleware.IssueToken(user, a.JWTSecret, a.TokenTTL)
	if err != nil {
		serverError(c, a.Log, "login: issue token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    authUser(user),
	})
}

func (a *AuthController) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	code := req.OTP.String()
	if userID == "" || code == "" {
		badRequest(c, "Please provide userId and OTP")
		return
	}

	ctx := c.Request.Context()
	var user models.User
	if err := a.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "User not found")
			return
		}
		serverError(c, a.Log, "verify otp: lookup", err)
		return
	}
	if user.IsVerified {
		badRequest(c, "User already verified")
		return
	}
	if !user.OTPValid(utils.OTPDigest(code), time.Now()) {
		badRequest(c, "Invalid or expired OTP")
		return
	}

	// the is_verified guard makes a concurrent second verify a no-op
	res := a.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_verified = ?", user.ID, false).
		Updates(map[string]any{"is_verified": true, "otp": "", "otp_expires": nil})
	if res.Error != nil {
		serverError(c, a.Log, "verify otp: update", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		badRequest(c, "User already verified")
		return
	}
	user.IsVerified = true

	token, err := middleware.IssueToken(user, a.JWTSecret, a.TokenTTL)
	if err != nil {
		serverError(c, a.Log, "verify otp: issue token", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Verification successful",
		"token":   token,
		"user":    authUser(user),
	})
}

func (a *AuthController) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	userID := strings.TrimSpace(req.UserID)
	email := models.NormalizeEmail(req.Email)
	if userID == "" && email == "" {
		badRequest(c, "Please provide userId or email")
		return
	}

	ctx := c.Request.Context()
	q := a.DB.WithContext(ctx)
	if userID != "" {
		q = q.Where("id = ?", userID)
	} else {
		q = q.Where("email = ?", email)
	}
	var user models.User
	if err := q.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "User not found")
			return
		}
		serverError(c, a.Log, "resend otp: lookup", err)
		return
	}
	if user.IsVerified {
		badRequest(c, "User already verified")
		return
	}

	otp, err := utils.GenerateOTP(6)
	if err != nil {
		serverError(c, a.Log, "resend otp: generate", err)
		return
	}
	expires := time.Now().Add(otpTTL)
	if err := a.DB.WithContext(ctx).Model(&user).
		Updates(map[string]any{"otp": utils.OTPDigest(otp), "otp_expires": expires}).Error; err != nil {
		serverError(c, a.Log, "resend otp: update", err)
		return
	}

	if err := a.Mailer.Send(ctx, mailer.OTPMessage(user.Email, otp)); err != nil {
		serverError(c, a.Log, "resend otp: email", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP resent successfully", "userId": user.ID})
}

// Me returns the caller's profile including the assigned room.
func (a *AuthController) Me(c *gin.Context) {
	profile, err := loadProfile(a.DB.WithContext(c.Request.Context()), currentUser(c).ID)
	if err != nil {
		serverError(c, a.Log, "me: load profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func loadProfile(db *gorm.DB, userID string) (models.User, error) {
	var user models.User
	err := db.Preload("HostelRoom").Where("id = ?", userID).First(&user).Error
	return user, err
}

func authUser(u models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"name":      u.Name,
		"email":     u.Email,
		"role":      u.Role,
		"studentId": u.StudentID,
	}
}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}
