package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

// StudentController serves the student's own complaints, feedback, fines and
// profile.
type StudentController struct {
	DB  *gorm.DB
	Log logging.Logger
}

type createComplaintRequest struct {
	Department  string `json:"department"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type createFeedbackRequest struct {
	Department string `json:"department"`
	Subject    string `json:"subject"`
	Message    string `json:"message"`
}

func (s *StudentController) Profile(c *gin.Context) {
	profile, err := loadProfile(s.DB.WithContext(c.Request.Context()), currentUser(c).ID)
	if err != nil {
		serverError(c, s.Log, "student profile", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (s *StudentController) CreateComplaint(c *gin.Context) {
	var req createComplaintRequest
	if !bindJSON(c, &req) {
		return
	}
	dept := strings.ToLower(strings.TrimSpace(req.Department))
	subject := strings.TrimSpace(req.Subject)
	description := strings.TrimSpace(req.Description)
	if dept == "" || subject == "" || description == "" {
		badRequest(c, "Please provide all required fields")
		return
	}
	if !models.IsValidDepartment(dept) {
		badRequest(c, "Invalid department")
		return
	}

	complaint := models.Complaint{
		StudentID:   currentUser(c).ID,
		Department:  models.Department(dept),
		Subject:     subject,
		Description: description,
	}
	if err := s.DB.WithContext(c.Request.Context()).Create(&complaint).Error; err != nil {
		serverError(c, s.Log, "create complaint", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Complaint submitted successfully", "complaint": complaint})
}

func (s *StudentController) ListComplaints(c *gin.Context) {
	var complaints []models.Complaint
	err := s.DB.WithContext(c.Request.Context()).
		Preload("Resolver", summarySelect).
		Where("student_id = ?", currentUser(c).ID).
		Order("created_at DESC").
		Find(&complaints).Error
	if err != nil {
		serverError(c, s.Log, "list own complaints", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (s *StudentController) CreateFeedback(c *gin.Context) {
	var req createFeedbackRequest
	if !bindJSON(c, &req) {
		return
	}
	dept := strings.ToLower(strings.TrimSpace(req.Department))
	subject := strings.TrimSpace(req.Subject)
	message := strings.TrimSpace(req.Message)
	if dept == "" || subject == "" || message == "" {
		badRequest(c, "Please provide all required fields")
		return
	}
	if !models.IsValidDepartment(dept) {
		badRequest(c, "Invalid department")
		return
	}

	feedback := models.Feedback{
		StudentID:  currentUser(c).ID,
		Department: models.Department(dept),
		Subject:    subject,
		Message:    message,
	}
	if err := s.DB.WithContext(c.Request.Context()).Create(&feedback).Error; err != nil {
		serverError(c, s.Log, "create feedback", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Feedback submitted successfully", "feedback": feedback})
}

func (s *StudentController) ListFines(c *gin.Context) {
	var fines []models.Fine
	err := s.DB.WithContext(c.Request.Context()).
		Preload("Imposer", summarySelect).
		Where("student_id = ?", currentUser(c).ID).
		Order("created_at DESC").
		Find(&fines).Error
	if err != nil {
		serverError(c, s.Log, "list own fines", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fines": fines, "totalPending": models.PendingTotal(fines)})
}
