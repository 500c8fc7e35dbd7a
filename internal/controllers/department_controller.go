package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

// DepartmentController handles the staff side of complaints, fines and
// feedback. One instance is mounted per department (library for librarians,
// academics for teachers, hostel for wardens) and never sees another
// department's records.
type DepartmentController struct {
	DB         *gorm.DB
	Mailer     *mailer.Mailer
	Log        logging.Logger
	Department models.Department
	PortalURL  string
}

type updateComplaintRequest struct {
	Status        string  `json:"status"`
	AdminResponse *string `json:"adminResponse"`
}

type imposeFineRequest struct {
	StudentID FlexibleString `json:"studentId"`
	Amount    FlexibleFloat  `json:"amount"`
	Reason    string         `json:"reason"`
}

func (d *DepartmentController) ListComplaints(c *gin.Context) {
	q := d.DB.WithContext(c.Request.Context()).
		Preload("Student", summarySelect).
		Preload("Resolver", summarySelect).
		Where("department = ?", d.Department)

	// ?status=pending is the work queue, served oldest first
	status := strings.ToLower(strings.TrimSpace(c.Query("status")))
	if status != "" {
		if !models.IsValidComplaintStatus(status) {
			badRequest(c, "Invalid status filter")
			return
		}
		q = q.Where("status = ?", status)
	}
	if models.ComplaintStatus(status) == models.ComplaintPending {
		q = q.Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}

	var complaints []models.Complaint
	if err := q.Find(&complaints).Error; err != nil {
		serverError(c, d.Log, "list department complaints", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints})
}

func (d *DepartmentController) UpdateComplaint(c *gin.Context) {
	var req updateComplaintRequest
	if !bindJSON(c, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if !models.IsValidComplaintStatus(status) {
		badRequest(c, "Please provide a valid status")
		return
	}

	ctx := c.Request.Context()
	var complaint models.Complaint
	err := d.DB.WithContext(ctx).Where("id = ? AND department = ?", c.Param("id"), d.Department).First(&complaint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Complaint not found")
			return
		}
		serverError(c, d.Log, "update complaint: lookup", err)
		return
	}

	staff := currentUser(c)
	complaint.SetStatus(models.ComplaintStatus(status), staff.ID, time.Now())
	if req.AdminResponse != nil {
		complaint.AdminResponse = strings.TrimSpace(*req.AdminResponse)
	}
	err = d.DB.WithContext(ctx).Model(&complaint).Select("status", "admin_response", "resolved_by", "resolved_at", "updated_at").Updates(&complaint).Error
	if err != nil {
		serverError(c, d.Log, "update complaint: save", err)
		return
	}
	if complaint.ResolvedBy != nil {
		complaint.Resolver = staff.Public()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Complaint updated successfully", "complaint": complaint})
}

func (d *DepartmentController) ImposeFine(c *gin.Context) {
	var req imposeFineRequest
	if !bindJSON(c, &req) {
		return
	}
	studentNumber := req.StudentID.String()
	reason := strings.TrimSpace(req.Reason)
	if studentNumber == "" || !req.Amount.Set || reason == "" {
		badRequest(c, "Please provide all required fields")
		return
	}
	if req.Amount.Value <= 0 {
		badRequest(c, "Amount must be greater than 0")
		return
	}

	ctx := c.Request.Context()
	var student models.User
	err := d.DB.WithContext(ctx).Where("student_id = ? AND role = ?", studentNumber, models.RoleStudent).First(&student).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Student not found")
			return
		}
		serverError(c, d.Log, "impose fine: student lookup", err)
		return
	}

	staff := currentUser(c)
	fine := models.Fine{
		StudentID:  student.ID,
		Department: d.Department,
		Amount:     req.Amount.Value,
		Reason:     reason,
		ImposedBy:  staff.ID,
	}
	if err := d.DB.WithContext(ctx).Create(&fine).Error; err != nil {
		serverError(c, d.Log, "impose fine: create", err)
		return
	}

	d.Mailer.SendAsync(mailer.FineImposedMessage(student.Email, d.PortalURL, mailer.FineDetails{
		StudentName: student.Name,
		Department:  string(fine.Department),
		Amount:      fine.Amount,
		Reason:      fine.Reason,
		Status:      string(fine.Status),
		ImposedAt:   fine.CreatedAt,
	}))

	fine.Student = student.Public()
	c.JSON(http.StatusCreated, gin.H{"message": "Fine imposed successfully", "fine": fine})
}

func (d *DepartmentController) ListFines(c *gin.Context) {
	var fines []models.Fine
	err := d.DB.WithContext(c.Request.Context()).
		Preload("Student", summarySelect).
		Preload("Imposer", summarySelect).
		Where("department = ?", d.Department).
		Order("created_at DESC").
		Find(&fines).Error
	if err != nil {
		serverError(c, d.Log, "list department fines", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fines": fines})
}

func (d *DepartmentController) DeleteFine(c *gin.Context) {
	res := d.DB.WithContext(c.Request.Context()).
		Where("id = ? AND department = ?", c.Param("id"), d.Department).
		Delete(&models.Fine{})
	if res.Error != nil {
		serverError(c, d.Log, "delete fine", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "Fine not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fine deleted successfully"})
}

func (d *DepartmentController) ListFeedback(c *gin.Context) {
	var feedbacks []models.Feedback
	err := d.DB.WithContext(c.Request.Context()).
		Preload("Student", summarySelect).
		Where("department = ?", d.Department).
		Order("created_at DESC").
		Find(&feedbacks).Error
	if err != nil {
		serverError(c, d.Log, "list department feedback", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"feedbacks": feedbacks})
}

func (d *DepartmentController) MarkFeedbackRead(c *gin.Context) {
	res := d.DB.WithContext(c.Request.Context()).Model(&models.Feedback{}).
		Where("id = ? AND department = ?", c.Param("id"), d.Department).
		Update("read", true)
	if res.Error != nil {
		serverError(c, d.Log, "mark feedback read", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "Feedback not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback marked as read"})
}

func (d *DepartmentController) DeleteFeedback(c *gin.Context) {
	res := d.DB.WithContext(c.Request.Context()).
		Where("id = ? AND department = ?", c.Param("id"), d.Department).
		Delete(&models.Feedback{})
	if res.Error != nil {
		serverError(c, d.Log, "delete feedback", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		notFound(c, "Feedback not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Feedback deleted successfully"})
}
