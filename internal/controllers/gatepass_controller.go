package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/utils"
	"github.com/zaqqye/college_portal_backend/internal/ws"
)

var errGatepassNotFound = errors.New("gatepass not found")

// GatepassController runs the two-step leave approval: the guardian answers
// through an emailed link, then a warden decides.
type GatepassController struct {
	DB           *gorm.DB
	Mailer       *mailer.Mailer
	Log          logging.Logger
	Hubs         *ws.Hubs
	FrontendURL  string
	ActionSecret string
	ActionTTL    time.Duration
	// UsedTokens holds the ids of guardian links that have been spent.
	UsedTokens *cache.Cache
}

type applyGatepassRequest struct {
	FromDate FlexibleTime `json:"fromDate"`
	ToDate   FlexibleTime `json:"toDate"`
	Reason   string       `json:"reason"`
}

type parentActionRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

type wardenActionRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

func (g *GatepassController) Apply(c *gin.Context) {
	var req applyGatepassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please provide all details")
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if req.FromDate.IsZero() || req.ToDate.IsZero() || reason == "" {
		badRequest(c, "Please provide all details")
		return
	}
	if req.ToDate.Before(req.FromDate.Time) {
		badRequest(c, "To date cannot be before from date")
		return
	}

	ctx := c.Request.Context()
	student := currentUser(c)
	guardianEmail := student.GuardianContactEmail()
	if guardianEmail == "" {
		badRequest(c, "Parent email is missing. Please update profile.")
		return
	}

	gp := models.NewGatepass(student.ID, req.FromDate.Time, req.ToDate.Time, reason)
	if err := g.DB.WithContext(ctx).Create(gp).Error; err != nil {
		serverError(c, g.Log, "apply gatepass: create", err)
		return
	}

	token, err := utils.SignActionToken(g.ActionSecret, gp.ID, g.ActionTTL, time.Now())
	if err != nil {
		serverError(c, g.Log, "apply gatepass: sign action token", err)
		return
	}
	details := mailer.GatepassDetails{StudentName: student.Name, From: gp.FromDate, To: gp.ToDate, Reason: gp.Reason}
	parentMsg := mailer.GatepassParentRequestMessage(guardianEmail, details, g.actionLink(token, "approve"), g.actionLink(token, "reject"))
	if err := g.Mailer.Send(ctx, parentMsg); err != nil {
		serverError(c, g.Log, "apply gatepass: guardian email", err)
		return
	}
	if err := g.Mailer.Send(ctx, mailer.GatepassSubmittedMessage(student.Email, details)); err != nil {
		serverError(c, g.Log, "apply gatepass: student email", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Gatepass requested. Waiting for parent approval.", "gatepass": gp})
}

func (g *GatepassController) actionLink(token, action string) string {
	v := url.Values{}
	v.Set("token", token)
	v.Set("action", action)
	return g.FrontendURL + "/gatepass-action?" + v.Encode()
}

// ParentAction applies the guardian's decision carried by a signed link.
// Each link token is spent on first successful use.
func (g *GatepassController) ParentAction(c *gin.Context) {
	var req parentActionRequest
	if !bindJSON(c, &req) {
		return
	}
	action := strings.ToLower(strings.TrimSpace(req.Action))
	if action != "approve" && action != "reject" {
		badRequest(c, "Invalid action")
		return
	}
	claims, err := utils.ParseActionToken(g.ActionSecret, strings.TrimSpace(req.Token))
	if err != nil {
		badRequest(c, "Invalid or expired link")
		return
	}

	// claim the token id first so concurrent clicks cannot both pass
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := g.UsedTokens.Add(claims.ID, claims.GatepassID, ttl); err != nil {
		badRequest(c, "This link has already been used")
		return
	}

	ctx := c.Request.Context()
	var gp models.Gatepass
	err = g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", claims.GatepassID).First(&gp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errGatepassNotFound
			}
			return err
		}
		if err := gp.ApplyParentDecision(action == "approve"); err != nil {
			return err
		}
		res := tx.Model(&models.Gatepass{}).
			Where("id = ? AND status = ?", gp.ID, models.GatepassPendingParent).
			Updates(map[string]any{
				"status":                 gp.Status,
				"parent_approval_status": gp.ParentApprovalStatus,
				"rejection_reason":       gp.RejectionReason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrGatepassAlreadyProcessed
		}
		return nil
	})
	switch {
	case errors.Is(err, errGatepassNotFound):
		notFound(c, "Gatepass not found")
		return
	case errors.Is(err, models.ErrGatepassAlreadyProcessed):
		badRequest(c, "Request already processed")
		return
	case err != nil:
		g.UsedTokens.Delete(claims.ID)
		serverError(c, g.Log, "parent action", err)
		return
	}

	broadcastGatepassStatus(g.Hubs, gp)

	if gp.Status == models.GatepassRejected {
		var student models.User
		if err := g.DB.WithContext(ctx).Where("id = ?", gp.StudentID).First(&student).Error; err != nil {
			serverError(c, g.Log, "parent action: student lookup", err)
			return
		}
		if err := g.Mailer.Send(ctx, mailer.GatepassStatusMessage(student.Email, string(gp.Status), gp.RejectionReason)); err != nil {
			serverError(c, g.Log, "parent action: student email", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Request rejected successfully"})
		return
	}

	var student models.User
	studentName := ""
	if err := g.DB.WithContext(ctx).Select("id", "name").Where("id = ?", gp.StudentID).First(&student).Error; err == nil {
		studentName = student.Name
	}
	broadcastGatepassPending(g.Hubs, gp, studentName)
	c.JSON(http.StatusOK, gin.H{"message": "Request approved successfully. Forwarded to Warden."})
}

func (g *GatepassController) WardenAction(c *gin.Context) {
	var req wardenActionRequest
	if !bindJSON(c, &req) {
		return
	}
	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status != string(models.ApprovalApproved) && status != string(models.ApprovalRejected) {
		badRequest(c, "Invalid status")
		return
	}

	ctx := c.Request.Context()
	warden := currentUser(c)
	var gp models.Gatepass
	err := g.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", c.Param("id")).First(&gp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errGatepassNotFound
			}
			return err
		}
		if err := gp.ApplyWardenDecision(status == string(models.ApprovalApproved), warden.ID, strings.TrimSpace(req.RejectionReason)); err != nil {
			return err
		}
		res := tx.Model(&models.Gatepass{}).
			Where("id = ? AND status = ?", gp.ID, models.GatepassPendingWarden).
			Updates(map[string]any{
				"status":                 gp.Status,
				"warden_approval_status": gp.WardenApprovalStatus,
				"rejection_reason":       gp.RejectionReason,
				"approved_by":            warden.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.ErrNotPendingWarden
		}
		return nil
	})
	switch {
	case errors.Is(err, errGatepassNotFound):
		notFound(c, "Gatepass not found")
		return
	case errors.Is(err, models.ErrNotPendingWarden):
		badRequest(c, "Request is not pending warden approval")
		return
	case err != nil:
		serverError(c, g.Log, "warden action", err)
		return
	}

	broadcastGatepassStatus(g.Hubs, gp)

	var student models.User
	if err := g.DB.WithContext(ctx).Where("id = ?", gp.StudentID).First(&student).Error; err != nil {
		serverError(c, g.Log, "warden action: student lookup", err)
		return
	}
	if err := g.Mailer.Send(ctx, mailer.GatepassStatusMessage(student.Email, string(gp.Status), gp.RejectionReason)); err != nil {
		serverError(c, g.Log, "warden action: student email", err)
		return
	}
	gp.Student = student.Public()
	gp.Approver = warden.Public()
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Gatepass %s successfully", gp.Status), "gatepass": gp})
}

func (g *GatepassController) My(c *gin.Context) {
	var gatepasses []models.Gatepass
	err := g.DB.WithContext(c.Request.Context()).
		Preload("Approver", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Where("student_id = ?", currentUser(c).ID).
		Order("created_at DESC").
		Find(&gatepasses).Error
	if err != nil {
		serverError(c, g.Log, "my gatepasses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gatepasses": gatepasses})
}

// Pending is the warden work queue, oldest first.
func (g *GatepassController) Pending(c *gin.Context) {
	var gatepasses []models.Gatepass
	err := g.DB.WithContext(c.Request.Context()).
		Preload("Student", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "email", "student_id", "parent_name", "parent_phone")
		}).
		Where("status = ?", models.GatepassPendingWarden).
		Order("created_at ASC").
		Find(&gatepasses).Error
	if err != nil {
		serverError(c, g.Log, "pending gatepasses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gatepasses": gatepasses})
}

func (g *GatepassController) All(c *gin.Context) {
	p := parsePaging(c)
	base := g.DB.WithContext(c.Request.Context()).Model(&models.Gatepass{})
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		base = base.Where("status = ?", status)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, g.Log, "all gatepasses: count", err)
		return
	}
	var gatepasses []models.Gatepass
	q := base.
		Preload("Student", summarySelect).
		Preload("Approver", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		Order("created_at DESC")
	if err := p.apply(q).Find(&gatepasses).Error; err != nil {
		serverError(c, g.Log, "all gatepasses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gatepasses": gatepasses, "meta": p.meta(total)})
}

// QR renders an approved gatepass as a PNG the gate staff can scan.
func (g *GatepassController) QR(c *gin.Context) {
	var gp models.Gatepass
	err := g.DB.WithContext(c.Request.Context()).
		Where("id = ? AND student_id = ?", c.Param("id"), currentUser(c).ID).
		First(&gp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Gatepass not found")
			return
		}
		serverError(c, g.Log, "gatepass qr: lookup", err)
		return
	}
	if gp.Status != models.GatepassApproved {
		badRequest(c, "Only approved gatepasses have a QR code")
		return
	}

	png, err := qrcode.Encode(g.FrontendURL+"/gatepass/verify?id="+url.QueryEscape(gp.ID), qrcode.Medium, 256)
	if err != nil {
		serverError(c, g.Log, "gatepass qr: encode", err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
