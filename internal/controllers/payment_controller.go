package controllers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/models"
)

var (
	errFineNotFound      = errors.New("fine not found")
	errFinePaid          = errors.New("fine already paid")
	errAllotmentNotOwned = errors.New("allotment not found for student")
	errAllotmentUnpaid   = errors.New("allotment not approved")
	errAllotmentPaid     = errors.New("allotment already paid")
)

// PaymentController records mock payments. Each payment and the status flip
// of what it pays for commit together.
type PaymentController struct {
	DB        *gorm.DB
	Log       logging.Logger
	HostelFee float64
}

type payHostelRequest struct {
	Amount FlexibleFloat `json:"amount"`
}

// referenceResolvers loads the record a payment points at, keyed by the
// reference kind stored on the payment.
var referenceResolvers = map[models.ReferenceKind]func(db *gorm.DB, id string) (any, error){
	models.RefFine: func(db *gorm.DB, id string) (any, error) {
		var f models.Fine
		err := db.Where("id = ?", id).First(&f).Error
		return f, err
	},
	models.RefHostelAllotment: func(db *gorm.DB, id string) (any, error) {
		var a models.HostelAllotment
		err := db.Preload("Room").Where("id = ?", id).First(&a).Error
		return a, err
	},
}

func resolveReference(db *gorm.DB, ref models.PaymentRef) (any, error) {
	resolve, ok := referenceResolvers[ref.Kind]
	if !ok {
		return nil, errors.New("unknown payment reference kind " + string(ref.Kind))
	}
	return resolve(db, ref.ID)
}

func (p *PaymentController) PayFine(c *gin.Context) {
	ctx := c.Request.Context()
	student := currentUser(c)

	var fine models.Fine
	var payment *models.Payment
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND student_id = ?", c.Param("fineId"), student.ID).First(&fine).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errFineNotFound
			}
			return err
		}
		if fine.Status == models.FinePaid {
			return errFinePaid
		}

		var err error
		payment, err = models.NewPayment(student.ID, models.FineRef(fine.ID), fine.Amount)
		if err != nil {
			return err
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&models.Fine{}).
			Where("id = ? AND status = ?", fine.ID, models.FinePending).
			Updates(map[string]any{"status": models.FinePaid, "paid_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// lost a race with another payment; roll back ours
			return errFinePaid
		}
		fine.Status = models.FinePaid
		fine.PaidAt = &now
		return nil
	})
	switch {
	case errors.Is(err, errFineNotFound):
		notFound(c, "Fine not found for this student")
		return
	case errors.Is(err, errFinePaid):
		badRequest(c, "Fine is already paid")
		return
	case err != nil:
		serverError(c, p.Log, "pay fine", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Fine paid successfully", "fine": fine, "payment": payment})
}

// PayHostelFee charges the client-supplied amount when positive, otherwise
// the configured hostel fee.
func (p *PaymentController) PayHostelFee(c *gin.Context) {
	var req payHostelRequest
	// the body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}
	amount := p.HostelFee
	if req.Amount.Set && req.Amount.Value > 0 {
		amount = req.Amount.Value
	}

	ctx := c.Request.Context()
	student := currentUser(c)
	var allotment models.HostelAllotment
	var payment *models.Payment
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Room").Where("id = ? AND student_id = ?", c.Param("allotmentId"), student.ID).First(&allotment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAllotmentNotOwned
			}
			return err
		}
		if allotment.Status != models.AllotmentApproved {
			return errAllotmentUnpaid
		}
		if allotment.PaymentStatus == models.PaymentPaid {
			return errAllotmentPaid
		}

		var err error
		payment, err = models.NewPayment(student.ID, models.AllotmentRef(allotment.ID), amount)
		if err != nil {
			return err
		}
		if err := tx.Create(payment).Error; err != nil {
			return err
		}
		res := tx.Model(&models.HostelAllotment{}).
			Where("id = ? AND payment_status = ?", allotment.ID, models.PaymentUnpaid).
			Updates(map[string]any{"payment_status": models.PaymentPaid, "payment_id": payment.ID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errAllotmentPaid
		}
		allotment.PaymentStatus = models.PaymentPaid
		allotment.PaymentID = &payment.ID
		return nil
	})
	switch {
	case errors.Is(err, errAllotmentNotOwned):
		notFound(c, "Hostel allotment not found for this student")
		return
	case errors.Is(err, errAllotmentUnpaid):
		badRequest(c, "Only approved allotments can be paid for")
		return
	case errors.Is(err, errAllotmentPaid):
		badRequest(c, "Hostel allotment already paid")
		return
	case err != nil:
		serverError(c, p.Log, "pay hostel fee", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Hostel allotment paid successfully", "allotment": allotment, "payment": payment})
}

// ListPayments returns the caller's payment history with each payment's
// settled record attached.
func (p *PaymentController) ListPayments(c *gin.Context) {
	db := p.DB.WithContext(c.Request.Context())
	var payments []models.Payment
	if err := db.Where("student_id = ?", currentUser(c).ID).Order("created_at DESC").Find(&payments).Error; err != nil {
		serverError(c, p.Log, "list payments", err)
		return
	}

	out := make([]gin.H, 0, len(payments))
	for _, pay := range payments {
		ref, err := resolveReference(db, pay.Ref())
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			serverError(c, p.Log, "list payments: resolve reference", err)
			return
		}
		// a deleted fine leaves its payment with a nil reference
		if err != nil {
			ref = nil
		}
		out = append(out, gin.H{"payment": pay, "reference": ref})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}
