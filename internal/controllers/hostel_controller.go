package controllers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zaqqye/college_portal_backend/internal/database"
	"github.com/zaqqye/college_portal_backend/internal/logging"
	"github.com/zaqqye/college_portal_backend/internal/mailer"
	"github.com/zaqqye/college_portal_backend/internal/middleware"
	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/ws"
)

var (
	errAllotmentNotFound  = errors.New("allotment not found")
	errAllotmentProcessed = errors.New("allotment already processed")
	errRoomGone           = errors.New("room is no longer available")
	errRoomFull           = errors.New("room is full")
)

const defaultAllotmentRejection = "Application rejected"

// HostelController owns the room inventory and the allotment workflow.
// RoomsCache backs the cached available-rooms listing and is invalidated on
// every write that can change it.
type HostelController struct {
	DB         *gorm.DB
	Mailer     *mailer.Mailer
	Log        logging.Logger
	Hubs       *ws.Hubs
	RoomsCache *middleware.ResponseCache
}

type applyHostelRequest struct {
	RoomID string `json:"roomId"`
}

type roomRequest struct {
	RoomNumber       FlexibleString `json:"roomNumber"`
	Capacity         FlexibleInt    `json:"capacity"`
	Floor            FlexibleInt    `json:"floor"`
	Block            *string        `json:"block"`
	Amenities        *[]string      `json:"amenities"`
	CurrentOccupancy FlexibleInt    `json:"currentOccupancy"`
}

type allotmentDecisionRequest struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason"`
}

func (h *HostelController) invalidateRooms() {
	h.RoomsCache.Invalidate()
}

// ListAvailableRooms returns rooms with free beds, lowest floor first.
func (h *HostelController) ListAvailableRooms(c *gin.Context) {
	var rooms []models.HostelRoom
	err := h.DB.WithContext(c.Request.Context()).
		Where("current_occupancy < capacity").
		Order("floor ASC").Order("room_number ASC").
		Find(&rooms).Error
	if err != nil {
		serverError(c, h.Log, "list available rooms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *HostelController) ApplyForRoom(c *gin.Context) {
	var req applyHostelRequest
	if !bindJSON(c, &req) {
		return
	}
	roomID := strings.TrimSpace(req.RoomID)
	if roomID == "" {
		badRequest(c, "Please provide room ID")
		return
	}

	ctx := c.Request.Context()
	student := currentUser(c)

	var existing models.HostelAllotment
	err := h.DB.WithContext(ctx).Preload("Room").Where("student_id = ?", student.ID).First(&existing).Error
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message":   "You already have a hostel allotment application",
			"allotment": existing,
		})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		serverError(c, h.Log, "apply hostel: existing lookup", err)
		return
	}

	var room models.HostelRoom
	if err := h.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Room not found")
			return
		}
		serverError(c, h.Log, "apply hostel: room lookup", err)
		return
	}
	if !room.IsAvailable || !room.HasSpace() {
		badRequest(c, "Room is not available")
		return
	}

	allotment := models.HostelAllotment{StudentID: student.ID, RoomID: room.ID}
	if err := h.DB.WithContext(ctx).Create(&allotment).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "You already have a hostel allotment application"})
			return
		}
		serverError(c, h.Log, "apply hostel: create", err)
		return
	}
	allotment.Room = &room

	broadcastAllotmentApplied(h.Hubs, allotment, student.Name, room.RoomNumber)
	c.JSON(http.StatusCreated, gin.H{"message": "Hostel application submitted successfully", "allotment": allotment})
}

func (h *HostelController) MyAllotment(c *gin.Context) {
	var allotment models.HostelAllotment
	err := h.DB.WithContext(c.Request.Context()).
		Preload("Room").
		Where("student_id = ?", currentUser(c).ID).
		First(&allotment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusOK, gin.H{"allotment": nil})
		return
	}
	if err != nil {
		serverError(c, h.Log, "my allotment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allotment": allotment})
}

func (h *HostelController) ListRooms(c *gin.Context) {
	p := parsePaging(c)
	base := h.DB.WithContext(c.Request.Context()).Model(&models.HostelRoom{})
	if block := strings.TrimSpace(c.Query("block")); block != "" {
		base = base.Where("block = ?", block)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, h.Log, "list rooms: count", err)
		return
	}
	var rooms []models.HostelRoom
	if err := p.apply(base.Order("block ASC").Order("room_number ASC")).Find(&rooms).Error; err != nil {
		serverError(c, h.Log, "list rooms", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "meta": p.meta(total)})
}

func (h *HostelController) AddRoom(c *gin.Context) {
	var req roomRequest
	if !bindJSON(c, &req) {
		return
	}
	number := req.RoomNumber.String()
	if number == "" || !req.Capacity.Set || !req.Floor.Set || req.Block == nil || strings.TrimSpace(*req.Block) == "" {
		badRequest(c, "Please provide all required fields")
		return
	}
	if req.Capacity.Value < 1 {
		badRequest(c, "Capacity must be at least 1")
		return
	}

	ctx := c.Request.Context()
	var count int64
	if err := h.DB.WithContext(ctx).Model(&models.HostelRoom{}).Where("room_number = ?", number).Count(&count).Error; err != nil {
		serverError(c, h.Log, "add room: lookup", err)
		return
	}
	if count > 0 {
		badRequest(c, "Room number already exists")
		return
	}

	room := models.HostelRoom{
		RoomNumber: number,
		Capacity:   req.Capacity.Value,
		Floor:      req.Floor.Value,
		Block:      strings.TrimSpace(*req.Block),
		Amenities:  []string{},
	}
	if req.Amenities != nil {
		room.Amenities = *req.Amenities
	}
	if err := h.DB.WithContext(ctx).Create(&room).Error; err != nil {
		if database.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Room number already exists"})
			return
		}
		serverError(c, h.Log, "add room: create", err)
		return
	}
	h.invalidateRooms()
	c.JSON(http.StatusCreated, gin.H{"message": "Room added successfully", "room": room})
}

func (h *HostelController) UpdateRoom(c *gin.Context) {
	var req roomRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	var room models.HostelRoom
	if err := h.DB.WithContext(ctx).Where("id = ?", c.Param("id")).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Room not found")
			return
		}
		serverError(c, h.Log, "update room: lookup", err)
		return
	}

	if req.Capacity.Set {
		if req.Capacity.Value < 1 {
			badRequest(c, "Capacity must be at least 1")
			return
		}
		room.Capacity = req.Capacity.Value
	}
	if req.Floor.Set {
		room.Floor = req.Floor.Value
	}
	if req.Block != nil && strings.TrimSpace(*req.Block) != "" {
		room.Block = strings.TrimSpace(*req.Block)
	}
	if req.Amenities != nil {
		room.Amenities = *req.Amenities
	}
	if req.CurrentOccupancy.Set {
		if req.CurrentOccupancy.Value < 0 {
			badRequest(c, "Occupancy cannot be negative")
			return
		}
		room.CurrentOccupancy = req.CurrentOccupancy.Value
	}
	if room.CurrentOccupancy > room.Capacity {
		if req.CurrentOccupancy.Set {
			badRequest(c, "Occupancy cannot exceed capacity")
		} else {
			badRequest(c, "Capacity cannot be lower than current occupancy")
		}
		return
	}

	if err := h.DB.WithContext(ctx).Save(&room).Error; err != nil {
		serverError(c, h.Log, "update room: save", err)
		return
	}
	h.invalidateRooms()
	c.JSON(http.StatusOK, gin.H{"message": "Room updated successfully", "room": room})
}

func (h *HostelController) DeleteRoom(c *gin.Context) {
	ctx := c.Request.Context()
	var room models.HostelRoom
	if err := h.DB.WithContext(ctx).Where("id = ?", c.Param("id")).First(&room).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			notFound(c, "Room not found")
			return
		}
		serverError(c, h.Log, "delete room: lookup", err)
		return
	}

	var active int64
	err := h.DB.WithContext(ctx).Model(&models.HostelAllotment{}).
		Where("room_id = ? AND status = ?", room.ID, models.AllotmentApproved).
		Count(&active).Error
	if err != nil {
		serverError(c, h.Log, "delete room: allotment count", err)
		return
	}
	if active > 0 {
		badRequest(c, "Cannot delete room with active allotments")
		return
	}

	if err := h.DB.WithContext(ctx).Delete(&room).Error; err != nil {
		serverError(c, h.Log, "delete room", err)
		return
	}
	h.invalidateRooms()
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

func (h *HostelController) ListAllotments(c *gin.Context) {
	p := parsePaging(c)
	base := h.DB.WithContext(c.Request.Context()).Model(&models.HostelAllotment{})
	if status := strings.ToLower(strings.TrimSpace(c.Query("status"))); status != "" {
		base = base.Where("status = ?", status)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		serverError(c, h.Log, "list allotments: count", err)
		return
	}
	var allotments []models.HostelAllotment
	q := base.
		Preload("Student", summarySelect).
		Preload("Room").
		Preload("Approver", summarySelect).
		Order("created_at DESC")
	if err := p.apply(q).Find(&allotments).Error; err != nil {
		serverError(c, h.Log, "list allotments", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allotments": allotments, "meta": p.meta(total)})
}

// DecideAllotment approves or rejects a pending application. Approval takes a
// bed with a conditional increment so two wardens approving into the last bed
// cannot both succeed.
func (h *HostelController) DecideAllotment(c *gin.Context) {
	var req allotmentDecisionRequest
	if !bindJSON(c, &req) {
		return
	}
	status := models.AllotmentStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if status != models.AllotmentApproved && status != models.AllotmentRejected {
		badRequest(c, "Please provide a valid status")
		return
	}

	ctx := c.Request.Context()
	warden := currentUser(c)
	var allotment models.HostelAllotment
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", c.Param("id")).First(&allotment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAllotmentNotFound
			}
			return err
		}
		if allotment.Status != models.AllotmentPending {
			return errAllotmentProcessed
		}

		now := time.Now()
		if status == models.AllotmentRejected {
			reason := strings.TrimSpace(req.RejectionReason)
			if reason == "" {
				reason = defaultAllotmentRejection
			}
			allotment.Status = models.AllotmentRejected
			allotment.RejectionReason = reason
			return tx.Model(&allotment).
				Where("status = ?", models.AllotmentPending).
				Updates(map[string]any{"status": allotment.Status, "rejection_reason": reason}).Error
		}

		var room models.HostelRoom
		if err := tx.Where("id = ?", allotment.RoomID).First(&room).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errRoomGone
			}
			return err
		}
		if !room.IsAvailable {
			return errRoomGone
		}
		res := tx.Model(&models.HostelRoom{}).
			Where("id = ? AND current_occupancy < capacity", room.ID).
			UpdateColumn("current_occupancy", gorm.Expr("current_occupancy + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRoomFull
		}
		// reload and save so BeforeSave recomputes availability
		if err := tx.Where("id = ?", room.ID).First(&room).Error; err != nil {
			return err
		}
		if err := tx.Save(&room).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", allotment.StudentID).Update("hostel_room_id", room.ID).Error; err != nil {
			return err
		}
		allotment.Status = models.AllotmentApproved
		allotment.ApprovedBy = &warden.ID
		allotment.ApprovedAt = &now
		allotment.Room = &room
		return tx.Model(&models.HostelAllotment{}).Where("id = ?", allotment.ID).
			Updates(map[string]any{"status": allotment.Status, "approved_by": warden.ID, "approved_at": now}).Error
	})
	switch {
	case errors.Is(err, errAllotmentNotFound):
		notFound(c, "Allotment not found")
		return
	case errors.Is(err, errAllotmentProcessed):
		badRequest(c, "Allotment already processed")
		return
	case errors.Is(err, errRoomGone):
		badRequest(c, "Room is no longer available")
		return
	case errors.Is(err, errRoomFull):
		badRequest(c, "Room is full")
		return
	case err != nil:
		serverError(c, h.Log, "decide allotment", err)
		return
	}
	h.invalidateRooms()

	h.notifyAllotmentDecision(c, allotment)
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Allotment %s successfully", allotment.Status), "allotment": allotment})
}

func (h *HostelController) notifyAllotmentDecision(c *gin.Context, allotment models.HostelAllotment) {
	broadcastAllotmentStatus(h.Hubs, allotment)

	var student models.User
	if err := h.DB.WithContext(c.Request.Context()).Where("id = ?", allotment.StudentID).First(&student).Error; err != nil {
		h.Log.Warn(c.Request.Context(), "allotment email skipped, student lookup failed", "allotment_id", allotment.ID, "error", err)
		return
	}
	details := mailer.AllotmentDetails{
		StudentName: student.Name,
		Status:      string(allotment.Status),
		Reason:      allotment.RejectionReason,
	}
	if allotment.Room != nil {
		details.RoomNumber = allotment.Room.RoomNumber
		details.Block = allotment.Room.Block
		details.Floor = allotment.Room.Floor
	}
	h.Mailer.SendAsync(mailer.AllotmentDecisionMessage(student.Email, details))
}

type roomImportError struct {
	Row        int    `json:"row"`
	RoomNumber string `json:"roomNumber,omitempty"`
	Error      string `json:"error"`
}

// ImportRooms bulk-creates rooms from an uploaded CSV with the columns
// room_number, capacity, floor, block and an optional amenities list
// separated by "|".
func (h *HostelController) ImportRooms(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(10 << 20); err != nil {
		badRequest(c, "Failed to parse form")
		return
	}
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		badRequest(c, "File is required")
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(fileHeader.Filename)), ".csv") {
		badRequest(c, "Only .csv files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(c, "Failed to read file")
		return
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	data = bytes.ReplaceAll(data, []byte{'\r', '\n'}, []byte{'\n'})
	if len(bytes.TrimSpace(data)) == 0 {
		badRequest(c, "File is empty")
		return
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		badRequest(c, "Failed to read header")
		return
	}
	headerIdx := make(map[string]int, len(header))
	for idx, col := range header {
		headerIdx[strings.ToLower(strings.Trim(strings.TrimSpace(col), "\"'"))] = idx
	}
	for _, key := range []string{"room_number", "capacity", "floor", "block"} {
		if _, ok := headerIdx[key]; !ok {
			badRequest(c, fmt.Sprintf("Missing header column: %s", key))
			return
		}
	}
	getVal := func(record []string, key string) string {
		idx, ok := headerIdx[key]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	ctx := c.Request.Context()
	var (
		totalRows int
		created   int
		failures  []roomImportError
	)
	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			failures = append(failures, roomImportError{Row: rowNum, Error: fmt.Sprintf("failed to read row: %v", err)})
			continue
		}
		totalRows++

		number := getVal(row, "room_number")
		capacity, capErr := strconv.Atoi(getVal(row, "capacity"))
		floor, floorErr := strconv.Atoi(getVal(row, "floor"))
		block := getVal(row, "block")
		switch {
		case number == "" || block == "":
			failures = append(failures, roomImportError{Row: rowNum, RoomNumber: number, Error: "room_number and block are required"})
			continue
		case capErr != nil || capacity < 1:
			failures = append(failures, roomImportError{Row: rowNum, RoomNumber: number, Error: "capacity must be a positive integer"})
			continue
		case floorErr != nil:
			failures = append(failures, roomImportError{Row: rowNum, RoomNumber: number, Error: "floor must be an integer"})
			continue
		}

		amenities := []string{}
		for _, a := range strings.Split(getVal(row, "amenities"), "|") {
			if a = strings.TrimSpace(a); a != "" {
				amenities = append(amenities, a)
			}
		}
		room := models.HostelRoom{RoomNumber: number, Capacity: capacity, Floor: floor, Block: block, Amenities: amenities}
		if err := h.DB.WithContext(ctx).Create(&room).Error; err != nil {
			msg := "failed to create room"
			if database.IsUniqueViolation(err) {
				msg = "room number already exists"
			} else {
				h.Log.Error(ctx, "import rooms: create", "row", rowNum, "error", err)
			}
			failures = append(failures, roomImportError{Row: rowNum, RoomNumber: number, Error: msg})
			continue
		}
		created++
	}
	if created > 0 {
		h.invalidateRooms()
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Imported %d of %d rooms", created, totalRows),
		"total":    totalRows,
		"created":  created,
		"failed":   len(failures),
		"failures": failures,
	})
}
