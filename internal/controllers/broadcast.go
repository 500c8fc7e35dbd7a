package controllers

import (
	"time"

	"github.com/zaqqye/college_portal_backend/internal/models"
	"github.com/zaqqye/college_portal_backend/internal/ws"
)

func broadcastGatepassStatus(hubs *ws.Hubs, gp models.Gatepass) {
	hubs.NotifyStudent(gp.StudentID, ws.Event{
		Type:    ws.EventGatepassUpdated,
		ID:      gp.ID,
		Status:  string(gp.Status),
		Message: gp.RejectionReason,
		At:      time.Now(),
	})
}

// broadcastGatepassPending tells warden dashboards a guardian has signed off.
func broadcastGatepassPending(hubs *ws.Hubs, gp models.Gatepass, studentName string) {
	hubs.NotifyWardens(ws.Event{
		Type:    ws.EventGatepassPendingWarden,
		ID:      gp.ID,
		Status:  string(gp.Status),
		Student: studentName,
		Message: gp.Reason,
		At:      time.Now(),
	})
}

func broadcastAllotmentApplied(hubs *ws.Hubs, a models.HostelAllotment, studentName, roomNumber string) {
	hubs.NotifyWardens(ws.Event{
		Type:    ws.EventAllotmentApplied,
		ID:      a.ID,
		Status:  string(a.Status),
		Student: studentName,
		Message: "Room " + roomNumber,
		At:      a.AppliedAt,
	})
}

func broadcastAllotmentStatus(hubs *ws.Hubs, a models.HostelAllotment) {
	hubs.NotifyStudent(a.StudentID, ws.Event{
		Type:    ws.EventAllotmentUpdated,
		ID:      a.ID,
		Status:  string(a.Status),
		Message: a.RejectionReason,
		At:      time.Now(),
	})
}
