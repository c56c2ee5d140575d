package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportEventType names what happened to a report
type ReportEventType string

// Report event types
const (
	ReportCreated       ReportEventType = "report.created"
	ReportStatusChanged ReportEventType = "report.status_changed"
	ReportDeleted       ReportEventType = "report.deleted"
)

// ReportEvent is published after a report change has been committed
type ReportEvent struct {
	Type         ReportEventType    `json:"type"`
	ReportID     primitive.ObjectID `json:"reportId"`
	OwnerID      primitive.ObjectID `json:"ownerId"`
	From         Status             `json:"from,omitempty"`
	Status       Status             `json:"status,omitempty"`
	PointsChange int                `json:"pointsChange"`
	At           time.Time          `json:"at"`
}
