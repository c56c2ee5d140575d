package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the triage state of a report
type Status string

// Report statuses
const (
	StatusPending    Status = "PENDING"
	StatusValid      Status = "VALID"
	StatusInvalid    Status = "INVALID"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCleared    Status = "CLEARED"
)

// Statuses lists every status a report may carry
var Statuses = []Status{StatusPending, StatusValid, StatusInvalid, StatusInProgress, StatusCleared}

// IsKnown reports whether s is one of the five report statuses
func (s Status) IsKnown() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// BreedingType is the kind of breeding site shown in the photo
type BreedingType string

// Breeding types
const (
	BreedingStandingWater BreedingType = "Standing Water"
	BreedingTrash         BreedingType = "Trash"
	BreedingDrain         BreedingType = "Drain"
)

// Severity is the reporter's estimate of how bad the site is
type Severity string

// Severities
const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

// Location holds coordinates and/or a free text address. Coordinates are
// pointers so that 0,0 can be told apart from "not given".
type Location struct {
	Lat     *float64 `bson:"lat,omitempty" json:"lat,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Lng     *float64 `bson:"lng,omitempty" json:"lng,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address string   `bson:"address,omitempty" json:"address,omitempty"`
}

// HasCoordinates is true when both lat and lng are set
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

// IsEmpty is true when neither coordinates nor an address were given
func (l Location) IsEmpty() bool {
	return !l.HasCoordinates() && l.Address == ""
}

// Report represents a mosquito breeding site report
type Report struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	Location      Location           `bson:"location" json:"location"`
	LocationText  string             `bson:"locationText,omitempty" json:"locationText,omitempty"`
	BreedingType  BreedingType       `bson:"breedingType" json:"breedingType"`
	Severity      Severity           `bson:"severity" json:"severity"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	ImagePath     string             `bson:"imagePath" json:"imagePath"`
	ImageKey      string             `bson:"imageKey,omitempty" json:"-"`
	Status        Status             `bson:"status" json:"status"`
	PointsAwarded int                `bson:"pointsAwarded" json:"pointsAwarded"`
	AIVerdict     string             `bson:"aiVerdict,omitempty" json:"aiVerdict,omitempty"`
	AIConfidence  int                `bson:"aiConfidence,omitempty" json:"aiConfidence,omitempty"`
	AIFallback    bool               `bson:"aiFallback,omitempty" json:"aiFallback,omitempty"`
	CreatedAt     time.Time          `bson:"date" json:"date"`
	UpdatedAt     time.Time          `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ReportState is what a status write is conditioned on. A write only lands
// when the stored report still matches the state it was planned from.
type ReportState struct {
	Status        Status
	PointsAwarded int
}

// State returns the report's current ReportState
func (r Report) State() ReportState {
	return ReportState{Status: r.Status, PointsAwarded: r.PointsAwarded}
}

// ReportDraft is what a reporter submits, before an image reference, status
// or points are attached
type ReportDraft struct {
	Location     Location
	BreedingType BreedingType `validate:"required,oneof='Standing Water' Trash Drain"`
	Severity     Severity     `validate:"required,oneof=Low Medium High"`
	Description  string       `validate:"max=2000"`
}

// ReportWithOwner is a report joined with its owner's public fields, as
// served to the feed
type ReportWithOwner struct {
	Report `bson:",inline"`
	Owner  *AccountSummary `bson:"owner,omitempty" json:"owner,omitempty"`
}
