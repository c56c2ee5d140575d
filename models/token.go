package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// TokenResponse is returned by the basic-auth token route
type TokenResponse struct {
	Token string             `json:"token"`
	ID    primitive.ObjectID `json:"_id"`
	Role  Role               `json:"role"`
}

// StatusUpdateRequest is the body of PUT /reports/{id}/status
type StatusUpdateRequest struct {
	Status Status `json:"status"`
}

// StatusUpdateResponse reports what a status transition did
type StatusUpdateResponse struct {
	Message      string  `json:"message"`
	PointsChange int     `json:"pointsChange"`
	Deleted      bool    `json:"deleted"`
	Report       *Report `json:"report,omitempty"`
}

// CreateReportResponse is returned when a report is stored
type CreateReportResponse struct {
	Message       string   `json:"message"`
	ReportID      string   `json:"reportId"`
	Status        Status   `json:"status"`
	PointsAwarded int      `json:"pointsAwarded"`
	Reasoning     []string `json:"reasoning,omitempty"`
	Report        *Report  `json:"report"`
}
