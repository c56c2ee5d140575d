// Package docs Mosquito Alert API.
//
// Documentation of the Mosquito Alert reporting API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//     - multipart/form-data
//
//     Produces:
//     - application/json
//
//     Security:
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api. true means it is alive, false means it is not.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// An error. Validation errors also name the offending field.
// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}

// swagger:route POST /api/auth/signup auth signup
// Creates a reporter account and returns a bearer token.
// responses:
//   201: authResponse
//   400: errorResponse

// swagger:route POST /api/auth/login auth login
// Exchanges email and password for a bearer token.
// responses:
//   200: authResponse
//   401: errorResponse

// swagger:parameters signup
type signupParams struct {
	// in:body
	Body models.SignupRequest
}

// swagger:parameters login
type loginParams struct {
	// in:body
	Body models.LoginRequest
}

// The account and its bearer token.
// swagger:response authResponse
type authResponseWrapper struct {
	// in:body
	Body models.AuthResponse
}

// swagger:route POST /api/auth/token auth token
// Issues a bearer token for basic auth credentials.
// security:
//   basic:
// responses:
//   200: tokenResponse
//   401: errorResponse

// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body models.TokenResponse
}

// swagger:route POST /api/reports reports createReport
// Submits a report with an image. Under the ai-gated policy the image is
// classified first and only a valid image is stored.
// responses:
//   201: createReportResponse
//   400: errorResponse
//   401: errorResponse

// swagger:parameters createReport validateImage
type imageParams struct {
	// in:formData
	// swagger:file
	Image interface{} `json:"image"`
}

// swagger:response createReportResponse
type createReportResponseWrapper struct {
	// in:body
	Body models.CreateReportResponse
}

// swagger:route GET /api/reports reports listReports
// Lists reports newest first, each joined with its owner.
// responses:
//   200: reportsResponse

// swagger:route GET /api/reports/my-reports reports myReports
// Lists the caller's own reports.
// responses:
//   200: reportsResponse

// swagger:response reportsResponse
type reportsResponseWrapper struct {
	// in:body
	Body []models.ReportWithOwner
}

// swagger:route GET /api/reports/{id} reports reportByID
// Gets a single report by ID.
// responses:
//   200: reportResponse
//   404: errorResponse

// swagger:parameters reportByID deleteReport updateStatus
type reportIDParam struct {
	// in:path
	ID string `json:"id"`
}

// swagger:response reportResponse
type reportResponseWrapper struct {
	// in:body
	Body models.ReportWithOwner
}

// swagger:route PUT /api/reports/{id}/status reports updateStatus
// Moves a report through its lifecycle and settles the owner's points.
// responses:
//   200: statusUpdateResponse
//   403: errorResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters updateStatus
type statusParams struct {
	// in:body
	Body models.StatusUpdateRequest
}

// swagger:response statusUpdateResponse
type statusUpdateResponseWrapper struct {
	// in:body
	Body models.StatusUpdateResponse
}

// swagger:route DELETE /api/reports/{id} reports deleteReport
// Deletes a report and reverses any points it earned.
// responses:
//   200: statusUpdateResponse
//   403: errorResponse
//   404: errorResponse

// swagger:route POST /api/ai/validate-image ai validateImage
// Classifies an image without storing anything.
// responses:
//   200: classificationResponse
//   400: errorResponse

// swagger:response classificationResponse
type classificationResponseWrapper struct {
	// in:body
	Body classifier.Result
}

// swagger:route GET /api/admin/analytics/overview admin overview
// Report and user totals.
// responses:
//   200: overviewResponse
//   403: errorResponse

// swagger:response overviewResponse
type overviewResponseWrapper struct {
	// in:body
	Body models.Overview
}

// swagger:route GET /api/admin/analytics/area-risk admin areaRisk
// Locations ranked by risk score.
// responses:
//   200: areaRiskResponse
//   403: errorResponse

// swagger:response areaRiskResponse
type areaRiskResponseWrapper struct {
	// in:body
	Body []models.AreaRisk
}

// swagger:route GET /api/admin/leaderboard admin leaderboard
// Top reporters by points.
// responses:
//   200: leaderboardResponse

// swagger:response leaderboardResponse
type leaderboardResponseWrapper struct {
	// in:body
	Body []models.AccountSummary
}

// swagger:route GET /api/admin/metrics admin metrics
// Per route request metrics.
// responses:
//   200: metricsResponse
//   403: errorResponse

// swagger:response metricsResponse
type metricsResponseWrapper struct {
	// in:body
	Body api.MetricsSummary
}
