package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/lifecycle"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// multipartOverhead is the room left for the text fields of a report form
const multipartOverhead = 1 << 20

// Report handles report-related requests
type Report struct {
	Engine         *lifecycle.Engine
	RDB            databases.ReportDatabase
	UDB            databases.UserDatabase
	MaxUploadBytes int64
}

// CreateReportHandler accepts a multipart report submission
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, re.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(re.MaxUploadBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, models.NewValidationError("image", "image is larger than the upload limit"), "failed to create report")
			return
		}
		config.ErrorStatus("failed to parse multipart form", http.StatusBadRequest, w, err)
		return
	}

	draft, err := draftFromForm(r)
	if err != nil {
		writeError(w, err, "failed to create report")
		return
	}
	image, err := readUpload(r, "image", re.MaxUploadBytes)
	if err != nil {
		writeError(w, err, "failed to read image")
		return
	}

	created, err := re.Engine.Submit(r.Context(), actor, lifecycle.Submission{Draft: draft, Image: image})
	if err != nil {
		writeError(w, err, "failed to create report")
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateReportResponse{
		Message:       created.Message,
		ReportID:      created.Report.ID.Hex(),
		Status:        created.Report.Status,
		PointsAwarded: created.Report.PointsAwarded,
		Reasoning:     created.Reasoning,
		Report:        created.Report,
	})
}

// draftFromForm reads the text fields of a report form. location is a JSON
// object of lat and lng; locationText is a free text address.
func draftFromForm(r *http.Request) (models.ReportDraft, error) {
	draft := models.ReportDraft{
		BreedingType: models.BreedingType(strings.TrimSpace(r.FormValue("breedingType"))),
		Severity:     models.Severity(strings.TrimSpace(r.FormValue("severity"))),
		Description:  strings.TrimSpace(r.FormValue("description")),
	}
	if raw := strings.TrimSpace(r.FormValue("location")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.Location); err != nil {
			return draft, models.NewValidationError("location", "Invalid coordinates. Ensure lat is -90..90 and lng is -180..180")
		}
	}
	if text := strings.TrimSpace(r.FormValue("locationText")); text != "" {
		draft.Location.Address = text
	}
	return draft, nil
}

// readUpload returns the bytes of a form file, or nil when it was not sent.
// At most limit+1 bytes are read so that oversize files can be reported.
func readUpload(r *http.Request, field string, limit int64) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, limit+1))
}

// ReportsHandler returns the feed, newest first, joined with each owner's
// name and email. ?limit and ?page select a page, clamped to
// databases.MaxPageSize and databases.MaxPage.
func (re Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	var (
		reports []models.Report
		err     error
	)
	if limit, lerr := strconv.Atoi(r.URL.Query().Get("limit")); lerr == nil && limit > 0 {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, page = databases.ClampPage(limit, page)
		reports, err = re.RDB.FindPage(r.Context(), limit, page)
	} else {
		reports, err = re.RDB.FindAll(r.Context())
	}
	if err != nil {
		writeError(w, err, "failed to get reports")
		return
	}

	feed, err := re.withOwners(r, reports)
	if err != nil {
		writeError(w, err, "failed to get report owners")
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// MyReportsHandler returns the caller's own reports, newest first
func (re Report) MyReportsHandler(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFrom(r.Context())
	if actor == nil {
		writeError(w, models.ErrUnauthorized, "not authorized")
		return
	}
	reports, err := re.RDB.FindByOwner(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err, "failed to get reports")
		return
	}
	feed, err := re.withOwners(r, reports)
	if err != nil {
		writeError(w, err, "failed to get report owners")
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// ReportByIDHandler returns a single report
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	report, err := re.RDB.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Report not found")
		return
	}
	feed, err := re.withOwners(r, []models.Report{*report})
	if err != nil {
		writeError(w, err, "failed to get report owner")
		return
	}
	writeJSON(w, http.StatusOK, feed[0])
}

// DeleteReportHandler lets an owner delete their report
func (re Report) DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	deleted, err := re.Engine.Delete(r.Context(), api.ActorFrom(r.Context()), id)
	if err != nil {
		msg := "failed to delete report"
		if errors.Is(err, models.ErrForbidden) {
			msg = "Not authorized to delete this report"
		}
		writeError(w, err, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Report deleted successfully",
		"pointsChange": deleted.PointsChange,
	})
}

// UpdateStatusHandler moves a report through the triage state machine
func (re Report) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := reportID(w, r)
	if !ok {
		return
	}
	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Status = models.Status(strings.ToUpper(strings.TrimSpace(string(req.Status))))
	if req.Status == "" {
		writeError(w, models.NewValidationError("status", "status is required"), "failed to update status")
		return
	}

	out, err := re.Engine.Transition(r.Context(), api.ActorFrom(r.Context()), id, req.Status)
	if err != nil {
		writeError(w, err, "failed to update status")
		return
	}
	writeJSON(w, http.StatusOK, models.StatusUpdateResponse{
		Message:      out.Plan.Message(),
		PointsChange: out.Plan.Delta,
		Deleted:      out.Deleted,
		Report:       out.Report,
	})
}

func (re Report) withOwners(r *http.Request, reports []models.Report) ([]models.ReportWithOwner, error) {
	seen := map[primitive.ObjectID]bool{}
	ids := make([]primitive.ObjectID, 0, len(reports))
	for _, rep := range reports {
		if !seen[rep.UserID] {
			seen[rep.UserID] = true
			ids = append(ids, rep.UserID)
		}
	}
	owners, err := re.UDB.FindByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}

	feed := make([]models.ReportWithOwner, 0, len(reports))
	for _, rep := range reports {
		item := models.ReportWithOwner{Report: rep}
		if owner, ok := owners[rep.UserID]; ok {
			owner.Points = 0
			item.Owner = &owner
		} else {
			zap.S().Debugw("report owner missing", "reportId", rep.ID.Hex(), "userId", rep.UserID.Hex())
		}
		feed = append(feed, item)
	}
	return feed, nil
}

// reportID parses the {id} route variable, answering 404 when malformed
func reportID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		config.ErrorStatus("Report not found", http.StatusNotFound, w, nil)
		return primitive.NilObjectID, false
	}
	return id, true
}
