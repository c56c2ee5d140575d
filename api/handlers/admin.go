package handlers

import (
	"errors"
	"net/http"

	"github.com/mosquitoalert/mosquito-alert-api/access"
	"github.com/mosquitoalert/mosquito-alert-api/analytics"
	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// LeaderboardSize is how many reporters the leaderboard shows
const LeaderboardSize = 10

// Admin represents the admin handler
type Admin struct {
	Analytics *analytics.Service
	UDB       databases.UserDatabase
}

// authorize writes the error response and returns false when the caller may
// not perform action
func authorize(w http.ResponseWriter, r *http.Request, action access.Action) bool {
	if err := access.Authorize(api.ActorFrom(r.Context()), action, nil); err != nil {
		msg := "Access denied. Admin only."
		if errors.Is(err, models.ErrUnauthorized) {
			msg = "not authorized"
		}
		writeError(w, err, msg)
		return false
	}
	return true
}

// OverviewHandler returns report totals per status
func (h Admin) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewAnalytics) {
		return
	}
	overview, err := h.Analytics.Overview(r.Context())
	if err != nil {
		writeError(w, err, "Server error fetching overview")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// WeeklyReportsHandler returns daily report counts for the last seven days
func (h Admin) WeeklyReportsHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewAnalytics) {
		return
	}
	counts, err := h.Analytics.Weekly(r.Context())
	if err != nil {
		writeError(w, err, "Server error fetching weekly reports")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// BreedingDistributionHandler returns report counts per breeding type
func (h Admin) BreedingDistributionHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewAnalytics) {
		return
	}
	slices, err := h.Analytics.Distribution(r.Context())
	if err != nil {
		writeError(w, err, "Server error fetching breeding distribution")
		return
	}
	writeJSON(w, http.StatusOK, slices)
}

// AreaRiskHandler returns the busiest areas with their risk level
func (h Admin) AreaRiskHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewAnalytics) {
		return
	}
	areas, err := h.Analytics.AreaRisk(r.Context())
	if err != nil {
		writeError(w, err, "Server error fetching area risk")
		return
	}
	writeJSON(w, http.StatusOK, areas)
}

// LeaderboardHandler returns the top reporters by points
func (h Admin) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewLeaderboard) {
		return
	}
	top, err := h.UDB.TopByPoints(r.Context(), LeaderboardSize)
	if err != nil {
		writeError(w, err, "Server error fetching leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// UsersHandler lists every account without password hashes
func (h Admin) UsersHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ListAccounts) {
		return
	}
	users, err := h.UDB.List(r.Context())
	if err != nil {
		writeError(w, err, "Server error fetching users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// MetricsHandler returns per route request metrics
func (h Admin) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, access.ViewAnalytics) {
		return
	}
	writeJSON(w, http.StatusOK, api.GetMetrics().GetSummary())
}
