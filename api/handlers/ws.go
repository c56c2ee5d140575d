package handlers

import (
	"net/http"

	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/models"
	"github.com/mosquitoalert/mosquito-alert-api/notify"
)

// Feed upgrades authenticated clients to the live report event stream
type Feed struct {
	Hub *notify.Hub
}

// ReportFeedHandler serves /ws/reports
func (f Feed) ReportFeedHandler(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFrom(r.Context())
	if actor == nil {
		writeError(w, models.ErrUnauthorized, "not authorized")
		return
	}
	f.Hub.Serve(w, r, actor.ID.Hex())
}
