// Package access decides whether an actor may perform an action on a report.
package access

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Action names something an actor wants to do
type Action string

// Actions
const (
	CreateReport     Action = "report:create"
	DeleteReport     Action = "report:delete"
	TransitionStatus Action = "report:transition"
	ViewReports      Action = "report:view"
	ViewLeaderboard  Action = "leaderboard:view"
	ViewAnalytics    Action = "analytics:view"
	ListAccounts     Action = "accounts:list"
)

// Actor is the authenticated caller
type Actor struct {
	ID    primitive.ObjectID
	Name  string
	Email string
	Role  models.Role
}

// IsAdmin reports whether the actor has the admin role
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == models.RoleAdmin
}

// Authorize returns nil when actor may perform action on report. report is
// only consulted for ownership checks and may be nil otherwise. A nil actor
// is always models.ErrUnauthorized.
func Authorize(actor *Actor, action Action, report *models.Report) error {
	if actor == nil || actor.ID.IsZero() {
		return models.ErrUnauthorized
	}

	switch action {
	case CreateReport:
		if actor.Role != models.RoleUser {
			return fmt.Errorf("only reporters create reports: %w", models.ErrForbidden)
		}
		return nil
	case DeleteReport:
		if report == nil || report.UserID != actor.ID {
			return fmt.Errorf("not authorized to delete this report: %w", models.ErrForbidden)
		}
		return nil
	case TransitionStatus, ViewAnalytics, ListAccounts:
		if !actor.IsAdmin() {
			return fmt.Errorf("admin access required: %w", models.ErrForbidden)
		}
		return nil
	case ViewReports, ViewLeaderboard:
		return nil
	}
	return fmt.Errorf("unknown action %q: %w", action, models.ErrForbidden)
}
