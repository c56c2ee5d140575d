// Package lifecycle owns report creation, status transitions and owner
// deletion, and keeps each report's pointsAwarded in step with the owner's
// ledger balance.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/access"
	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/imagestore"
	"github.com/mosquitoalert/mosquito-alert-api/ledger"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Policy selects how new reports enter the state machine
type Policy string

// Creation policies
const (
	AIGated      Policy = config.PolicyAIGated
	ManualReview Policy = config.PolicyManualReview
)

// Reports is the part of the report store the engine writes through
type Reports interface {
	Create(ctx context.Context, report models.Report) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.ReportState) error
	Delete(ctx context.Context, id primitive.ObjectID, expected models.ReportState) error
}

// Accounts looks up report owners
type Accounts interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
}

// Classifier returns a verdict for an image and never fails
type Classifier interface {
	Classify(ctx context.Context, image []byte) classifier.Result
}

// Publisher receives committed report changes
type Publisher interface {
	Publish(event models.ReportEvent)
}

// Deps are the collaborators an Engine is built from. Classifier is required
// for the ai-gated policy; Images and Publisher are optional.
type Deps struct {
	Reports    Reports
	Accounts   Accounts
	Ledger     *ledger.Ledger
	Transactor databases.Transactor
	Classifier Classifier
	Images     imagestore.Store
	Publisher  Publisher
}

// Engine runs the report lifecycle
type Engine struct {
	Deps
	policy        Policy
	maxImageBytes int64
	now           func() time.Time
}

// New builds an Engine for policy
func New(policy Policy, maxImageBytes int64, deps Deps) (*Engine, error) {
	switch policy {
	case AIGated:
		if deps.Classifier == nil {
			return nil, fmt.Errorf("the %s policy needs a classifier", AIGated)
		}
	case ManualReview:
	default:
		return nil, fmt.Errorf("unknown creation policy %q", policy)
	}
	if deps.Reports == nil || deps.Accounts == nil || deps.Ledger == nil {
		return nil, errors.New("reports, accounts and ledger are required")
	}
	if deps.Transactor == nil {
		deps.Transactor = databases.Sequential{}
	}
	return &Engine{
		Deps:          deps,
		policy:        policy,
		maxImageBytes: maxImageBytes,
		now:           time.Now,
	}, nil
}

// Policy returns the creation policy the engine was built with
func (e *Engine) Policy() Policy {
	return e.policy
}

// Submission is a new report as sent by its owner
type Submission struct {
	Draft models.ReportDraft
	Image []byte
}

// Created is the result of a successful submission
type Created struct {
	Report    *models.Report
	Reasoning []string
	Message   string
}

// Submit validates, classifies (ai-gated) and stores a new report, crediting
// the owner when the report starts out VALID
func (e *Engine) Submit(ctx context.Context, actor *access.Actor, sub Submission) (*Created, error) {
	if err := access.Authorize(actor, access.CreateReport, nil); err != nil {
		return nil, err
	}
	if err := ValidateDraft(sub.Draft); err != nil {
		return nil, err
	}
	img, err := imagestore.Inspect(sub.Image, e.maxImageBytes)
	if err != nil {
		return nil, err
	}
	if _, err := e.owner(ctx, actor.ID); err != nil {
		return nil, err
	}

	report := models.Report{
		UserID:       actor.ID,
		Location:     sub.Draft.Location,
		LocationText: sub.Draft.Location.Address,
		BreedingType: sub.Draft.BreedingType,
		Severity:     sub.Draft.Severity,
		Description:  sub.Draft.Description,
		Status:       models.StatusPending,
		CreatedAt:    e.now().UTC(),
	}
	message := "Report submitted successfully! Awaiting review."

	var reasoning []string
	if e.policy == AIGated {
		verdict := e.Classifier.Classify(ctx, img.Data)
		reasoning = verdict.Reasoning
		report.AIVerdict = verdict.Verdict
		report.AIConfidence = verdict.Confidence
		if !verdict.IsValid {
			return nil, &models.ValidationError{
				Field:   "image",
				Message: "image was not recognised as a mosquito breeding site",
				Details: verdict.Reasoning,
			}
		}
		if verdict.Fallback {
			report.AIFallback = true
			message = "Report submitted for manual review. AI validation was unavailable."
		} else {
			report.Status = models.StatusValid
			report.PointsAwarded = ValidReward
			message = "Report created successfully! AI validated."
		}
	}

	if e.Images == nil {
		return nil, fmt.Errorf("no image store configured: %w", models.ErrFatal)
	}
	stored, err := e.Images.Put(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}
	report.ImagePath = stored.URL
	report.ImageKey = stored.Key

	err = e.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		report.ID = primitive.NilObjectID
		id, err := e.Reports.Create(ctx, report)
		if err != nil {
			return err
		}
		report.ID = id
		if report.PointsAwarded == 0 {
			return nil
		}
		if _, err := e.Ledger.ApplyDelta(ctx, report.UserID, report.PointsAwarded); err != nil {
			e.undoWrite(ctx, &report, undoCreate, report.State())
			return ledgerError(err)
		}
		return nil
	})
	if err != nil {
		e.removeImage(stored.Key)
		return nil, err
	}

	zap.S().Infow("report created",
		"reportId", report.ID.Hex(),
		"userId", report.UserID.Hex(),
		"status", report.Status,
		"pointsAwarded", report.PointsAwarded,
		"policy", e.policy)
	e.publish(models.ReportEvent{
		Type:         models.ReportCreated,
		ReportID:     report.ID,
		OwnerID:      report.UserID,
		Status:       report.Status,
		PointsChange: report.PointsAwarded,
	})

	return &Created{Report: &report, Reasoning: reasoning, Message: message}, nil
}

// Transitioned is the result of a status change
type Transitioned struct {
	Plan    Plan
	Report  *models.Report
	Deleted bool
}

// Transition moves a report to status to on behalf of an admin, applying the
// point delta and the report write as one unit of work
func (e *Engine) Transition(ctx context.Context, actor *access.Actor, reportID primitive.ObjectID, to models.Status) (*Transitioned, error) {
	if err := access.Authorize(actor, access.TransitionStatus, nil); err != nil {
		return nil, err
	}
	if !to.IsKnown() {
		return nil, fmt.Errorf("unknown status %q: %w", to, models.ErrRejectedTransition)
	}
	report, err := e.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	plan, err := PlanTransition(report.Status, to, report.PointsAwarded)
	if err != nil {
		return nil, err
	}
	if _, err := e.owner(ctx, report.UserID); err != nil {
		return nil, err
	}

	next := models.ReportState{Status: plan.To, PointsAwarded: plan.PointsAwarded}
	err = e.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		// the conditional report write claims the transition; a writer that
		// planned from the same read gets ErrRejectedTransition here
		var err error
		if plan.Remove {
			err = e.Reports.Delete(ctx, report.ID, report.State())
		} else {
			err = e.Reports.UpdateStatus(ctx, report.ID, report.State(), next)
		}
		if err != nil || plan.Delta == 0 {
			return err
		}
		if _, err := e.Ledger.ApplyDelta(ctx, report.UserID, plan.Delta); err != nil {
			kind := undoUpdate
			if plan.Remove {
				kind = undoDelete
			}
			e.undoWrite(ctx, report, kind, next)
			return ledgerError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infow("report status changed",
		"reportId", report.ID.Hex(),
		"from", plan.From,
		"to", plan.To,
		"delta", plan.Delta,
		"deleted", plan.Remove,
		"adminId", actor.ID.Hex())

	out := &Transitioned{Plan: plan, Deleted: plan.Remove}
	if plan.Remove {
		e.removeImage(report.ImageKey)
	} else {
		report.Status = plan.To
		report.PointsAwarded = plan.PointsAwarded
		report.UpdatedAt = e.now().UTC()
		out.Report = report
	}
	e.publish(models.ReportEvent{
		Type:         models.ReportStatusChanged,
		ReportID:     report.ID,
		OwnerID:      report.UserID,
		From:         plan.From,
		Status:       plan.To,
		PointsChange: plan.Delta,
	})
	return out, nil
}

// Deleted is the result of an owner deleting a report
type Deleted struct {
	ReportID     primitive.ObjectID
	PointsChange int
}

// Delete removes the actor's own report and takes back whatever it still
// contributes to their balance
func (e *Engine) Delete(ctx context.Context, actor *access.Actor, reportID primitive.ObjectID) (*Deleted, error) {
	if actor == nil {
		return nil, models.ErrUnauthorized
	}
	report, err := e.Reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, access.DeleteReport, report); err != nil {
		return nil, err
	}
	delta := -report.PointsAwarded

	err = e.Transactor.WithTransaction(ctx, func(ctx context.Context) error {
		if err := e.Reports.Delete(ctx, report.ID, report.State()); err != nil || delta == 0 {
			return err
		}
		if _, err := e.Ledger.ApplyDelta(ctx, report.UserID, delta); err != nil {
			e.undoWrite(ctx, report, undoDelete, report.State())
			return ledgerError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.S().Infow("report deleted by owner",
		"reportId", report.ID.Hex(),
		"userId", report.UserID.Hex(),
		"pointsChange", delta)
	e.removeImage(report.ImageKey)
	e.publish(models.ReportEvent{
		Type:         models.ReportDeleted,
		ReportID:     report.ID,
		OwnerID:      report.UserID,
		From:         report.Status,
		PointsChange: delta,
	})
	return &Deleted{ReportID: report.ID, PointsChange: delta}, nil
}

// owner loads the report owner. A missing owner is fatal to the operation.
func (e *Engine) owner(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	acc, err := e.Accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("owner %s missing: %w", id.Hex(), models.ErrFatal)
		}
		return nil, err
	}
	return acc, nil
}

// undo names the report write to reverse when the ledger write after it fails
type undo int

const (
	undoCreate undo = iota
	undoUpdate
	undoDelete
)

// undoWrite puts report back the way it was read. Inside a transaction the
// rollback already does this; with the sequential fallback it is the only way
// back. written is the state the report was moved to by undoUpdate.
func (e *Engine) undoWrite(ctx context.Context, report *models.Report, kind undo, written models.ReportState) {
	var err error
	switch kind {
	case undoCreate:
		err = e.Reports.Delete(ctx, report.ID, report.State())
	case undoUpdate:
		err = e.Reports.UpdateStatus(ctx, report.ID, written, report.State())
	case undoDelete:
		_, err = e.Reports.Create(ctx, *report)
	}
	if err != nil {
		zap.S().Errorw("report write kept after ledger failure",
			"reportId", report.ID.Hex(),
			"userId", report.UserID.Hex(),
			"status", report.Status,
			"error", err)
	}
}

func ledgerError(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, models.ErrFatal)
	}
	return err
}

// removeImage is best effort; the report is already gone
func (e *Engine) removeImage(key string) {
	if e.Images == nil || key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Images.Remove(ctx, key); err != nil {
		zap.S().Warnw("failed to remove report image", "key", key, "error", err)
	}
}

func (e *Engine) publish(ev models.ReportEvent) {
	if e.Publisher == nil {
		return
	}
	ev.At = e.now().UTC()
	e.Publisher.Publish(ev)
}
