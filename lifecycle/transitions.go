package lifecycle

import (
	"fmt"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Point amounts
const (
	ValidReward         = 10
	IntakeRejectPenalty = 5
)

type edge struct {
	from, to models.Status
}

// rule describes what one transition does to the ledger and the record.
// delta and awarded receive the report's current pointsAwarded.
type rule struct {
	delta   func(awarded int) int
	awarded func(awarded int) int
	remove  bool
}

func unchanged(awarded int) int { return awarded }
func none(int) int { return 0 }

var rules = map[edge]rule{
	{models.StatusPending, models.StatusValid}: {
		delta:   func(a int) int { return ValidReward - a },
		awarded: func(int) int { return ValidReward },
	},
	{models.StatusPending, models.StatusInvalid}: {
		delta:  func(a int) int { return -IntakeRejectPenalty - a },
		remove: true,
	},
	{models.StatusValid, models.StatusInvalid}: {
		delta:   func(a int) int { return -a },
		awarded: none,
	},
	{models.StatusValid, models.StatusInProgress}:   {delta: none, awarded: unchanged},
	{models.StatusInProgress, models.StatusCleared}: {delta: none, awarded: unchanged},
	{models.StatusValid, models.StatusPending}:      {delta: none, awarded: unchanged},
	{models.StatusInProgress, models.StatusPending}: {delta: none, awarded: unchanged},
	{models.StatusInvalid, models.StatusPending}:    {delta: none, awarded: unchanged},
}

// Plan is the effect of moving a report from one status to another
type Plan struct {
	From          models.Status
	To            models.Status
	Delta         int
	PointsAwarded int
	Remove        bool
}

// PlanTransition computes the effect of moving a report in status from with
// pointsAwarded awarded to status to. It returns models.ErrRejectedTransition
// for unknown statuses, no-op moves and pairs outside the state machine.
func PlanTransition(from, to models.Status, awarded int) (Plan, error) {
	if !to.IsKnown() {
		return Plan{}, fmt.Errorf("unknown status %q: %w", to, models.ErrRejectedTransition)
	}
	if from == to {
		return Plan{}, fmt.Errorf("report is already %s: %w", from, models.ErrRejectedTransition)
	}
	r, ok := rules[edge{from, to}]
	if !ok {
		return Plan{}, fmt.Errorf("cannot move report from %s to %s: %w", from, to, models.ErrRejectedTransition)
	}
	p := Plan{
		From:   from,
		To:     to,
		Delta:  r.delta(awarded),
		Remove: r.remove,
	}
	if !r.remove {
		p.PointsAwarded = r.awarded(awarded)
	}
	return p, nil
}

// Targets lists the statuses a report in status from may move to
func Targets(from models.Status) []models.Status {
	var out []models.Status
	for _, s := range models.Statuses {
		if _, ok := rules[edge{from, s}]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Message is the human readable summary of an applied plan
func (p Plan) Message() string {
	if p.Remove {
		return fmt.Sprintf("Report marked as %s and deleted. User lost %d points.", p.To, IntakeRejectPenalty)
	}
	switch {
	case p.Delta > 0:
		return fmt.Sprintf("Report marked as %s. User earned %d points.", p.To, p.Delta)
	case p.Delta < 0:
		return fmt.Sprintf("Report marked as %s. User lost %d points.", p.To, -p.Delta)
	}
	return fmt.Sprintf("Report marked as %s. Status updated successfully.", p.To)
}
