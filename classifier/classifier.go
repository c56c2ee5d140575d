// Package classifier asks the image classification workflow whether a photo
// shows a mosquito breeding site.
package classifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// Verdicts
const (
	VerdictValid   = "VALID"
	VerdictInvalid = "INVALID"
	VerdictError   = "ERROR"
)

// Detection is one class the workflow reported
type Detection struct {
	Class      string `json:"class"`
	Confidence int    `json:"confidence"`
}

// Result is the verdict for one image. Confidence is 0..100.
type Result struct {
	IsValid    bool        `json:"isValid"`
	Confidence int         `json:"confidence"`
	Verdict    string      `json:"verdict"`
	Reasoning  []string    `json:"reasoning"`
	Detections []Detection `json:"detections,omitempty"`
	Fallback   bool        `json:"fallback,omitempty"`
}

// Classifier calls the external service. It may fail; errors wrap
// models.ErrGatewayFailure.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (Result, error)
}

// Gateway applies the configured failure policy on top of a Classifier so
// callers never see a raw error
type Gateway struct {
	classifier Classifier
	policy     string
}

// NewGateway returns a Gateway. policy is config.FailureReject or
// config.FailureAccept; anything else behaves as reject.
func NewGateway(c Classifier, policy string) *Gateway {
	return &Gateway{classifier: c, policy: policy}
}

// Classify always returns a Result. On failure the Result is flagged as a
// fallback and IsValid follows the failure policy.
func (g *Gateway) Classify(ctx context.Context, image []byte) Result {
	res, err := g.classifier.Classify(ctx, image)
	if err == nil {
		return res
	}

	zap.S().Warnw("image classification failed, using fallback",
		"policy", g.policy,
		"error", err)

	if g.policy == config.FailureAccept {
		return Result{
			IsValid:    true,
			Confidence: 0,
			Verdict:    VerdictError,
			Reasoning: []string{
				"AI validation unavailable",
				"Report accepted for manual review",
			},
			Fallback: true,
		}
	}
	return Result{
		IsValid:    false,
		Confidence: 0,
		Verdict:    VerdictError,
		Reasoning: []string{
			"AI validation failed",
			"Please try again or contact support",
		},
		Fallback: true,
	}
}

func gatewayError(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), models.ErrGatewayFailure)
}
