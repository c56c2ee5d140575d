package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/config"
)

// RoboflowClient calls a Roboflow workflow with a base64 image
type RoboflowClient struct {
	apiKey string
	url    string
	client *http.Client
}

// NewRoboflowClient builds a client from conf. The http client's timeout is
// set to conf.Timeout.
func NewRoboflowClient(conf config.Roboflow) *RoboflowClient {
	return &RoboflowClient{
		apiKey: conf.APIKey,
		url:    conf.WorkflowURL,
		client: &http.Client{Timeout: conf.Timeout},
	}
}

type workflowRequest struct {
	APIKey string `json:"api_key"`
	Inputs struct {
		Image struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"image"`
	} `json:"inputs"`
}

type workflowPrediction struct {
	Class          string   `json:"class"`
	PredictedClass string   `json:"predicted_class"`
	Label          string   `json:"label"`
	Confidence     *float64 `json:"confidence"`
	Score          *float64 `json:"score"`
}

type workflowResponse struct {
	Outputs []struct {
		Predictions *struct {
			Predictions []workflowPrediction `json:"predictions"`
			Top         string               `json:"top"`
			Confidence  float64              `json:"confidence"`
		} `json:"predictions"`
	} `json:"outputs"`
}

// Classify implements Classifier
func (c *RoboflowClient) Classify(ctx context.Context, image []byte) (Result, error) {
	if c.apiKey == "" {
		return Result{}, gatewayError("roboflow api key not configured")
	}
	if len(image) == 0 {
		return Result{}, gatewayError("empty image")
	}

	var body workflowRequest
	body.APIKey = c.apiKey
	body.Inputs.Image.Type = "base64"
	body.Inputs.Image.Value = base64.StdEncoding.EncodeToString(image)

	jsonData, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal workflow request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return Result{}, gatewayError("failed to create workflow request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, gatewayError("failed to call workflow: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, gatewayError("workflow returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var wr workflowResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return Result{}, gatewayError("failed to decode workflow response: %v", err)
	}

	res := interpret(wr)
	zap.S().Infow("image classified",
		"verdict", res.Verdict,
		"confidence", res.Confidence,
		"detections", len(res.Detections))
	return res, nil
}

// interpret turns the workflow output into a verdict. Any detection whose
// class is not a "not breeding" class counts as a breeding site.
func interpret(wr workflowResponse) Result {
	var preds []workflowPrediction
	if len(wr.Outputs) > 0 && wr.Outputs[0].Predictions != nil {
		p := wr.Outputs[0].Predictions
		switch {
		case p.Predictions != nil:
			preds = p.Predictions
		case p.Top != "":
			conf := p.Confidence
			preds = []workflowPrediction{{Class: p.Top, Confidence: &conf}}
		}
	}

	var all, valid []Detection
	for _, p := range preds {
		class := firstNonEmpty(p.Class, p.PredictedClass, p.Label)
		if class == "" {
			continue
		}
		var score float64
		if p.Confidence != nil {
			score = *p.Confidence
		} else if p.Score != nil {
			score = *p.Score
		}
		d := Detection{Class: class, Confidence: int(math.Round(score * 100))}
		all = append(all, d)
		if !strings.Contains(strings.ToLower(class), "not breeding") {
			valid = append(valid, d)
		}
	}

	maxConfidence := 0
	for _, d := range all {
		if d.Confidence > maxConfidence {
			maxConfidence = d.Confidence
		}
	}

	res := Result{
		IsValid:    len(valid) > 0,
		Confidence: maxConfidence,
		Detections: valid,
	}
	if res.IsValid {
		res.Verdict = VerdictValid
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("Detected %d potential breeding site(s)", len(valid)))
		for i, d := range valid {
			res.Reasoning = append(res.Reasoning, fmt.Sprintf("%d. %s (%d%% confidence)", i+1, d.Class, d.Confidence))
		}
		res.Reasoning = append(res.Reasoning, "Image validated as mosquito breeding site")
		return res
	}

	res.Verdict = VerdictInvalid
	res.Reasoning = append(res.Reasoning, "No mosquito breeding sites detected in image")
	if len(all) > 0 {
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("AI classified as: %q (%d%% confidence)", all[0].Class, all[0].Confidence))
	}
	res.Reasoning = append(res.Reasoning,
		"Please upload a clear photo of a potential breeding site",
		"Examples: standing water, containers, tires, gutters")
	return res
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
