package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/imagestore"
	"github.com/mosquitoalert/mosquito-alert-api/lifecycle"
)

// AI serves the pre-submission image check
type AI struct {
	Gateway        lifecycle.Classifier
	MaxUploadBytes int64
}

type validateImageResponse struct {
	classifier.Result
	Timestamp time.Time `json:"timestamp"`
}

// ValidateImageHandler classifies an uploaded image without storing it. A
// classifier failure is answered with a fallback verdict, never a 500.
func (a AI) ValidateImageHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(a.MaxUploadBytes + multipartOverhead); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "No image uploaded", "isValid": false})
		return
	}
	data, err := readUpload(r, "image", a.MaxUploadBytes)
	if err != nil || len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "No image uploaded", "isValid": false})
		return
	}
	img, err := imagestore.Inspect(data, a.MaxUploadBytes)
	if err != nil {
		writeError(w, err, "invalid image")
		return
	}

	result := a.Gateway.Classify(r.Context(), img.Data)
	zap.S().Infow("image validated",
		"verdict", result.Verdict,
		"confidence", result.Confidence,
		"fallback", result.Fallback)
	writeJSON(w, http.StatusOK, validateImageResponse{Result: result, Timestamp: time.Now().UTC()})
}
