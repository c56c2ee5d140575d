package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Creation policies
const (
	PolicyAIGated      = "ai-gated"
	PolicyManualReview = "manual-review"
)

// AI failure policies
const (
	FailureReject = "reject"
	FailureAccept = "accept"
)

// Image stores
const (
	ImageStoreCloudinary = "cloudinary"
	ImageStoreS3         = "s3"
)

// Config holds the project config values
type Config struct {
	URL             string
	DatabaseName    string
	UseTransactions bool
	BaseURL         string
	Port            string
	Env             string
	RequestTimeout  time.Duration
	AllowedOrigins  []string

	JWTSecret string
	TokenTTL  time.Duration

	CreationPolicy  string
	AIFailurePolicy string
	Roboflow        Roboflow

	ImageStore     string
	MaxUploadBytes int64
	Cloudinary     Cloudinary
	S3             S3

	Digest Digest
}

// Roboflow configures the classification workflow client
type Roboflow struct {
	APIKey      string
	WorkflowURL string
	Timeout     time.Duration
}

// Cloudinary configures the default image host
type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// S3 configures an S3 compatible image bucket (R2, MinIO, AWS)
type S3 struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

// Digest configures the scheduled admin summary email
type Digest struct {
	SendGridAPIKey string
	Schedule       string
	Recipients     []string
	From           string
}

// New sets up all config related services
func New() *Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	env := getenv("APP_ENV", "production")
	if _, err := setLogger(env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
	}

	return &Config{
		URL:             os.Getenv("DB_URI"),
		DatabaseName:    getenv("DB_NAME", "mosquito-alert"),
		UseTransactions: getbool("DB_TRANSACTIONS", false),
		BaseURL:         os.Getenv("BASE_URL"),
		Port:            getenv("PORT", "5000"),
		Env:             env,
		RequestTimeout:  getduration("REQUEST_TIMEOUT", 60*time.Second),
		AllowedOrigins:  getlist("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getduration("TOKEN_TTL", 30*24*time.Hour),

		CreationPolicy:  getenv("CREATION_POLICY", PolicyAIGated),
		AIFailurePolicy: getenv("AI_FAILURE_POLICY", FailureReject),
		Roboflow: Roboflow{
			APIKey:      os.Getenv("ROBOFLOW_API_KEY"),
			WorkflowURL: getenv("ROBOFLOW_WORKFLOW_URL", "https://serverless.roboflow.com/mosquito-breeding-sites/workflows/custom-workflow"),
			Timeout:     getduration("ROBOFLOW_TIMEOUT", 35*time.Second),
		},

		ImageStore:     getenv("IMAGE_STORE", ImageStoreCloudinary),
		MaxUploadBytes: getint64("MAX_FILE_SIZE", 5*1024*1024),
		Cloudinary: Cloudinary{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
			Folder:    getenv("CLOUDINARY_FOLDER", "mosquito-reports"),
		},
		S3: S3{
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Region:          getenv("S3_REGION", "auto"),
			Bucket:          os.Getenv("S3_BUCKET"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			PublicURL:       os.Getenv("S3_PUBLIC_URL"),
		},

		Digest: Digest{
			SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
			Schedule:       getenv("DIGEST_CRON", "0 7 * * *"),
			Recipients:     getlist("DIGEST_RECIPIENTS", nil),
			From:           getenv("DIGEST_FROM", "no-reply@mosquitoalert.app"),
		},
	}
}

// Validate checks the values the server cannot start without
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("DB_URI is not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	switch c.CreationPolicy {
	case PolicyAIGated, PolicyManualReview:
	default:
		return fmt.Errorf("unknown CREATION_POLICY %q", c.CreationPolicy)
	}
	switch c.AIFailurePolicy {
	case FailureReject, FailureAccept:
	default:
		return fmt.Errorf("unknown AI_FAILURE_POLICY %q", c.AIFailurePolicy)
	}
	if c.CreationPolicy == PolicyAIGated && c.Roboflow.APIKey == "" {
		return fmt.Errorf("ROBOFLOW_API_KEY is required for the %s policy", PolicyAIGated)
	}
	switch c.ImageStore {
	case ImageStoreCloudinary, ImageStoreS3:
	default:
		return fmt.Errorf("unknown IMAGE_STORE %q", c.ImageStore)
	}
	return nil
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().With("error", err).Error(message)
	} else {
		zap.S().With("error", err).Debug(message)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	if err == nil || httpStatusCode >= http.StatusInternalServerError {
		w.Write([]byte(fmt.Sprintf(`{"response": %q}`, message)))
		return
	}
	w.Write([]byte(fmt.Sprintf(`{"response": %q}`, fmt.Sprintf("%s, %v", message, err))))
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func getint64(k string, def int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(k), 10, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getduration(k string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getlist(k string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(k))
	if raw == "" {
		return def
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
