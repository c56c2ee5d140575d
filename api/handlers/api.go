package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/analytics"
	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/classifier"
	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/imagestore"
	"github.com/mosquitoalert/mosquito-alert-api/ledger"
	"github.com/mosquitoalert/mosquito-alert-api/lifecycle"
	"github.com/mosquitoalert/mosquito-alert-api/models"
	"github.com/mosquitoalert/mosquito-alert-api/notify"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
	images   imagestore.Store
	hub      *notify.Hub
	engine   *lifecycle.Engine
}

// New creates a new mux router and all the routes
func (a *App) New() (*mux.Router, error) {
	udb := databases.NewUserDatabase(a.dbHelper)
	rdb := databases.NewReportDatabase(a.dbHelper)

	// setup go-guardian for middleware
	m := api.MiddlewareDB{DB: udb, Secret: a.Config.JWTSecret, TTL: a.Config.TokenTTL}
	m.SetupGoGuardian()

	if a.hub == nil {
		a.hub = notify.NewHub(a.Config.AllowedOrigins)
	}
	if a.engine == nil {
		engine, err := a.newEngine(udb, rdb)
		if err != nil {
			return nil, fmt.Errorf("failed to build report engine: %w", err)
		}
		a.engine = engine
	}

	auth := Auth{DB: udb, Secret: a.Config.JWTSecret, TTL: a.Config.TokenTTL}
	report := Report{Engine: a.engine, RDB: rdb, UDB: udb, MaxUploadBytes: a.Config.MaxUploadBytes}
	ai := AI{
		Gateway:        classifier.NewGateway(classifier.NewRoboflowClient(a.Config.Roboflow), config.FailureReject),
		MaxUploadBytes: a.Config.MaxUploadBytes,
	}
	admin := Admin{Analytics: a.Analytics(), UDB: udb}
	feed := Feed{Hub: a.hub}

	r := mux.NewRouter()
	r.Use(api.MetricsMiddleware)

	// healthchex
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	apiCreate := r.PathPrefix("/api").Subrouter()

	apiCreate.Handle("/auth/signup", http.HandlerFunc(auth.SignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/login", http.HandlerFunc(auth.LoginHandler)).Methods("POST")
	apiCreate.Handle("/auth/token", api.Middleware(http.HandlerFunc(m.CreateToken))).Methods("POST")
	apiCreate.Handle("/auth/logout", api.Middleware(http.HandlerFunc(api.RevokeToken))).Methods("DELETE")
	apiCreate.Handle("/auth/me", api.Middleware(http.HandlerFunc(auth.MeHandler))).Methods("GET")
	apiCreate.Handle("/auth/change-password", api.Middleware(http.HandlerFunc(auth.ChangePasswordHandler))).Methods("PUT")

	apiCreate.Handle("/reports", api.Middleware(http.HandlerFunc(report.CreateReportHandler))).Methods("POST")
	apiCreate.Handle("/reports", api.Middleware(http.HandlerFunc(report.ReportsHandler))).Methods("GET")
	apiCreate.Handle("/reports/my-reports", api.Middleware(http.HandlerFunc(report.MyReportsHandler))).Methods("GET")
	apiCreate.Handle("/reports/{id}", api.Middleware(http.HandlerFunc(report.ReportByIDHandler))).Methods("GET")
	apiCreate.Handle("/reports/{id}", api.Middleware(http.HandlerFunc(report.DeleteReportHandler))).Methods("DELETE")
	apiCreate.Handle("/reports/{id}/status", api.Middleware(http.HandlerFunc(report.UpdateStatusHandler))).Methods("PUT")

	apiCreate.Handle("/ai/validate-image", http.HandlerFunc(ai.ValidateImageHandler)).Methods("POST")

	apiCreate.Handle("/admin/leaderboard", api.Middleware(http.HandlerFunc(admin.LeaderboardHandler))).Methods("GET")
	apiCreate.Handle("/admin/analytics/overview", api.Middleware(http.HandlerFunc(admin.OverviewHandler))).Methods("GET")
	apiCreate.Handle("/admin/analytics/weekly-reports", api.Middleware(http.HandlerFunc(admin.WeeklyReportsHandler))).Methods("GET")
	apiCreate.Handle("/admin/analytics/breeding-distribution", api.Middleware(http.HandlerFunc(admin.BreedingDistributionHandler))).Methods("GET")
	apiCreate.Handle("/admin/analytics/area-risk", api.Middleware(http.HandlerFunc(admin.AreaRiskHandler))).Methods("GET")
	apiCreate.Handle("/admin/users", api.Middleware(http.HandlerFunc(admin.UsersHandler))).Methods("GET")
	apiCreate.Handle("/admin/metrics", api.Middleware(http.HandlerFunc(admin.MetricsHandler))).Methods("GET")

	r.Handle("/ws/reports", api.QueryToken(api.Middleware(http.HandlerFunc(feed.ReportFeedHandler)))).Methods("GET")

	return r, nil
}

// newEngine wires the report lifecycle to mongo, the classifier, the image
// store and the live feed
func (a *App) newEngine(udb databases.UserDatabase, rdb databases.ReportDatabase) (*lifecycle.Engine, error) {
	gateway := classifier.NewGateway(classifier.NewRoboflowClient(a.Config.Roboflow), a.Config.AIFailurePolicy)
	deps := lifecycle.Deps{
		Reports:    rdb,
		Accounts:   udb,
		Ledger:     ledger.New(udb),
		Transactor: databases.NewTransactor(a.client, a.Config.UseTransactions),
		Classifier: gateway,
		Images:     a.images,
		Publisher:  a.hub,
	}
	return lifecycle.New(lifecycle.Policy(a.Config.CreationPolicy), a.Config.MaxUploadBytes, deps)
}

// Analytics returns the dashboard service backed by the app's database
func (a *App) Analytics() *analytics.Service {
	return analytics.NewService(
		databases.NewAnalyticsDatabase(a.dbHelper),
		databases.NewReportDatabase(a.dbHelper),
		databases.NewUserDatabase(a.dbHelper),
	)
}

// Accounts returns the account store backed by the app's database
func (a *App) Accounts() databases.UserDatabase {
	return databases.NewUserDatabase(a.dbHelper)
}

// Initialize is invoked by main to connect with the database and create a router
func (a *App) Initialize() error {
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}
	a.client = client

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("mosquito-alert-api has connected to the database")

	if err := databases.EnsureUserIndexes(ctx, a.dbHelper); err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	if err := databases.EnsureReportIndexes(ctx, a.dbHelper); err != nil {
		return fmt.Errorf("failed to create report indexes: %w", err)
	}

	a.images, err = imagestore.New(&a.Config)
	if err != nil {
		return fmt.Errorf("failed to set up image store: %w", err)
	}
	a.hub = notify.NewHub(a.Config.AllowedOrigins)
	a.engine, err = a.newEngine(databases.NewUserDatabase(a.dbHelper), databases.NewReportDatabase(a.dbHelper))
	if err != nil {
		return err
	}
	zap.S().Infow("report engine ready",
		"policy", a.engine.Policy(),
		"aiFailurePolicy", a.Config.AIFailurePolicy,
		"imageStore", a.Config.ImageStore,
		"transactions", a.Config.UseTransactions)

	// initialize api router
	return a.initializeRoutes()
}

// Close disconnects from the database
func (a *App) Close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	return a.client.Disconnect(ctx)
}

func (a *App) initializeRoutes() error {
	router, err := a.New()
	if err != nil {
		return err
	}
	a.Router = router
	return nil
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Alive: true,
	})
}
