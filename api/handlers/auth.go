package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/databases"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

var validate = validator.New()

// Auth handles signup, login and account self service
type Auth struct {
	DB     databases.UserDatabase
	Secret string
	TTL    time.Duration
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost
	Cost int
}

func (a Auth) cost() int {
	if a.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return a.Cost
}

func (a Auth) respond(w http.ResponseWriter, status int, account *models.Account) {
	token, err := api.IssueToken(a.Secret, *account, a.TTL)
	if err != nil {
		config.ErrorStatus("failed to issue token", http.StatusInternalServerError, w, err)
		return
	}
	writeJSON(w, status, models.AuthResponse{
		ID:     account.ID,
		Name:   account.Name,
		Email:  account.Email,
		Role:   account.Role,
		Points: account.Points,
		Token:  token,
	})
}

// SignupHandler registers a reporter account
func (a Auth) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("Please provide all fields", http.StatusBadRequest, w, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), a.cost())
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	account := models.Account{
		Name:      req.Name,
		Email:     req.Email,
		Password:  string(hash),
		Role:      models.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	id, err := a.DB.Create(r.Context(), account)
	if err != nil {
		writeError(w, err, "failed to create user")
		return
	}
	account.ID = id

	zap.S().Infow("user signed up", "userId", id.Hex())
	a.respond(w, http.StatusCreated, &account)
}

// LoginHandler exchanges email and password for a token
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("Please provide email and password", http.StatusBadRequest, w, err)
		return
	}

	account, err := a.DB.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			config.ErrorStatus("Invalid credentials", http.StatusUnauthorized, w, nil)
			return
		}
		writeError(w, err, "failed to log in")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		config.ErrorStatus("Invalid credentials", http.StatusUnauthorized, w, nil)
		return
	}
	a.respond(w, http.StatusOK, account)
}

// MeHandler returns the caller's account with a fresh points balance
func (a Auth) MeHandler(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFrom(r.Context())
	if actor == nil {
		writeError(w, models.ErrUnauthorized, "not authorized")
		return
	}
	account, err := a.DB.FindByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ChangePasswordHandler replaces the caller's password after checking the
// current one
func (a Auth) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	actor := api.ActorFrom(r.Context())
	if actor == nil {
		writeError(w, models.ErrUnauthorized, "not authorized")
		return
	}
	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		config.ErrorStatus("Please provide current and new password", http.StatusBadRequest, w, err)
		return
	}

	account, err := a.DB.FindByID(r.Context(), actor.ID)
	if err != nil {
		writeError(w, err, "User not found")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.CurrentPassword)); err != nil {
		config.ErrorStatus("Current password is incorrect", http.StatusUnauthorized, w, nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), a.cost())
	if err != nil {
		config.ErrorStatus("failed to hash password", http.StatusInternalServerError, w, err)
		return
	}
	if err := a.DB.UpdatePassword(r.Context(), actor.ID, string(hash)); err != nil {
		writeError(w, err, "failed to update password")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}
