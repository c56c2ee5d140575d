package api

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mosquitoalert/mosquito-alert-api/access"
	"github.com/mosquitoalert/mosquito-alert-api/models"
)

// AccountFinder is the part of the user database the middleware reads
type AccountFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
}

// MiddlewareDB is a struct that holds the database and token settings
type MiddlewareDB struct {
	DB     AccountFinder
	Secret string
	TTL    time.Duration
}

// infoCacheTTL bounds how long a verified token is trusted without reloading
// the account
const infoCacheTTL = 10 * time.Minute

var authenticator auth.Authenticator
var cache store.Cache
var revoked store.Cache

type actorKey struct{}

// WithActor returns a copy of ctx carrying actor
func WithActor(ctx context.Context, actor *access.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor, or nil
func ActorFrom(ctx context.Context) *access.Actor {
	actor, _ := ctx.Value(actorKey{}).(*access.Actor)
	return actor
}

// Middleware adds some basic header authentication around accessing the routes
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authenticator == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		user, err := authenticator.Authenticate(r)
		if err != nil {
			zap.S().Debugw("unauthorized",
				"url", r.URL.Path,
				"error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		actor, err := actorFromInfo(user)
		if err != nil {
			zap.S().Errorw("authenticated user has a malformed id",
				"user", user.UserName(),
				"error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "unauthorized"}`))
			return
		}
		zap.S().Debugf("User %s Authenticated", user.UserName())
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// QueryToken copies a ?token= query parameter into the Authorization header,
// for clients such as browsers opening a websocket that cannot set headers
func QueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tok := r.URL.Query().Get("token"); tok != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+tok)
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromInfo(info auth.Info) (*access.Actor, error) {
	id, err := primitive.ObjectIDFromHex(info.ID())
	if err != nil {
		return nil, err
	}
	actor := &access.Actor{ID: id, Email: info.UserName(), Role: models.RoleUser}
	if groups := info.Groups(); len(groups) > 0 {
		actor.Role = models.Role(groups[0])
	}
	return actor, nil
}

func infoFor(account *models.Account) auth.Info {
	return auth.NewDefaultUser(account.Email, account.ID.Hex(), []string{string(account.Role)}, nil)
}

// CreateToken returns a signed token for the basic auth credentials the
// request was authenticated with
func (m MiddlewareDB) CreateToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	actor := ActorFrom(r.Context())
	if actor == nil {
		http.Error(w, "basic auth failed", http.StatusUnauthorized)
		return
	}

	account, err := m.DB.FindByID(r.Context(), actor.ID)
	if err != nil {
		http.Error(w, "failed to get user by id", http.StatusUnauthorized)
		return
	}

	token, err := IssueToken(m.Secret, *account, m.TTL)
	if err != nil {
		zap.S().Errorw("failed to issue token", "error", err)
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	responseBody, err := json.Marshal(models.TokenResponse{Token: token, ID: account.ID, Role: account.Role})
	if err != nil {
		http.Error(w, "failed to marshal response", http.StatusInternalServerError)
		return
	}

	w.Write(responseBody)
}

// SetupGoGuardian sets up the go-guardian middleware
func (m MiddlewareDB) SetupGoGuardian() {
	authenticator = auth.New()
	cache = store.NewFIFO(context.Background(), infoCacheTTL)
	ttl := m.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	revoked = store.NewFIFO(context.Background(), ttl)
	basicStrategy := basic.New(m.ValidateUser, cache)
	tokenStrategy := bearer.New(m.ValidateToken, cache)

	authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
}

// ValidateUser validates a user
func (m MiddlewareDB) ValidateUser(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	usernameHash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))

	account, err := m.DB.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("no matching email found")
	}

	expectedUsernameHash := sha256.Sum256([]byte(account.Email))
	usernameMatch := subtle.ConstantTimeCompare(usernameHash[:], expectedUsernameHash[:]) == 1

	err = bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password))
	if err != nil {
		return nil, fmt.Errorf("failed to compare password")
	}

	if usernameMatch {
		return infoFor(account), nil
	}
	return nil, fmt.Errorf("invalid credentials")
}

// ValidateToken verifies a bearer token and reloads its account so that a
// deleted account or a changed role takes effect
func (m MiddlewareDB) ValidateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	if revoked != nil {
		if _, ok, _ := revoked.Load(tokenKey(token), r); ok {
			return nil, errors.New("token has been revoked")
		}
	}
	claims, err := ParseToken(m.Secret, token)
	if err != nil {
		return nil, err
	}
	account, err := m.DB.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id")
	}
	return infoFor(account), nil
}

// RevokeToken revokes a token
func RevokeToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	reqToken, ok := bearerToken(r)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "bearer token required"}`))
		return
	}

	if revoked != nil {
		_ = revoked.Store(tokenKey(reqToken), true, r)
	}
	if authenticator != nil {
		tokenStrategy := authenticator.Strategy(bearer.CachedStrategyKey)
		if err := auth.Revoke(tokenStrategy, reqToken, r); err != nil {
			zap.S().Warnw("failed to drop cached token", "error", err)
		}
	}
	w.Write([]byte(`{"message": "Logged out successfully"}`))
}

func bearerToken(r *http.Request) (string, bool) {
	reqToken := r.Header.Get("Authorization")
	tok, ok := strings.CutPrefix(reqToken, "Bearer ")
	tok = strings.TrimSpace(tok)
	return tok, ok && tok != ""
}

// tokenKey keeps raw tokens out of the revocation cache
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum)
}
