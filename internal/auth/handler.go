package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/workoutlog/internal/telemetry/metrics"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/internal/users"
	"github.com/2beens/workoutlog/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
)

type usersRepo interface {
	Add(ctx context.Context, username, passwordHash string) (*users.User, error)
	Get(ctx context.Context, id int) (*users.User, error)
	GetByUsername(ctx context.Context, username string) (*users.User, error)
	Delete(ctx context.Context, id int) error
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SessionResponse struct {
	User      *users.User `json:"user"`
	SessionID string      `json:"sessionId"`
}

type DeleteAccountResponse struct {
	DeletedID int `json:"deletedId"`
}

type Handler struct {
	usersRepo        usersRepo
	registry         Registry
	metricsManager   *metrics.Manager
	passwordHashCost int
}

func NewHandler(
	usersRepo usersRepo,
	registry Registry,
	metricsManager *metrics.Manager,
	passwordHashCost int,
) *Handler {
	return &Handler{
		usersRepo:        usersRepo,
		registry:         registry,
		metricsManager:   metricsManager,
		passwordHashCost: passwordHashCost,
	}
}

func (c Credentials) validate() error {
	username := strings.TrimSpace(c.Username)
	if username == "" {
		return errors.New("username empty")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return errors.New("username must be between 3 and 50 characters")
	}
	if utf8.RuneCountInString(c.Password) < minPasswordLen {
		return errors.New("password must be at least 6 characters")
	}
	return nil
}

func decodeCredentials(r *http.Request) (Credentials, error) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		return Credentials{}, err
	}
	creds.Username = strings.TrimSpace(creds.Username)
	return creds, nil
}

func (handler *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	creds, err := decodeCredentials(r)
	if err != nil {
		log.Tracef("signup, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := creds.validate(); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := pkg.HashPassword(creds.Password, handler.passwordHashCost)
	if err != nil {
		log.Errorf("signup, hash password: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	user, err := handler.usersRepo.Add(ctx, creds.Username, passwordHash)
	if err != nil {
		if errors.Is(err, users.ErrUsernameTaken) {
			pkg.WriteJSONError(w, http.StatusConflict, "username already taken")
			return
		}
		log.Errorf("signup, add user [%s]: %s", creds.Username, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signup failed")
		return
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	token, err := handler.registry.CreateSession(ctx, user.ID)
	if err != nil {
		log.Errorf("signup, create session for user %d: %s", user.ID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	handler.metricsManager.CounterSignups.Inc()
	log.Debugf("new user signed up: %d", user.ID)
	pkg.WriteJSON(w, http.StatusCreated, SessionResponse{User: user, SessionID: token})
}

func (handler *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signin")
	defer span.End()

	creds, err := decodeCredentials(r)
	if err != nil {
		log.Tracef("signin, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if creds.Username == "" || creds.Password == "" {
		pkg.WriteJSONError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := handler.usersRepo.GetByUsername(ctx, creds.Username)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		log.Errorf("signin, get user [%s]: %s", creds.Username, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signin failed")
		return
	}
	if user == nil || !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		handler.metricsManager.CounterSignins.With(prometheus.Labels{"result": "denied"}).Inc()
		pkg.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := handler.registry.CreateSession(ctx, user.ID)
	if err != nil {
		log.Errorf("signin, create session for user %d: %s", user.ID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signin failed")
		return
	}

	handler.metricsManager.CounterSignins.With(prometheus.Labels{"result": "ok"}).Inc()
	pkg.WriteJSON(w, http.StatusOK, SessionResponse{User: user, SessionID: token})
}

func (handler *Handler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signout")
	defer span.End()

	token := r.Header.Get(SessionHeader)
	if err := handler.registry.DeleteSession(ctx, token); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		log.Errorf("signout, delete session: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "signout failed")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, map[string]bool{"signedOut": true})
}

func (handler *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.me")
	defer span.End()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	user, err := handler.usersRepo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Errorf("me, get user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to get user")
		return
	}

	pkg.WriteJSON(w, http.StatusOK, user)
}

// HandleDeleteMe deletes the account with all its data and revokes every session of the user.
func (handler *Handler) HandleDeleteMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.deleteme")
	defer span.End()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	if err := handler.usersRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "user not found")
			return
		}
		log.Errorf("delete account %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "failed to delete account")
		return
	}

	if err := handler.registry.DeleteUserSessions(ctx, userID); err != nil {
		// account is gone already, stale tokens resolve to a missing user
		log.Errorf("delete account %d, revoke sessions: %s", userID, err)
	}

	pkg.WriteJSON(w, http.StatusOK, DeleteAccountResponse{DeletedID: userID})
}
