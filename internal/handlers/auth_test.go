package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/repository"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/gormstore"
	"github.com/yukikurage/consultant-worklog/internal/store/storetest"
)

type apiTestEnv struct {
	router      *gin.Engine
	authService *services.AuthService
}

func setupAPITestEnv(t *testing.T) apiTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storetest.OpenSQLite(t)
	reqs, err := gormstore.New[models.Requirement](db, store.Requirements)
	require.NoError(t, err)
	tasks, err := gormstore.New[models.Task](db, store.Tasks)
	require.NoError(t, err)

	sessionStore, err := NewSessionStore(&config.ServerConfig{
		GinMode: gin.TestMode,
		Session: config.SessionConfig{Secret: "secret", MaxAge: time.Hour},
	})
	require.NoError(t, err)

	authService := services.NewAuthService(repository.NewUserRepository(db))
	router := NewRouter(RouterDeps{
		Auth:         authService,
		Documents:    services.NewDocumentService(reqs, tasks, zerolog.Nop()),
		SessionStore: sessionStore,
		Logger:       zerolog.Nop(),
	})

	return apiTestEnv{
		router:      router,
		authService: authService,
	}
}

// do sends a JSON request and carries over any session cookies.
func (env apiTestEnv) do(t *testing.T, method, path string, payload any, cookies []*http.Cookie, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// login signs up a user and returns its id and session cookies.
func (env apiTestEnv) login(t *testing.T, email string) (string, []*http.Cookie) {
	t.Helper()

	user, err := env.authService.Signup(services.SignupInput{Email: email, Password: "supersecret"})
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
	return user.ID, cookies
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAPITestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/signup", map[string]any{
		"email":        "New.User@example.com",
		"password":     "supersecret",
		"display_name": "New User",
		"profile": map[string]any{
			"developer_level":      "trainee",
			"company":              "Acme",
			"training_enrolled":    true,
			"training_daily_hours": 2,
		},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "new.user@example.com", response.Email)
	assert.Equal(t, "New User", response.DisplayName)
	assert.Equal(t, models.DeveloperLevelTrainee, response.DeveloperLevel)
	assert.Equal(t, models.TrainingConfig{IsEnrolled: true, DailyHours: 2}, response.Training())
	assert.NotEmpty(t, response.ID)
}

func TestAuthHandler_SignupErrors(t *testing.T) {
	env := setupAPITestEnv(t)
	_, err := env.authService.Signup(services.SignupInput{Email: "taken@example.com", Password: "supersecret"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload map[string]any
		status  int
	}{
		{"short password", map[string]any{"email": "a@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]any{"email": "not-an-email", "password": "supersecret"}, http.StatusBadRequest},
		{"taken", map[string]any{"email": "taken@example.com", "password": "supersecret"}, http.StatusConflict},
		{"bad hours", map[string]any{
			"email": "b@example.com", "password": "supersecret",
			"profile": map[string]any{"training_enrolled": true, "training_daily_hours": 12},
		}, http.StatusBadRequest},
		{"missing fields", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/auth/signup", tt.payload, nil)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAPITestEnv(t)
	_, cookies := env.login(t, "existing@example.com")
	assert.Equal(t, constants.SessionCookieName, cookies[0].Name)

	w := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAPITestEnv(t)
	userID, cookies := env.login(t, "current@example.com")

	w := env.do(t, http.MethodGet, "/api/auth/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, userID, response.ID)

	w = env.do(t, http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_UpdateCurrentUser(t *testing.T) {
	env := setupAPITestEnv(t)
	_, cookies := env.login(t, "profile@example.com")

	w := env.do(t, http.MethodPatch, "/api/auth/me", map[string]any{
		"display_name":    "Renamed",
		"developer_level": "senior",
		"area":            "Backoffice",
	}, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Renamed", response.DisplayName)
	assert.Equal(t, models.DeveloperLevelSenior, response.DeveloperLevel)
	assert.Equal(t, "Backoffice", response.Area)

	w = env.do(t, http.MethodPatch, "/api/auth/me", map[string]any{"developer_level": "wizard"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_Logout(t *testing.T) {
	env := setupAPITestEnv(t)
	_, cookies := env.login(t, "bye@example.com")

	w := env.do(t, http.MethodPost, "/api/auth/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/auth/me", nil, w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
