package httpstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/consultant-worklog/internal/config"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/handlers"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/repository"
	"github.com/yukikurage/consultant-worklog/internal/retry"
	"github.com/yukikurage/consultant-worklog/internal/services"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/gormstore"
	"github.com/yukikurage/consultant-worklog/internal/store/storetest"
)

const password = "supersecret"

type httpStoreSuite struct {
	suite.Suite

	ctx    context.Context
	server *httptest.Server
	client *Client
	user   *dto.UserDTO
	reqs   *Collection[models.Requirement, *models.Requirement]
	tasks  *Collection[models.Task, *models.Task]
}

func TestHTTPStore(t *testing.T) {
	suite.Run(t, new(httpStoreSuite))
}

func (s *httpStoreSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.ctx = context.Background()

	db := storetest.OpenSQLite(s.T())
	reqs, err := gormstore.New[models.Requirement](db, store.Requirements)
	s.Require().NoError(err)
	tasks, err := gormstore.New[models.Task](db, store.Tasks)
	s.Require().NoError(err)

	sessionStore, err := handlers.NewSessionStore(&config.ServerConfig{
		GinMode: gin.TestMode,
		Session: config.SessionConfig{Secret: "secret", MaxAge: time.Hour},
	})
	s.Require().NoError(err)

	s.server = httptest.NewServer(handlers.NewRouter(handlers.RouterDeps{
		Auth:         services.NewAuthService(repository.NewUserRepository(db)),
		Documents:    services.NewDocumentService(reqs, tasks, zerolog.Nop()),
		SessionStore: sessionStore,
		Logger:       zerolog.Nop(),
	}))
	s.T().Cleanup(s.server.Close)

	s.client, s.user = s.signIn("owner@example.com")
	s.reqs = NewCollection[models.Requirement](s.client, store.Requirements)
	s.tasks = NewCollection[models.Task](s.client, store.Tasks)
}

func (s *httpStoreSuite) newClient() *Client {
	client, err := NewClient(s.server.URL, 5*time.Second, zerolog.Nop())
	s.Require().NoError(err)
	return client
}

func (s *httpStoreSuite) signIn(email string) (*Client, *dto.UserDTO) {
	client := s.newClient()
	_, err := client.Signup(s.ctx, dto.SignupRequest{Email: email, Password: password})
	s.Require().NoError(err)
	user, err := client.Login(s.ctx, email, password)
	s.Require().NoError(err)
	return client, user
}

func (s *httpStoreSuite) TestLoginAndSession() {
	me, err := s.client.Me(s.ctx)
	s.Require().NoError(err)
	s.Equal(s.user.ID, me.ID)

	hours := 3.0
	enrolled := true
	level := models.DeveloperLevelTrainee
	updated, err := s.client.UpdateProfile(s.ctx, dto.UpdateProfileRequest{ProfileDTO: dto.ProfileDTO{
		DeveloperLevel:     &level,
		TrainingEnrolled:   &enrolled,
		TrainingDailyHours: &hours,
	}})
	s.Require().NoError(err)

	session := SessionFor(updated)
	s.Equal(s.user.ID, session.UserID)
	s.Equal(models.TrainingConfig{IsEnrolled: true, DailyHours: 3}, session.Training)

	s.Require().NoError(s.client.Logout(s.ctx))
	_, err = s.client.Me(s.ctx)
	s.ErrorIs(err, store.ErrUnauthenticated)
}

func (s *httpStoreSuite) TestLoginWrongPassword() {
	_, err := s.newClient().Login(s.ctx, "owner@example.com", "wrong-password")
	s.ErrorIs(err, ErrInvalidCredentials)
	s.ErrorIs(err, store.ErrUnauthenticated)
}

func (s *httpStoreSuite) TestCollectionRoundTrip() {
	req := models.Requirement{Name: "Billing", UserID: s.user.ID, Status: models.RequirementStatusActive}
	id, err := s.reqs.Create(s.ctx, &req)
	s.Require().NoError(err)
	s.Equal(id, req.ID)
	s.Equal(int64(1), req.Version)
	s.False(req.CreatedAt.IsZero())

	got, err := s.reqs.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NotNil(got)
	s.Equal("Billing", got.Name)

	version, err := s.reqs.Update(s.ctx, id, store.Fields{"name": "Billing v2"}, store.IfVersion(1))
	s.Require().NoError(err)
	s.Equal(int64(2), version)

	_, err = s.reqs.Update(s.ctx, id, store.Fields{"name": "stale"}, store.IfVersion(1))
	s.ErrorIs(err, store.ErrConflict)
	s.Equal(store.KindConflict, store.KindOf(err))

	list, err := s.reqs.List(s.ctx, store.Eq("user_id", s.user.ID))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("Billing v2", list[0].Name)

	s.Require().NoError(s.reqs.Delete(s.ctx, id))
	got, err = s.reqs.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Nil(got)

	err = s.reqs.Delete(s.ctx, id)
	s.ErrorIs(err, store.ErrNotFound)
	var se *store.Error
	s.Require().ErrorAs(err, &se)
	s.Equal(id, se.ID)
}

func (s *httpStoreSuite) TestBackdatedCreate() {
	parent := models.Requirement{Name: "Billing", UserID: s.user.ID}
	_, err := s.reqs.Create(s.ctx, &parent)
	s.Require().NoError(err)

	backdated := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	task := models.Task{
		Description:   "Fix totals",
		RequirementID: parent.ID,
		Status:        models.TaskStatusPending,
		Type:          models.TaskTypeUI,
		Priority:      models.TaskPriorityHigh,
		CreatedAt:     backdated,
	}
	_, err = s.tasks.Create(s.ctx, &task)
	s.Require().NoError(err)
	s.True(task.CreatedAt.Equal(backdated))

	list, err := s.tasks.List(s.ctx, store.Eq("requirement_id", parent.ID))
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.True(list[0].CreatedAt.Equal(backdated))
}

func (s *httpStoreSuite) TestPermissionDenied() {
	parent := models.Requirement{Name: "Private", UserID: s.user.ID}
	_, err := s.reqs.Create(s.ctx, &parent)
	s.Require().NoError(err)

	intruder, _ := s.signIn("intruder@example.com")
	theirs := NewCollection[models.Requirement](intruder, store.Requirements)

	_, err = theirs.Get(s.ctx, parent.ID)
	s.ErrorIs(err, store.ErrPermissionDenied)
	s.False(store.IsRetryable(err))

	_, err = theirs.List(s.ctx, store.Eq("user_id", s.user.ID))
	s.ErrorIs(err, store.ErrPermissionDenied)
}

func (s *httpStoreSuite) TestUnauthenticated() {
	anonymous := NewCollection[models.Requirement](s.newClient(), store.Requirements)

	_, err := anonymous.List(s.ctx, store.Eq("user_id", s.user.ID))
	s.ErrorIs(err, store.ErrUnauthenticated)
}

func (s *httpStoreSuite) TestServerDownIsUnavailable() {
	s.server.Close()

	_, err := s.reqs.List(s.ctx, store.Eq("user_id", s.user.ID))
	s.ErrorIs(err, store.ErrUnavailable)
	s.True(store.IsRetryable(err))
}

func (s *httpStoreSuite) TestRepositoriesOverHTTP() {
	clock := models.RealClock{}
	exec := retry.New(zerolog.Nop(), retry.WithBaseDelay(time.Millisecond))
	taskRepo := repository.NewTaskRepository(s.tasks, exec, clock)
	reqRepo := repository.NewRequirementRepository(s.reqs, taskRepo, exec,
		repository.StaticSession{UserID: s.user.ID}, clock)

	req, err := reqRepo.Create(s.ctx, models.RequirementInput{Name: "Portal"}, nil)
	s.Require().NoError(err)

	task, err := taskRepo.Create(s.ctx, models.TaskInput{
		Description:   "Login page",
		RequirementID: req.ID,
		Type:          models.TaskTypeUI,
		Priority:      models.TaskPriorityMedium,
	}, nil)
	s.Require().NoError(err)

	task, err = taskRepo.AddProgress(s.ctx, task.ID, models.ProgressInput{Description: "layout", TimeSpent: "2"}, nil, 0)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusInProgress, task.Status)
	s.Require().Len(task.Progress, 1)

	task, err = taskRepo.Complete(s.ctx, task.ID, models.TaskCompletion{Description: "done", TimeSpent: "1.5"}, nil, 0)
	s.Require().NoError(err)
	s.Equal(models.TaskStatusCompleted, task.Status)

	stored, err := taskRepo.Get(s.ctx, task.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.CompletionDetails)
	s.Equal("1.5", stored.CompletionDetails.TimeSpent)
	s.Len(stored.Progress, 1)

	deleted, err := reqRepo.Delete(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal([]string{task.ID}, deleted)
}

func (s *httpStoreSuite) TestCompletedRequirementKeepsEmptyTools() {
	exec := retry.New(zerolog.Nop(), retry.WithBaseDelay(time.Millisecond))
	clock := models.RealClock{}
	taskRepo := repository.NewTaskRepository(s.tasks, exec, clock)
	reqRepo := repository.NewRequirementRepository(s.reqs, taskRepo, exec,
		repository.StaticSession{UserID: s.user.ID}, clock)

	req, err := reqRepo.Create(s.ctx, models.RequirementInput{Name: "Portal"}, nil)
	s.Require().NoError(err)

	_, err = reqRepo.Complete(s.ctx, req.ID, models.RequirementCompletion{SentToQA: true})
	s.Require().NoError(err)

	stored, err := reqRepo.Get(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.RequirementStatusCompleted, stored.Status)
	s.Require().NotNil(stored.SentToQA)
	s.True(*stored.SentToQA)
	s.NotNil(stored.Tools)
	s.Empty(stored.Tools)
}

func TestNewClientRejectsURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", time.Second, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewClient("://bad", time.Second, zerolog.Nop())
	assert.Error(t, err)
}

func TestKindForStatus(t *testing.T) {
	tests := map[int]store.Kind{
		http.StatusBadRequest:          store.KindInvalidArgument,
		http.StatusUnauthorized:        store.KindUnauthenticated,
		http.StatusForbidden:           store.KindPermissionDenied,
		http.StatusNotFound:            store.KindNotFound,
		http.StatusConflict:            store.KindConflict,
		http.StatusPreconditionFailed:  store.KindConflict,
		http.StatusInternalServerError: store.KindUnavailable,
		http.StatusServiceUnavailable:  store.KindUnavailable,
		http.StatusTeapot:              store.KindUnknown,
	}
	for status, kind := range tests {
		require.Equal(t, kind, KindForStatus(status), http.StatusText(status))
	}
}
