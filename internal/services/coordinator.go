package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yukikurage/consultant-worklog/internal/cache"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/repository"
	"github.com/yukikurage/consultant-worklog/internal/retry"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/timesheet"
)

// TempIDPrefix marks ids assigned locally before the server confirmed a create.
const TempIDPrefix = "tmp-"

var (
	ErrPendingCreate       = errors.New("document is still being created")
	ErrRequirementNotFound = errors.New("requirement not found")
	ErrTaskNotFound        = errors.New("task not found")
)

// IsTempID reports whether id was assigned locally.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// CoordinatorDeps are the collaborators of a Coordinator.
type CoordinatorDeps struct {
	Requirements store.Collection[models.Requirement]
	Tasks        store.Collection[models.Task]
	Retry        *retry.Executor
	Logger       zerolog.Logger
	Clock        models.Clock

	// OnSessionRevoked runs after a load fails because the session lost access.
	OnSessionRevoked func()
}

// Coordinator keeps the local cache of the session user's requirements and
// tasks and applies every mutation optimistically: the cache changes first,
// the remote write follows. Failed creates and deletes are reverted; failed
// in-place updates are reported but left applied until the next Load.
type Coordinator struct {
	requirements *repository.RequirementRepository
	tasks        *repository.TaskRepository
	cache        *cache.Cache
	clock        models.Clock
	logger       zerolog.Logger
	newTempID    func() string
	onRevoked    func()

	mu        sync.RWMutex
	session   models.Session
	loading   bool
	lastError error
}

// NewCoordinator creates a Coordinator with an empty cache and no session.
func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	clock := deps.Clock
	if clock == nil {
		clock = models.RealClock{}
	}
	exec := deps.Retry
	if exec == nil {
		exec = retry.New(deps.Logger)
	}

	c := &Coordinator{
		cache:     cache.New(),
		clock:     clock,
		logger:    deps.Logger,
		newTempID: func() string { return TempIDPrefix + uuid.NewString() },
		onRevoked: deps.OnSessionRevoked,
	}
	c.tasks = repository.NewTaskRepository(deps.Tasks, exec, clock)
	c.requirements = repository.NewRequirementRepository(deps.Requirements, c.tasks, exec, c, clock)
	return c
}

// Session implements repository.SessionSource.
func (c *Coordinator) Session() models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// SetSession switches the principal. The cache is cleared when the user changes.
func (c *Coordinator) SetSession(s models.Session) {
	c.mu.Lock()
	changed := c.session.UserID != s.UserID
	c.session = s
	c.mu.Unlock()

	if changed {
		c.cache.Clear()
	}
}

// SignOut forgets the session and everything cached for it.
func (c *Coordinator) SignOut() {
	c.mu.Lock()
	c.session = models.Session{}
	c.mu.Unlock()
	c.cache.Clear()
}

// Loading reports whether a Load is running.
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// LastError returns the most recent remote failure, or nil.
func (c *Coordinator) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// ClearError dismisses the last error.
func (c *Coordinator) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = nil
}

func (c *Coordinator) Requirements() []models.Requirement {
	return c.cache.Requirements()
}

func (c *Coordinator) Requirement(id string) (models.Requirement, bool) {
	return c.cache.Requirement(id)
}

func (c *Coordinator) Task(id string) (models.Task, bool) {
	return c.cache.Task(id)
}

// SelectedRequirementID returns the selected requirement, or "".
func (c *Coordinator) SelectedRequirementID() string {
	return c.cache.Selected()
}

// SelectRequirement changes the selection. An empty id clears it.
func (c *Coordinator) SelectRequirement(id string) error {
	if !c.cache.Select(id) {
		return fmt.Errorf("%w: %s", ErrRequirementNotFound, id)
	}
	return nil
}

// TasksForSelected returns the tasks of the selected requirement.
func (c *Coordinator) TasksForSelected() []models.Task {
	selected := c.cache.Selected()
	if selected == "" {
		return []models.Task{}
	}
	return c.cache.TasksFor(selected)
}

// TasksFor returns the cached tasks of a requirement.
func (c *Coordinator) TasksFor(requirementID string) []models.Task {
	return c.cache.TasksFor(requirementID)
}

// AllTasks returns every cached task.
func (c *Coordinator) AllTasks() []models.Task {
	return c.cache.Tasks()
}

// IsTaskBusy reports whether a mutation of the task is in flight.
func (c *Coordinator) IsTaskBusy(id string) bool {
	return c.cache.Busy(id)
}

// BusyTasks returns the ids of the tasks with a mutation in flight.
func (c *Coordinator) BusyTasks() map[string]bool {
	return c.cache.BusyFlags()
}

// DailySummary computes the time accounting of day from the cache.
func (c *Coordinator) DailySummary(day time.Time) timesheet.Summary {
	return timesheet.Summarize(day, c.cache.Tasks(), c.cache.Requirements(), c.Session().Training)
}

// Load replaces the cache with the session user's requirements and their
// tasks and selects the first requirement. Losing access tears the session
// down; a failed task listing leaves the task set empty.
func (c *Coordinator) Load(ctx context.Context) error {
	session := c.Session()
	if !session.Authenticated() {
		c.cache.Clear()
		return fmt.Errorf("%w: no authenticated user", store.ErrUnauthenticated)
	}

	c.setLoading(true)
	defer c.setLoading(false)

	requirements, err := c.requirements.ListByUser(ctx, session.UserID)
	if err != nil {
		if lostAccess(err) {
			c.revoke(err)
		} else {
			c.fail(err, "Could not load the requirements")
		}
		return err
	}

	tasks := []models.Task{}
	for _, r := range requirements {
		list, err := c.tasks.ListByRequirement(ctx, r.ID)
		if err != nil {
			if lostAccess(err) {
				c.revoke(err)
				return err
			}
			c.fail(err, "Could not load the tasks")
			tasks = []models.Task{}
			break
		}
		tasks = append(tasks, list...)
	}

	c.cache.Reset(requirements, tasks)
	c.cache.SelectFirst()
	c.logger.Debug().
		Int("requirements", len(requirements)).
		Int("tasks", len(tasks)).
		Msg("cache loaded")
	return nil
}

// CreateRequirement adds a requirement under a temporary id, persists it and
// swaps in the server id. The local entry is removed if the write fails.
func (c *Coordinator) CreateRequirement(ctx context.Context, in models.RequirementInput, customDate *time.Time) (*models.Requirement, error) {
	req, err := c.requirements.Build(in, customDate)
	if err != nil {
		return nil, c.reject(err)
	}

	tempID := c.newTempID()
	local := req.Clone()
	local.ID = tempID
	if local.CreatedAt.IsZero() {
		local.CreatedAt = c.clock.Now()
	}
	c.cache.PutRequirement(local)

	if _, err := c.requirements.Insert(ctx, &req); err != nil {
		c.cache.RemoveRequirement(tempID)
		if c.cache.Selected() == tempID {
			c.cache.Select("")
		}
		return nil, c.fail(err, "Could not create the requirement")
	}

	c.cache.ReplaceRequirementID(tempID, req)
	if c.cache.Selected() == "" {
		c.cache.Select(req.ID)
	}
	return &req, nil
}

// UpdateRequirement merges patch into the requirement.
func (c *Coordinator) UpdateRequirement(ctx context.Context, id string, patch models.RequirementPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return c.mutateRequirement(ctx, id, patch, "Could not update the requirement")
}

// CompleteRequirement marks the requirement completed.
func (c *Coordinator) CompleteRequirement(ctx context.Context, id string, completion models.RequirementCompletion) error {
	return c.mutateRequirement(ctx, id, c.requirements.CompletionPatch(completion), "Could not complete the requirement")
}

func (c *Coordinator) mutateRequirement(ctx context.Context, id string, patch models.RequirementPatch, message string) error {
	if err := c.requireCachedRequirement(id); err != nil {
		return err
	}
	c.cache.UpdateRequirement(id, patch.Apply)

	version, err := c.requirements.Update(ctx, id, patch)
	if err != nil {
		return c.fail(err, message)
	}
	c.cache.UpdateRequirement(id, func(r *models.Requirement) {
		r.Version = version
		r.UpdatedAt = c.clock.Now()
	})
	return nil
}

// DeleteRequirement removes the requirement and its tasks. When the cascade
// fails part way, the tasks already deleted stay gone and the rest come back.
func (c *Coordinator) DeleteRequirement(ctx context.Context, id string) error {
	if err := c.requireCachedRequirement(id); err != nil {
		return err
	}

	removed, index, _ := c.cache.RemoveRequirement(id)
	removedTasks := c.cache.RemoveTasksFor(id)
	wasSelected := c.cache.Selected() == id
	if wasSelected {
		c.cache.SelectFirst()
	}

	deleted, err := c.requirements.Delete(ctx, id)
	if err != nil {
		gone := make(map[string]bool, len(deleted))
		for _, taskID := range deleted {
			gone[taskID] = true
		}
		c.cache.RestoreRequirement(removed, index)
		for _, t := range removedTasks {
			if !gone[t.ID] {
				c.cache.PutTask(t)
			}
		}
		if wasSelected {
			c.cache.Select(id)
		}
		return c.fail(err, "Could not delete the requirement")
	}
	return nil
}

// CreateTask adds a task under a temporary id, persists it and swaps in the
// server id. The requirement must already exist on the server.
func (c *Coordinator) CreateTask(ctx context.Context, in models.TaskInput, customDate *time.Time) (*models.Task, error) {
	task, err := c.tasks.Build(in, customDate)
	if err != nil {
		return nil, c.reject(err)
	}
	if IsTempID(in.RequirementID) {
		return nil, models.NewValidationError("requirement_id", "the requirement is still being created")
	}
	if _, ok := c.cache.Requirement(in.RequirementID); !ok {
		return nil, models.NewValidationError("requirement_id", "unknown requirement %q", in.RequirementID)
	}

	tempID := c.newTempID()
	local := task.Clone()
	local.ID = tempID
	if local.CreatedAt.IsZero() {
		local.CreatedAt = c.clock.Now()
	}
	c.cache.PutTask(local)
	c.cache.MarkBusy(tempID)

	if _, err := c.tasks.Insert(ctx, &task); err != nil {
		c.cache.RemoveTask(tempID)
		c.cache.ClearBusy(tempID)
		return nil, c.fail(err, "Could not create the task")
	}

	c.cache.ReplaceTaskID(tempID, task)
	c.cache.ClearBusy(task.ID)
	return &task, nil
}

// UpdateTask applies the user editable fields of patch.
func (c *Coordinator) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	return c.mutateTask(ctx, id, "Could not update the task",
		func(t *models.Task) (models.TaskPatch, error) {
			patch.Apply(t)
			return patch, nil
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.Update(ctx, id, patch, version)
		})
}

// UpdateTaskStatus moves the task to pending or in-progress.
func (c *Coordinator) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	return c.mutateTask(ctx, id, "Could not update the task status",
		func(t *models.Task) (models.TaskPatch, error) {
			return t.TransitionTo(status)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.UpdateStatus(ctx, id, status, version)
		})
}

// CompleteTask completes the task, dated customDate or now.
func (c *Coordinator) CompleteTask(ctx context.Context, id string, completion models.TaskCompletion, customDate *time.Time) error {
	details, err := c.tasks.CompletionDetails(completion, customDate)
	if err != nil {
		return err
	}
	return c.mutateTask(ctx, id, "Could not complete the task",
		func(t *models.Task) (models.TaskPatch, error) {
			return t.Complete(details), nil
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.ApplyCompletion(ctx, id, details, version)
		})
}

// AddProgress appends a progress entry dated customDate or now.
func (c *Coordinator) AddProgress(ctx context.Context, id string, in models.ProgressInput, customDate *time.Time) error {
	entry, err := c.tasks.NewProgressEntry(in, customDate)
	if err != nil {
		return err
	}
	return c.mutateTask(ctx, id, "Could not add the progress entry",
		func(t *models.Task) (models.TaskPatch, error) {
			return t.AppendProgress(entry), nil
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.AppendProgress(ctx, id, entry, version)
		})
}

// EditProgress rewrites the progress entry with entryID.
func (c *Coordinator) EditProgress(ctx context.Context, id, entryID string, in models.ProgressInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return c.mutateTask(ctx, id, "Could not edit the progress entry",
		func(t *models.Task) (models.TaskPatch, error) {
			index := t.ProgressIndex(entryID)
			if index < 0 {
				return models.TaskPatch{}, fmt.Errorf("%w: %s", models.ErrProgressNotFound, entryID)
			}
			return t.ReviseProgress(index, in)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.EditProgress(ctx, id, entryID, in, version)
		})
}

// EditProgressAt rewrites the progress entry at index.
func (c *Coordinator) EditProgressAt(ctx context.Context, id string, index int, in models.ProgressInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return c.mutateTask(ctx, id, "Could not edit the progress entry",
		func(t *models.Task) (models.TaskPatch, error) {
			return t.ReviseProgress(index, in)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.EditProgressAt(ctx, id, index, in, version)
		})
}

// DeleteProgress removes the progress entry with entryID.
func (c *Coordinator) DeleteProgress(ctx context.Context, id, entryID string) error {
	return c.mutateTask(ctx, id, "Could not delete the progress entry",
		func(t *models.Task) (models.TaskPatch, error) {
			index := t.ProgressIndex(entryID)
			if index < 0 {
				return models.TaskPatch{}, fmt.Errorf("%w: %s", models.ErrProgressNotFound, entryID)
			}
			return t.RemoveProgress(index)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.DeleteProgress(ctx, id, entryID, version)
		})
}

// DeleteProgressAt removes the progress entry at index.
func (c *Coordinator) DeleteProgressAt(ctx context.Context, id string, index int) error {
	return c.mutateTask(ctx, id, "Could not delete the progress entry",
		func(t *models.Task) (models.TaskPatch, error) {
			return t.RemoveProgress(index)
		},
		func(ctx context.Context, version int64) (*models.Task, error) {
			return c.tasks.DeleteProgressAt(ctx, id, index, version)
		})
}

// DeleteTask removes the task, putting it back if the remote delete fails.
func (c *Coordinator) DeleteTask(ctx context.Context, id string) error {
	if _, err := c.requireCachedTask(id); err != nil {
		return err
	}

	removed, index, _ := c.cache.RemoveTask(id)
	c.cache.MarkBusy(id)
	defer c.cache.ClearBusy(id)

	if err := c.tasks.Delete(ctx, id); err != nil {
		c.cache.RestoreTask(removed, index)
		return c.fail(err, "Could not delete the task")
	}
	return nil
}

// mutateTask applies local to the cached task, then runs remote with the
// cached version. On success the cache takes the server's copy; on failure
// the optimistic change stays and the error is recorded.
func (c *Coordinator) mutateTask(
	ctx context.Context,
	id, message string,
	local func(*models.Task) (models.TaskPatch, error),
	remote func(ctx context.Context, version int64) (*models.Task, error),
) error {
	cached, err := c.requireCachedTask(id)
	if err != nil {
		return err
	}

	draft := cached.Clone()
	patch, err := local(&draft)
	if err != nil {
		return err
	}
	c.cache.UpdateTask(id, patch.Apply)

	c.cache.MarkBusy(id)
	defer c.cache.ClearBusy(id)

	updated, err := remote(ctx, cached.Version)
	if err != nil {
		return c.fail(err, message)
	}
	c.cache.PutTask(*updated)
	return nil
}

func (c *Coordinator) requireCachedRequirement(id string) error {
	if IsTempID(id) {
		return fmt.Errorf("%w: %s", ErrPendingCreate, id)
	}
	if _, ok := c.cache.Requirement(id); !ok {
		return fmt.Errorf("%w: %s", ErrRequirementNotFound, id)
	}
	return nil
}

func (c *Coordinator) requireCachedTask(id string) (models.Task, error) {
	if IsTempID(id) {
		return models.Task{}, fmt.Errorf("%w: %s", ErrPendingCreate, id)
	}
	t, ok := c.cache.Task(id)
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// reject passes validation errors through untouched and records anything else.
func (c *Coordinator) reject(err error) error {
	if errors.Is(err, models.ErrValidation) {
		return err
	}
	return c.fail(err, "Operation rejected")
}

func (c *Coordinator) fail(err error, message string) error {
	c.logger.Error().Err(err).Msg(message)

	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
	return err
}

func (c *Coordinator) revoke(err error) {
	c.logger.Warn().Err(err).Msg("access revoked, signing out")
	c.SignOut()

	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()

	if c.onRevoked != nil {
		c.onRevoked()
	}
}

func (c *Coordinator) setLoading(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = v
}

func lostAccess(err error) bool {
	return errors.Is(err, store.ErrPermissionDenied) || errors.Is(err, store.ErrUnauthenticated)
}
