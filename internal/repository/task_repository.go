package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/retry"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

// TaskRepository reads and writes tasks through the remote store. Every write
// is a read-modify-write guarded by the task version.
type TaskRepository struct {
	docs  store.Collection[models.Task]
	retry *retry.Executor
	clock models.Clock
	newID func() string
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(docs store.Collection[models.Task], exec *retry.Executor, clock models.Clock) *TaskRepository {
	if clock == nil {
		clock = models.RealClock{}
	}
	return &TaskRepository{
		docs:  docs,
		retry: exec,
		clock: clock,
		newID: uuid.NewString,
	}
}

// Build validates in and returns the task record to persist. A zero CreatedAt
// leaves the timestamp to the server.
func (r *TaskRepository) Build(in models.TaskInput, customDate *time.Time) (models.Task, error) {
	if err := in.Validate(); err != nil {
		return models.Task{}, err
	}
	createdAt, err := r.backdate(customDate)
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		Description:   in.Description,
		RequirementID: in.RequirementID,
		Status:        models.TaskStatusPending,
		Type:          in.Type,
		Priority:      in.Priority,
		CreatedAt:     createdAt,
	}
	if in.Feedback != nil {
		task.Feedback = *in.Feedback
	}
	return task, nil
}

// Insert persists a built task and fills in its server assigned fields.
func (r *TaskRepository) Insert(ctx context.Context, task *models.Task) (string, error) {
	return retry.Value(ctx, r.retry, msgCreateTask, func(ctx context.Context) (string, error) {
		return r.docs.Create(ctx, task)
	})
}

// Create builds and persists a task.
func (r *TaskRepository) Create(ctx context.Context, in models.TaskInput, customDate *time.Time) (*models.Task, error) {
	task, err := r.Build(in, customDate)
	if err != nil {
		return nil, err
	}
	if _, err := r.Insert(ctx, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Get returns the task, or nil when it does not exist.
func (r *TaskRepository) Get(ctx context.Context, id string) (*models.Task, error) {
	return r.docs.Get(ctx, id)
}

// ListByRequirement returns the tasks of a requirement.
func (r *TaskRepository) ListByRequirement(ctx context.Context, requirementID string) ([]models.Task, error) {
	return r.docs.List(ctx, store.Eq("requirement_id", requirementID))
}

// Update applies the user editable fields of patch.
func (r *TaskRepository) Update(ctx context.Context, id string, patch models.TaskPatch, expectedVersion int64) (*models.Task, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return r.mutate(ctx, msgUpdateTask, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		patch.Apply(t)
		return patch, nil
	})
}

// UpdateStatus moves the task to pending or in-progress. Completion goes through Complete.
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus, expectedVersion int64) (*models.Task, error) {
	return r.mutate(ctx, msgUpdateTaskStatus, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		return t.TransitionTo(status)
	})
}

// CompletionDetails validates c and stamps it with customDate, or now.
func (r *TaskRepository) CompletionDetails(c models.TaskCompletion, customDate *time.Time) (models.CompletionDetails, error) {
	if err := c.Validate(); err != nil {
		return models.CompletionDetails{}, err
	}
	at := r.clock.Now()
	if customDate != nil {
		at = *customDate
	}
	return c.Details(at), nil
}

// Complete marks the task completed.
func (r *TaskRepository) Complete(ctx context.Context, id string, c models.TaskCompletion, customDate *time.Time, expectedVersion int64) (*models.Task, error) {
	details, err := r.CompletionDetails(c, customDate)
	if err != nil {
		return nil, err
	}
	return r.ApplyCompletion(ctx, id, details, expectedVersion)
}

// ApplyCompletion completes the task with already built details.
func (r *TaskRepository) ApplyCompletion(ctx context.Context, id string, details models.CompletionDetails, expectedVersion int64) (*models.Task, error) {
	return r.mutate(ctx, msgCompleteTask, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		return t.Complete(details), nil
	})
}

// NewProgressEntry validates in and builds an entry dated customDate, or now.
func (r *TaskRepository) NewProgressEntry(in models.ProgressInput, customDate *time.Time) (models.ProgressEntry, error) {
	if err := in.Validate(); err != nil {
		return models.ProgressEntry{}, err
	}
	now := r.clock.Now()
	date := now
	if customDate != nil {
		date = *customDate
	}
	return models.ProgressEntry{
		ID:          r.newID(),
		Date:        date,
		Description: in.Description,
		TimeSpent:   in.TimeSpent,
		CreatedAt:   now,
	}, nil
}

// AddProgress appends a new progress entry.
func (r *TaskRepository) AddProgress(ctx context.Context, id string, in models.ProgressInput, customDate *time.Time, expectedVersion int64) (*models.Task, error) {
	entry, err := r.NewProgressEntry(in, customDate)
	if err != nil {
		return nil, err
	}
	return r.AppendProgress(ctx, id, entry, expectedVersion)
}

// AppendProgress appends an already built entry, promoting a pending task to in-progress.
func (r *TaskRepository) AppendProgress(ctx context.Context, id string, entry models.ProgressEntry, expectedVersion int64) (*models.Task, error) {
	return r.mutate(ctx, msgAddProgress, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		return t.AppendProgress(entry), nil
	})
}

// EditProgress rewrites the entry with the given id.
func (r *TaskRepository) EditProgress(ctx context.Context, id, entryID string, in models.ProgressInput, expectedVersion int64) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return r.mutate(ctx, msgEditProgress, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		index := t.ProgressIndex(entryID)
		if index < 0 {
			return models.TaskPatch{}, fmt.Errorf("%w: %s", models.ErrProgressNotFound, entryID)
		}
		return t.ReviseProgress(index, in)
	})
}

// EditProgressAt rewrites the entry at index.
func (r *TaskRepository) EditProgressAt(ctx context.Context, id string, index int, in models.ProgressInput, expectedVersion int64) (*models.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return r.mutate(ctx, msgEditProgress, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		return t.ReviseProgress(index, in)
	})
}

// DeleteProgress removes the entry with the given id.
func (r *TaskRepository) DeleteProgress(ctx context.Context, id, entryID string, expectedVersion int64) (*models.Task, error) {
	return r.mutate(ctx, msgDeleteProgress, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		index := t.ProgressIndex(entryID)
		if index < 0 {
			return models.TaskPatch{}, fmt.Errorf("%w: %s", models.ErrProgressNotFound, entryID)
		}
		return t.RemoveProgress(index)
	})
}

// DeleteProgressAt removes the entry at index.
func (r *TaskRepository) DeleteProgressAt(ctx context.Context, id string, index int, expectedVersion int64) (*models.Task, error) {
	return r.mutate(ctx, msgDeleteProgress, id, expectedVersion, func(t *models.Task) (models.TaskPatch, error) {
		return t.RemoveProgress(index)
	})
}

// Delete removes the task.
func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.retry.Do(ctx, msgDeleteTask, func(ctx context.Context) error {
		return r.docs.Delete(ctx, id)
	})
}

// mutate reads the task, checks expectedVersion (0 accepts any), lets fn derive
// a patch and writes it back conditioned on the version that was read.
func (r *TaskRepository) mutate(ctx context.Context, message, id string, expectedVersion int64, fn func(*models.Task) (models.TaskPatch, error)) (*models.Task, error) {
	return retry.Value(ctx, r.retry, message, func(ctx context.Context) (*models.Task, error) {
		task, err := r.docs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if task == nil {
			return nil, store.NewError(store.KindNotFound, "update", store.Tasks, id, nil)
		}
		if expectedVersion != 0 && task.Version != expectedVersion {
			return nil, store.NewError(store.KindConflict, "update", store.Tasks, id,
				fmt.Errorf("%w: expected version %d, found %d", store.ErrConflict, expectedVersion, task.Version))
		}

		read := task.Version
		patch, err := fn(task)
		if err != nil {
			return nil, err
		}
		version, err := r.docs.Update(ctx, id, patch.Fields(), store.IfVersion(read))
		if err != nil {
			return nil, err
		}
		task.Version = version
		task.UpdatedAt = r.clock.Now()
		return task, nil
	})
}

func (r *TaskRepository) backdate(customDate *time.Time) (time.Time, error) {
	if customDate == nil {
		return time.Time{}, nil
	}
	if customDate.After(r.clock.Now()) {
		return time.Time{}, models.NewValidationError("created_at", "date cannot be in the future")
	}
	return *customDate, nil
}
