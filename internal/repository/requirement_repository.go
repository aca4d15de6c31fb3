package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/retry"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

// RequirementRepository reads and writes the requirements of the session user.
type RequirementRepository struct {
	docs    store.Collection[models.Requirement]
	tasks   *TaskRepository
	retry   *retry.Executor
	session SessionSource
	clock   models.Clock
}

// NewRequirementRepository creates a new RequirementRepository. Deleting a
// requirement cascades through tasks.
func NewRequirementRepository(docs store.Collection[models.Requirement], tasks *TaskRepository, exec *retry.Executor, session SessionSource, clock models.Clock) *RequirementRepository {
	if clock == nil {
		clock = models.RealClock{}
	}
	return &RequirementRepository{
		docs:    docs,
		tasks:   tasks,
		retry:   exec,
		session: session,
		clock:   clock,
	}
}

// Build validates in and returns the record to persist, owned by the session user.
// Optional fields stay absent unless supplied; the estimate is kept only when
// HasEstimate is set.
func (r *RequirementRepository) Build(in models.RequirementInput, customDate *time.Time) (models.Requirement, error) {
	if err := in.Validate(); err != nil {
		return models.Requirement{}, err
	}
	session := r.session.Session()
	if !session.Authenticated() {
		return models.Requirement{}, fmt.Errorf("%w: no authenticated user", store.ErrUnauthenticated)
	}

	req := models.Requirement{
		Name:        in.Name,
		Status:      models.RequirementStatusActive,
		Type:        in.Type,
		HasEstimate: in.HasEstimate,
		UserID:      session.UserID,
	}
	if in.HasEstimate != nil && *in.HasEstimate && in.EstimatedTime != nil {
		req.EstimatedTime = in.EstimatedTime
	}
	if customDate != nil {
		if customDate.After(r.clock.Now()) {
			return models.Requirement{}, models.NewValidationError("created_at", "date cannot be in the future")
		}
		req.CreatedAt = *customDate
	}
	return req.Clone(), nil
}

// Insert persists a built requirement and fills in its server assigned fields.
func (r *RequirementRepository) Insert(ctx context.Context, req *models.Requirement) (string, error) {
	return retry.Value(ctx, r.retry, msgCreateRequirement, func(ctx context.Context) (string, error) {
		return r.docs.Create(ctx, req)
	})
}

// Create builds and persists a requirement.
func (r *RequirementRepository) Create(ctx context.Context, in models.RequirementInput, customDate *time.Time) (*models.Requirement, error) {
	req, err := r.Build(in, customDate)
	if err != nil {
		return nil, err
	}
	if _, err := r.Insert(ctx, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Get returns the requirement, or nil when it does not exist.
func (r *RequirementRepository) Get(ctx context.Context, id string) (*models.Requirement, error) {
	return r.docs.Get(ctx, id)
}

// ListByUser returns the requirements owned by userID.
func (r *RequirementRepository) ListByUser(ctx context.Context, userID string) ([]models.Requirement, error) {
	return r.docs.List(ctx, store.Eq("user_id", userID))
}

// Update merges patch into the stored requirement and returns its new version.
func (r *RequirementRepository) Update(ctx context.Context, id string, patch models.RequirementPatch) (int64, error) {
	if err := patch.Validate(); err != nil {
		return 0, err
	}
	return retry.Value(ctx, r.retry, msgUpdateRequirement, func(ctx context.Context) (int64, error) {
		return r.docs.Update(ctx, id, patch.Fields())
	})
}

// CompletionPatch returns the patch completing a requirement now.
func (r *RequirementRepository) CompletionPatch(c models.RequirementCompletion) models.RequirementPatch {
	return models.CompletionPatch(c, r.clock.Now())
}

// Complete marks the requirement completed. There is no way back to active.
func (r *RequirementRepository) Complete(ctx context.Context, id string, c models.RequirementCompletion) (int64, error) {
	return r.Update(ctx, id, r.CompletionPatch(c))
}

// Delete removes every task of the requirement and then the requirement. The
// cascade is not atomic: when a task deletion fails the ones already deleted
// stay deleted and the requirement is kept. The ids of the deleted tasks are
// returned in both cases.
func (r *RequirementRepository) Delete(ctx context.Context, id string) ([]string, error) {
	tasks, err := r.tasks.ListByRequirement(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of requirement %s: %w", id, err)
	}

	deleted := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if err := r.tasks.Delete(ctx, task.ID); err != nil {
			return deleted, fmt.Errorf("failed to delete task %s of requirement %s: %w", task.ID, id, err)
		}
		deleted = append(deleted, task.ID)
	}

	err = r.retry.Do(ctx, msgDeleteRequirement, func(ctx context.Context) error {
		return r.docs.Delete(ctx, id)
	})
	return deleted, err
}
