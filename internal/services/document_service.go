package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/store"
)

var ErrUnknownCollection = errors.New("unknown collection")

// immutableFields cannot change once a document exists.
var immutableFields = map[string][]string{
	store.Requirements: {"user_id"},
	store.Tasks:        {"requirement_id"},
}

// DocumentService serves the requirement and task collections to their owners.
// A requirement belongs to its user_id; a task belongs to the owner of its requirement.
type DocumentService struct {
	requirements store.Collection[models.Requirement]
	tasks        store.Collection[models.Task]
	logger       zerolog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(requirements store.Collection[models.Requirement], tasks store.Collection[models.Task], logger zerolog.Logger) *DocumentService {
	return &DocumentService{
		requirements: requirements,
		tasks:        tasks,
		logger:       logger,
	}
}

// Create stores a new document for userID. Requirements are always owned by
// userID; tasks must reference a requirement userID owns.
func (s *DocumentService) Create(ctx context.Context, userID, collection string, fields store.Fields) (any, error) {
	switch collection {
	case store.Requirements:
		var req models.Requirement
		if err := decode(fields, &req); err != nil {
			return nil, invalid("create", collection, "", err)
		}
		req.ID = ""
		req.UserID = userID
		if req.Status == "" {
			req.Status = models.RequirementStatusActive
		}
		if strings.TrimSpace(req.Name) == "" {
			return nil, invalid("create", collection, "", models.NewValidationError("name", "name is required"))
		}
		if req.Type != nil && !req.Type.Valid() {
			return nil, invalid("create", collection, "", models.NewValidationError("type", "unknown requirement type %q", *req.Type))
		}
		if _, err := s.requirements.Create(ctx, &req); err != nil {
			return nil, err
		}
		s.logger.Info().Str("collection", collection).Str("id", req.ID).Str("user_id", userID).Msg("document created")
		return &req, nil

	case store.Tasks:
		var task models.Task
		if err := decode(fields, &task); err != nil {
			return nil, invalid("create", collection, "", err)
		}
		task.ID = ""
		if task.Status == "" {
			task.Status = models.TaskStatusPending
		}
		if strings.TrimSpace(task.Description) == "" {
			return nil, invalid("create", collection, "", models.NewValidationError("description", "description is required"))
		}
		if err := s.ownsRequirement(ctx, userID, task.RequirementID, "create", collection); err != nil {
			return nil, err
		}
		if _, err := s.tasks.Create(ctx, &task); err != nil {
			return nil, err
		}
		s.logger.Info().Str("collection", collection).Str("id", task.ID).Str("user_id", userID).Msg("document created")
		return &task, nil

	default:
		return nil, unknownCollection("create", collection)
	}
}

// Get returns a document userID can read.
func (s *DocumentService) Get(ctx context.Context, userID, collection, id string) (any, error) {
	switch collection {
	case store.Requirements:
		return s.requirement(ctx, userID, id, "get")
	case store.Tasks:
		return s.task(ctx, userID, id, "get")
	default:
		return nil, unknownCollection("get", collection)
	}
}

// List returns the documents matching filter. Requirements can only be listed
// by user_id == userID and tasks by the requirement_id of an owned requirement.
func (s *DocumentService) List(ctx context.Context, userID, collection string, filter *store.Filter) (any, error) {
	switch collection {
	case store.Requirements:
		if filter == nil || filter.Field != "user_id" || fmt.Sprint(filter.Value) != userID {
			return nil, denied("list", collection, "")
		}
		return s.requirements.List(ctx, filter)

	case store.Tasks:
		if filter == nil || filter.Field != "requirement_id" {
			return nil, denied("list", collection, "")
		}
		if err := s.ownsRequirement(ctx, userID, fmt.Sprint(filter.Value), "list", collection); err != nil {
			return nil, err
		}
		return s.tasks.List(ctx, filter)

	default:
		return nil, unknownCollection("list", collection)
	}
}

// Update merges fields into a document userID owns and returns its new version.
func (s *DocumentService) Update(ctx context.Context, userID, collection, id string, fields store.Fields, opts ...store.UpdateOption) (int64, error) {
	var current map[string]any
	switch collection {
	case store.Requirements:
		req, err := s.requirement(ctx, userID, id, "update")
		if err != nil {
			return 0, err
		}
		current = map[string]any{"user_id": req.UserID}
	case store.Tasks:
		task, err := s.task(ctx, userID, id, "update")
		if err != nil {
			return 0, err
		}
		current = map[string]any{"requirement_id": task.RequirementID}
	default:
		return 0, unknownCollection("update", collection)
	}

	for _, field := range immutableFields[collection] {
		if v, ok := fields[field]; ok && fmt.Sprint(v) != fmt.Sprint(current[field]) {
			return 0, invalid("update", collection, id, models.NewValidationError(field, "%s cannot change", field))
		}
	}
	if err := requireNonEmpty(fields, "name", "description"); err != nil {
		return 0, invalid("update", collection, id, err)
	}

	var (
		version int64
		err     error
	)
	if collection == store.Requirements {
		version, err = s.requirements.Update(ctx, id, fields, opts...)
	} else {
		version, err = s.tasks.Update(ctx, id, fields, opts...)
	}
	if err != nil {
		return 0, err
	}
	s.logger.Debug().Str("collection", collection).Str("id", id).Int64("version", version).Msg("document updated")
	return version, nil
}

// Delete removes a document userID owns.
func (s *DocumentService) Delete(ctx context.Context, userID, collection, id string) error {
	switch collection {
	case store.Requirements:
		if _, err := s.requirement(ctx, userID, id, "delete"); err != nil {
			return err
		}
		return s.requirements.Delete(ctx, id)
	case store.Tasks:
		if _, err := s.task(ctx, userID, id, "delete"); err != nil {
			return err
		}
		return s.tasks.Delete(ctx, id)
	default:
		return unknownCollection("delete", collection)
	}
}

func (s *DocumentService) requirement(ctx context.Context, userID, id, op string) (*models.Requirement, error) {
	req, err := s.requirements.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, store.NewError(store.KindNotFound, op, store.Requirements, id, nil)
	}
	if req.UserID != userID {
		return nil, denied(op, store.Requirements, id)
	}
	return req, nil
}

func (s *DocumentService) task(ctx context.Context, userID, id, op string) (*models.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, store.NewError(store.KindNotFound, op, store.Tasks, id, nil)
	}
	if err := s.ownsRequirement(ctx, userID, task.RequirementID, op, store.Tasks); err != nil {
		return nil, err
	}
	return task, nil
}

// ownsRequirement fails with permission denied unless requirementID exists and belongs to userID.
func (s *DocumentService) ownsRequirement(ctx context.Context, userID, requirementID, op, collection string) error {
	if requirementID == "" {
		return invalid(op, collection, "", models.NewValidationError("requirement_id", "requirement_id is required"))
	}
	req, err := s.requirements.Get(ctx, requirementID)
	if err != nil {
		return err
	}
	if req == nil || req.UserID != userID {
		return denied(op, collection, requirementID)
	}
	return nil
}

func decode(fields store.Fields, out any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func requireNonEmpty(fields store.Fields, names ...string) error {
	for _, name := range names {
		v, ok := fields[name]
		if !ok {
			continue
		}
		if s, isString := v.(string); !isString || strings.TrimSpace(s) == "" {
			return models.NewValidationError(name, "%s cannot be empty", name)
		}
	}
	return nil
}

func invalid(op, collection, id string, cause error) error {
	return store.NewError(store.KindInvalidArgument, op, collection, id,
		fmt.Errorf("%w: %w", store.ErrInvalidArgument, cause))
}

func denied(op, collection, id string) error {
	return store.NewError(store.KindPermissionDenied, op, collection, id, nil)
}

func unknownCollection(op, collection string) error {
	return store.NewError(store.KindNotFound, op, collection, "",
		fmt.Errorf("%w: %s", ErrUnknownCollection, collection))
}
