package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/models"
	"github.com/yukikurage/consultant-worklog/internal/store"
	"github.com/yukikurage/consultant-worklog/internal/store/storetest"
)

func newDocumentService(t *testing.T) *DocumentService {
	t.Helper()
	reqs, tasks := storetest.Collections(t)
	return NewDocumentService(reqs, tasks, zerolog.Nop())
}

func createRequirement(t *testing.T, svc *DocumentService, userID, name string) *models.Requirement {
	t.Helper()
	doc, err := svc.Create(context.Background(), userID, store.Requirements, store.Fields{"name": name})
	require.NoError(t, err)
	return doc.(*models.Requirement)
}

func createTask(t *testing.T, svc *DocumentService, userID, requirementID string) *models.Task {
	t.Helper()
	doc, err := svc.Create(context.Background(), userID, store.Tasks, store.Fields{
		"description":    "Build the form",
		"requirement_id": requirementID,
	})
	require.NoError(t, err)
	return doc.(*models.Task)
}

func TestDocumentService_CreateRequirementForcesOwner(t *testing.T) {
	svc := newDocumentService(t)

	doc, err := svc.Create(context.Background(), "alice", store.Requirements, store.Fields{
		"name":    "Billing",
		"user_id": "mallory",
		"type":    "INC",
	})
	require.NoError(t, err)

	req := doc.(*models.Requirement)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "alice", req.UserID)
	assert.Equal(t, models.RequirementStatusActive, req.Status)
	assert.Equal(t, int64(1), req.Version)
	assert.False(t, req.CreatedAt.IsZero())
}

func TestDocumentService_CreateKeepsSuppliedCreatedAt(t *testing.T) {
	svc := newDocumentService(t)
	req := createRequirement(t, svc, "alice", "Billing")
	backdated := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	doc, err := svc.Create(context.Background(), "alice", store.Tasks, store.Fields{
		"description":    "Fix totals",
		"requirement_id": req.ID,
		"created_at":     backdated,
	})
	require.NoError(t, err)
	assert.True(t, doc.(*models.Task).CreatedAt.Equal(backdated))
}

func TestDocumentService_CreateValidation(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", store.Requirements, store.Fields{"name": "  "})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = svc.Create(ctx, "alice", store.Requirements, store.Fields{"name": "X", "type": "NOPE"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = svc.Create(ctx, "alice", store.Tasks, store.Fields{"description": "orphan"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)
}

func TestDocumentService_TaskRequiresOwnedRequirement(t *testing.T) {
	svc := newDocumentService(t)
	req := createRequirement(t, svc, "alice", "Billing")

	_, err := svc.Create(context.Background(), "bob", store.Tasks, store.Fields{
		"description":    "sneaky",
		"requirement_id": req.ID,
	})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.Create(context.Background(), "alice", store.Tasks, store.Fields{
		"description":    "missing parent",
		"requirement_id": "does-not-exist",
	})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)
}

func TestDocumentService_GetChecksOwnership(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()
	req := createRequirement(t, svc, "alice", "Billing")
	task := createTask(t, svc, "alice", req.ID)

	doc, err := svc.Get(ctx, "alice", store.Requirements, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Billing", doc.(*models.Requirement).Name)

	_, err = svc.Get(ctx, "bob", store.Requirements, req.ID)
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.Get(ctx, "bob", store.Tasks, task.ID)
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.Get(ctx, "alice", store.Tasks, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocumentService_ListRules(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()
	req := createRequirement(t, svc, "alice", "Billing")
	createRequirement(t, svc, "bob", "Other")
	createTask(t, svc, "alice", req.ID)

	docs, err := svc.List(ctx, "alice", store.Requirements, store.Eq("user_id", "alice"))
	require.NoError(t, err)
	assert.Len(t, docs.([]models.Requirement), 1)

	_, err = svc.List(ctx, "alice", store.Requirements, store.Eq("user_id", "bob"))
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.List(ctx, "alice", store.Requirements, nil)
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	tasks, err := svc.List(ctx, "alice", store.Tasks, store.Eq("requirement_id", req.ID))
	require.NoError(t, err)
	assert.Len(t, tasks.([]models.Task), 1)

	_, err = svc.List(ctx, "bob", store.Tasks, store.Eq("requirement_id", req.ID))
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.List(ctx, "alice", store.Tasks, store.Eq("status", "pending"))
	assert.ErrorIs(t, err, store.ErrPermissionDenied)
}

func TestDocumentService_UpdateRules(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()
	req := createRequirement(t, svc, "alice", "Billing")
	other := createRequirement(t, svc, "alice", "Other")
	task := createTask(t, svc, "alice", req.ID)

	version, err := svc.Update(ctx, "alice", store.Requirements, req.ID, store.Fields{"name": "Billing v2"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	_, err = svc.Update(ctx, "alice", store.Requirements, req.ID, store.Fields{"user_id": "bob"})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = svc.Update(ctx, "alice", store.Tasks, task.ID, store.Fields{"requirement_id": other.ID})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = svc.Update(ctx, "alice", store.Tasks, task.ID, store.Fields{"description": ""})
	assert.ErrorIs(t, err, store.ErrInvalidArgument)

	_, err = svc.Update(ctx, "bob", store.Tasks, task.ID, store.Fields{"feedback": "x"})
	assert.ErrorIs(t, err, store.ErrPermissionDenied)

	_, err = svc.Update(ctx, "alice", store.Tasks, task.ID, store.Fields{"feedback": "x"}, store.IfVersion(7))
	assert.ErrorIs(t, err, store.ErrConflict)

	version, err = svc.Update(ctx, "alice", store.Tasks, task.ID, store.Fields{
		"feedback":       "looks good",
		"requirement_id": req.ID,
	}, store.IfVersion(1))
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)
}

func TestDocumentService_Delete(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()
	req := createRequirement(t, svc, "alice", "Billing")
	task := createTask(t, svc, "alice", req.ID)

	assert.ErrorIs(t, svc.Delete(ctx, "bob", store.Tasks, task.ID), store.ErrPermissionDenied)
	require.NoError(t, svc.Delete(ctx, "alice", store.Tasks, task.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "alice", store.Tasks, task.ID), store.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "alice", store.Requirements, req.ID))
}

func TestDocumentService_UnknownCollection(t *testing.T) {
	svc := newDocumentService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "alice", "invoices", store.Fields{"name": "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, err, ErrUnknownCollection)

	_, err = svc.Get(ctx, "alice", "invoices", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.List(ctx, "alice", "invoices", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Update(ctx, "alice", "invoices", "1", store.Fields{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "alice", "invoices", "1"), store.ErrNotFound)
}
