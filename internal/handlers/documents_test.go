package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/dto"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

func TestDocumentHandler_Lifecycle(t *testing.T) {
	env := setupAPITestEnv(t)
	userID, cookies := env.login(t, "owner@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/requirements", map[string]any{
		"name": "Billing",
		"type": "PRO",
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.CreatedDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	w = env.do(t, http.MethodGet, "/api/v1/requirements/"+created.ID, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var req models.Requirement
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &req))
	assert.Equal(t, "Billing", req.Name)
	assert.Equal(t, userID, req.UserID)

	w = env.do(t, http.MethodGet, "/api/v1/requirements?field=user_id&value="+userID, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.DocumentList[models.Requirement]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)

	w = env.do(t, http.MethodPatch, "/api/v1/requirements/"+created.ID, map[string]any{"name": "Billing v2"}, cookies,
		constants.IfMatchHeader, "1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var version dto.VersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	assert.Equal(t, int64(2), version.Version)

	w = env.do(t, http.MethodPatch, "/api/v1/requirements/"+created.ID, map[string]any{"name": "stale"}, cookies,
		constants.IfMatchHeader, "1")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/requirements/"+created.ID, nil, cookies)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/requirements/"+created.ID, nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_TaskBackdate(t *testing.T) {
	env := setupAPITestEnv(t)
	_, cookies := env.login(t, "owner@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/requirements", map[string]any{"name": "Billing"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	var parent dto.CreatedDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parent))

	backdated := time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC)
	w = env.do(t, http.MethodPost, "/api/v1/tasks", map[string]any{
		"description":    "Fix totals",
		"requirement_id": parent.ID,
		"created_at":     backdated,
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created dto.CreatedDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.True(t, created.CreatedAt.Equal(backdated))

	w = env.do(t, http.MethodGet, "/api/v1/tasks?field=requirement_id&value="+parent.ID, nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.DocumentList[models.Task]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)
	assert.Equal(t, models.TaskStatusPending, list.Documents[0].Status)
}

func TestDocumentHandler_Ownership(t *testing.T) {
	env := setupAPITestEnv(t)
	ownerID, owner := env.login(t, "owner@example.com")
	_, intruder := env.login(t, "intruder@example.com")

	w := env.do(t, http.MethodPost, "/api/v1/requirements", map[string]any{"name": "Private"}, owner)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.CreatedDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"get", http.MethodGet, "/api/v1/requirements/" + created.ID, nil, http.StatusForbidden},
		{"list by owner", http.MethodGet, "/api/v1/requirements?field=user_id&value=" + ownerID, nil, http.StatusForbidden},
		{"list unfiltered", http.MethodGet, "/api/v1/requirements", nil, http.StatusForbidden},
		{"patch", http.MethodPatch, "/api/v1/requirements/" + created.ID, map[string]any{"name": "mine"}, http.StatusForbidden},
		{"delete", http.MethodDelete, "/api/v1/requirements/" + created.ID, nil, http.StatusForbidden},
		{"task under foreign requirement", http.MethodPost, "/api/v1/tasks", map[string]any{
			"description": "x", "requirement_id": created.ID,
		}, http.StatusForbidden},
		{"unknown collection", http.MethodGet, "/api/v1/invoices", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, tt.body, intruder)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestDocumentHandler_Errors(t *testing.T) {
	env := setupAPITestEnv(t)
	_, cookies := env.login(t, "owner@example.com")

	w := env.do(t, http.MethodGet, "/api/v1/requirements", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/requirements", map[string]any{"name": "Billing"}, cookies)
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.CreatedDocument
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = env.do(t, http.MethodPatch, "/api/v1/requirements/"+created.ID, map[string]any{"user_id": "someone"}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, "user_id", apiErr.Details["field"])

	w = env.do(t, http.MethodPost, "/api/v1/requirements", map[string]any{"name": "  "}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"name"`)

	w = env.do(t, http.MethodPatch, "/api/v1/requirements/"+created.ID, map[string]any{"name": "x"}, cookies,
		constants.IfMatchHeader, "abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/requirements?field=nope&value=1", nil, cookies)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/tasks/missing", nil, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
