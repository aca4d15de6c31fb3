package models

import (
	"errors"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskType string

const (
	TaskTypeUI            TaskType = "UI"
	TaskTypeValidation    TaskType = "validación"
	TaskTypeFunctionality TaskType = "funcionalidad"
)

func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeUI, TaskTypeValidation, TaskTypeFunctionality:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "alta"
	TaskPriorityMedium TaskPriority = "media"
	TaskPriorityLow    TaskPriority = "baja"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

var (
	ErrProgressIndexOutOfRange = errors.New("progress index out of range")
	ErrProgressNotFound        = errors.New("progress entry not found")
)

// CompletionDetails is attached to a task when it is completed.
type CompletionDetails struct {
	Description          string    `json:"description"`
	TimeSpent            string    `json:"time_spent"`
	CompletedAt          time.Time `json:"completed_at"`
	SentToQA             bool      `json:"sent_to_qa"`
	DeployedToProduction bool      `json:"deployed_to_production"`
	Tools                []string  `json:"tools"`
}

// ProgressEntry is a dated log of partial work on a task.
type ProgressEntry struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	TimeSpent   string    `json:"time_spent"`
	CreatedAt   time.Time `json:"created_at"`
}

// Task is a unit of work under a requirement.
type Task struct {
	ID                string             `gorm:"primarykey;type:varchar(64)" json:"id"`
	Description       string             `gorm:"type:text;not null" json:"description"`
	RequirementID     string             `gorm:"type:varchar(64);not null;index" json:"requirement_id"`
	Status            TaskStatus         `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Type              TaskType           `gorm:"type:varchar(32)" json:"type"`
	Priority          TaskPriority       `gorm:"type:varchar(16)" json:"priority"`
	Feedback          string             `gorm:"type:text" json:"feedback"`
	CompletionDetails *CompletionDetails `gorm:"type:text;serializer:json" json:"completion_details,omitempty"`
	Progress          []ProgressEntry    `gorm:"type:text;serializer:json" json:"progress,omitempty"`
	Version           int64              `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time          `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (t *Task) GetID() string             { return t.ID }
func (t *Task) SetID(id string)           { t.ID = id }
func (t *Task) GetVersion() int64         { return t.Version }
func (t *Task) SetVersion(v int64)        { t.Version = v }
func (t *Task) GetCreatedAt() time.Time   { return t.CreatedAt }
func (t *Task) SetCreatedAt(at time.Time) { t.CreatedAt = at }

// Clone returns a deep copy of the task.
func (t Task) Clone() Task {
	out := t
	if t.CompletionDetails != nil {
		cd := *t.CompletionDetails
		if cd.Tools != nil {
			cd.Tools = append([]string{}, cd.Tools...)
		}
		out.CompletionDetails = &cd
	}
	if t.Progress != nil {
		out.Progress = append([]ProgressEntry{}, t.Progress...)
	}
	return out
}

// ProgressIndex returns the position of the entry with the given id, or -1.
func (t Task) ProgressIndex(entryID string) int {
	for i, e := range t.Progress {
		if e.ID == entryID {
			return i
		}
	}
	return -1
}

// TransitionTo moves the task to status and returns the patch describing the change.
// Completion goes through Complete so that completion details are always present.
func (t *Task) TransitionTo(status TaskStatus) (TaskPatch, error) {
	switch status {
	case TaskStatusCompleted:
		return TaskPatch{}, NewValidationError("status", "use task completion to complete a task")
	case TaskStatusPending:
		if len(t.Progress) > 0 {
			return TaskPatch{}, NewValidationError("status", "a task with progress entries cannot return to pending")
		}
	case TaskStatusInProgress:
	default:
		return TaskPatch{}, NewValidationError("status", "unknown status %q", status)
	}

	patch := TaskPatch{Status: &status}
	if t.CompletionDetails != nil {
		patch.ClearCompletion = true
	}
	patch.Apply(t)
	return patch, nil
}

// Complete marks the task completed with the given details.
func (t *Task) Complete(details CompletionDetails) TaskPatch {
	if details.Tools == nil {
		details.Tools = []string{}
	}
	status := TaskStatusCompleted
	patch := TaskPatch{Status: &status, CompletionDetails: &details}
	patch.Apply(t)
	return patch
}

// AppendProgress adds an entry, promoting a pending task to in-progress in the same patch.
func (t *Task) AppendProgress(entry ProgressEntry) TaskPatch {
	progress := append(append([]ProgressEntry{}, t.Progress...), entry)
	patch := TaskPatch{Progress: &progress}
	if t.Status == TaskStatusPending {
		status := TaskStatusInProgress
		patch.Status = &status
	}
	patch.Apply(t)
	return patch
}

// ReviseProgress rewrites the entry at index, keeping its id and dates.
func (t *Task) ReviseProgress(index int, in ProgressInput) (TaskPatch, error) {
	if index < 0 || index >= len(t.Progress) {
		return TaskPatch{}, ErrProgressIndexOutOfRange
	}
	progress := append([]ProgressEntry{}, t.Progress...)
	progress[index].Description = in.Description
	progress[index].TimeSpent = in.TimeSpent
	patch := TaskPatch{Progress: &progress}
	patch.Apply(t)
	return patch, nil
}

// RemoveProgress drops the entry at index. Removing the last entry of a task
// that is not completed demotes it to pending.
func (t *Task) RemoveProgress(index int) (TaskPatch, error) {
	if index < 0 || index >= len(t.Progress) {
		return TaskPatch{}, ErrProgressIndexOutOfRange
	}
	progress := make([]ProgressEntry, 0, len(t.Progress)-1)
	progress = append(progress, t.Progress[:index]...)
	progress = append(progress, t.Progress[index+1:]...)
	patch := TaskPatch{Progress: &progress}
	if len(progress) == 0 && t.Status != TaskStatusCompleted {
		status := TaskStatusPending
		patch.Status = &status
	}
	patch.Apply(t)
	return patch, nil
}

// TaskInput holds the user supplied fields for a new task.
type TaskInput struct {
	Description   string
	RequirementID string
	Type          TaskType
	Priority      TaskPriority
	Feedback      *string
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return NewValidationError("description", "description is required")
	}
	if strings.TrimSpace(in.RequirementID) == "" {
		return NewValidationError("requirement_id", "requirement is required")
	}
	if !in.Type.Valid() {
		return NewValidationError("type", "unknown task type %q", in.Type)
	}
	if !in.Priority.Valid() {
		return NewValidationError("priority", "unknown priority %q", in.Priority)
	}
	return nil
}

// TaskCompletion holds what the user reports when completing a task.
type TaskCompletion struct {
	Description          string
	TimeSpent            string
	SentToQA             bool
	DeployedToProduction bool
	Tools                []string
}

func (c TaskCompletion) Validate() error {
	if strings.TrimSpace(c.Description) == "" {
		return NewValidationError("description", "completion description is required")
	}
	if strings.TrimSpace(c.TimeSpent) == "" {
		return NewValidationError("time_spent", "time spent is required")
	}
	return nil
}

// Details builds the completion details recorded at the given time.
func (c TaskCompletion) Details(at time.Time) CompletionDetails {
	tools := c.Tools
	if tools == nil {
		tools = []string{}
	}
	return CompletionDetails{
		Description:          c.Description,
		TimeSpent:            c.TimeSpent,
		CompletedAt:          at,
		SentToQA:             c.SentToQA,
		DeployedToProduction: c.DeployedToProduction,
		Tools:                append([]string{}, tools...),
	}
}

// ProgressInput is the editable part of a progress entry.
type ProgressInput struct {
	Description string
	TimeSpent   string
}

func (in ProgressInput) Validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return NewValidationError("description", "progress description is required")
	}
	if strings.TrimSpace(in.TimeSpent) == "" {
		return NewValidationError("time_spent", "time spent is required")
	}
	return nil
}

// TaskPatch is a partial update of a task. Nil fields are left untouched.
type TaskPatch struct {
	Description       *string
	Type              *TaskType
	Priority          *TaskPriority
	Feedback          *string
	Status            *TaskStatus
	CompletionDetails *CompletionDetails
	ClearCompletion   bool
	Progress          *[]ProgressEntry
}

// Validate checks the fields a caller may edit directly.
func (p TaskPatch) Validate() error {
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return NewValidationError("description", "description cannot be empty")
	}
	if p.Type != nil && !p.Type.Valid() {
		return NewValidationError("type", "unknown task type %q", *p.Type)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return NewValidationError("priority", "unknown priority %q", *p.Priority)
	}
	if p.Status != nil || p.CompletionDetails != nil || p.ClearCompletion || p.Progress != nil {
		return NewValidationError("status", "status, completion and progress change through their own operations")
	}
	return nil
}

// Fields returns the wire representation of the patch. Unset fields are omitted.
func (p TaskPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Type != nil {
		fields["type"] = *p.Type
	}
	if p.Priority != nil {
		fields["priority"] = *p.Priority
	}
	if p.Feedback != nil {
		fields["feedback"] = *p.Feedback
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.CompletionDetails != nil {
		fields["completion_details"] = *p.CompletionDetails
	} else if p.ClearCompletion {
		fields["completion_details"] = nil
	}
	if p.Progress != nil {
		progress := *p.Progress
		if progress == nil {
			progress = []ProgressEntry{}
		}
		fields["progress"] = progress
	}
	return fields
}

// Apply shallow-merges the patch into t.
func (p TaskPatch) Apply(t *Task) {
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Feedback != nil {
		t.Feedback = *p.Feedback
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CompletionDetails != nil {
		cd := *p.CompletionDetails
		cd.Tools = append([]string{}, cd.Tools...)
		t.CompletionDetails = &cd
	} else if p.ClearCompletion {
		t.CompletionDetails = nil
	}
	if p.Progress != nil {
		t.Progress = append([]ProgressEntry{}, (*p.Progress)...)
	}
}
