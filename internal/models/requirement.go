package models

import (
	"strings"
	"time"
)

type RequirementStatus string

const (
	RequirementStatusActive    RequirementStatus = "active"
	RequirementStatusCompleted RequirementStatus = "completed"
)

// RequirementType classifies the client work a requirement represents.
type RequirementType string

const (
	RequirementTypeAdjustment  RequirementType = "AJU"
	RequirementTypeIncident    RequirementType = "INC"
	RequirementTypeProcess     RequirementType = "PRC"
	RequirementTypeProject     RequirementType = "PRO"
	RequirementTypeMeeting     RequirementType = "REN"
	RequirementTypeRequirement RequirementType = "REQ"
)

var requirementTypeLabels = map[RequirementType]string{
	RequirementTypeAdjustment:  "Ajuste",
	RequirementTypeIncident:    "Incidencia",
	RequirementTypeProcess:     "Procesos",
	RequirementTypeProject:     "Proyecto",
	RequirementTypeMeeting:     "Reunión",
	RequirementTypeRequirement: "Requerimiento",
}

// Valid reports whether t is one of the known requirement types.
func (t RequirementType) Valid() bool {
	_, ok := requirementTypeLabels[t]
	return ok
}

// Label returns the human readable name of the type.
func (t RequirementType) Label() string {
	return requirementTypeLabels[t]
}

// Requirement is a typed unit of client work owned by one user.
type Requirement struct {
	ID            string            `gorm:"primarykey;type:varchar(64)" json:"id"`
	Name          string            `gorm:"type:varchar(255);not null" json:"name"`
	Status        RequirementStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Type          *RequirementType  `gorm:"type:varchar(8)" json:"type,omitempty"`
	HasEstimate   *bool             `json:"has_estimate,omitempty"`
	EstimatedTime *string           `gorm:"type:varchar(255)" json:"estimated_time,omitempty"`
	UserID        string            `gorm:"type:varchar(64);not null;index" json:"user_id"`

	// Set on completion
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
	SentToQA             *bool      `json:"sent_to_qa,omitempty"`
	DeployedToProduction *bool      `json:"deployed_to_production,omitempty"`
	Tools                []string   `gorm:"type:text;serializer:json" json:"tools"`

	Version   int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Requirement) GetID() string             { return r.ID }
func (r *Requirement) SetID(id string)           { r.ID = id }
func (r *Requirement) GetVersion() int64         { return r.Version }
func (r *Requirement) SetVersion(v int64)        { r.Version = v }
func (r *Requirement) GetCreatedAt() time.Time   { return r.CreatedAt }
func (r *Requirement) SetCreatedAt(at time.Time) { r.CreatedAt = at }

// DisplayType returns the requirement type, defaulting to REQ when unset.
func (r Requirement) DisplayType() RequirementType {
	if r.Type == nil || *r.Type == "" {
		return RequirementTypeRequirement
	}
	return *r.Type
}

// Clone returns a copy that shares no mutable state with r.
func (r Requirement) Clone() Requirement {
	out := r
	out.Type = clonePtr(r.Type)
	out.HasEstimate = clonePtr(r.HasEstimate)
	out.EstimatedTime = clonePtr(r.EstimatedTime)
	out.CompletedAt = clonePtr(r.CompletedAt)
	out.SentToQA = clonePtr(r.SentToQA)
	out.DeployedToProduction = clonePtr(r.DeployedToProduction)
	if r.Tools != nil {
		out.Tools = append([]string{}, r.Tools...)
	}
	return out
}

// RequirementInput holds the user supplied fields for a new requirement.
type RequirementInput struct {
	Name          string
	Type          *RequirementType
	HasEstimate   *bool
	EstimatedTime *string
}

// Validate checks the field-presence rules of a new requirement.
func (in RequirementInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("name", "name is required")
	}
	if in.Type != nil && !in.Type.Valid() {
		return NewValidationError("type", "unknown requirement type %q", *in.Type)
	}
	if in.HasEstimate != nil && *in.HasEstimate {
		if in.EstimatedTime == nil || strings.TrimSpace(*in.EstimatedTime) == "" {
			return NewValidationError("estimated_time", "an estimate is required when has_estimate is set")
		}
	}
	return nil
}

// RequirementCompletion holds the details recorded when a requirement is completed.
type RequirementCompletion struct {
	SentToQA             bool
	DeployedToProduction bool
	Tools                []string
}

// RequirementPatch is a partial update of a requirement. Nil fields are left untouched.
type RequirementPatch struct {
	Name                 *string
	Type                 *RequirementType
	HasEstimate          *bool
	EstimatedTime        *string
	Status               *RequirementStatus
	CompletedAt          *time.Time
	SentToQA             *bool
	DeployedToProduction *bool
	Tools                []string
}

// CompletionPatch builds the patch that completes a requirement at the given time.
func CompletionPatch(c RequirementCompletion, at time.Time) RequirementPatch {
	status := RequirementStatusCompleted
	tools := c.Tools
	if tools == nil {
		tools = []string{}
	}
	return RequirementPatch{
		Status:               &status,
		CompletedAt:          &at,
		SentToQA:             &c.SentToQA,
		DeployedToProduction: &c.DeployedToProduction,
		Tools:                tools,
	}
}

// Validate rejects patches that would break requirement invariants.
func (p RequirementPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return NewValidationError("name", "name cannot be empty")
	}
	if p.Type != nil && !p.Type.Valid() {
		return NewValidationError("type", "unknown requirement type %q", *p.Type)
	}
	if p.HasEstimate != nil && *p.HasEstimate {
		if p.EstimatedTime == nil || strings.TrimSpace(*p.EstimatedTime) == "" {
			return NewValidationError("estimated_time", "an estimate is required when has_estimate is set")
		}
	}
	if p.Status != nil {
		switch *p.Status {
		case RequirementStatusActive:
			return NewValidationError("status", "a completed requirement cannot be reopened")
		case RequirementStatusCompleted:
		default:
			return NewValidationError("status", "unknown status %q", *p.Status)
		}
	}
	return nil
}

// Fields returns the wire representation of the patch. Unset fields are omitted.
func (p RequirementPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Type != nil {
		fields["type"] = *p.Type
	}
	if p.HasEstimate != nil {
		fields["has_estimate"] = *p.HasEstimate
	}
	if p.EstimatedTime != nil {
		fields["estimated_time"] = *p.EstimatedTime
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	if p.CompletedAt != nil {
		fields["completed_at"] = *p.CompletedAt
	}
	if p.SentToQA != nil {
		fields["sent_to_qa"] = *p.SentToQA
	}
	if p.DeployedToProduction != nil {
		fields["deployed_to_production"] = *p.DeployedToProduction
	}
	if p.Tools != nil {
		fields["tools"] = p.Tools
	}
	return fields
}

// Apply shallow-merges the patch into r.
func (p RequirementPatch) Apply(r *Requirement) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Type != nil {
		r.Type = clonePtr(p.Type)
	}
	if p.HasEstimate != nil {
		r.HasEstimate = clonePtr(p.HasEstimate)
	}
	if p.EstimatedTime != nil {
		r.EstimatedTime = clonePtr(p.EstimatedTime)
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.CompletedAt != nil {
		r.CompletedAt = clonePtr(p.CompletedAt)
	}
	if p.SentToQA != nil {
		r.SentToQA = clonePtr(p.SentToQA)
	}
	if p.DeployedToProduction != nil {
		r.DeployedToProduction = clonePtr(p.DeployedToProduction)
	}
	if p.Tools != nil {
		r.Tools = append([]string{}, p.Tools...)
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
