package repository

import (
	"github.com/yukikurage/consultant-worklog/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// Update saves the profile fields of a user
	Update(user *models.User) error
}

// SessionSource yields the session the client repositories act for.
type SessionSource interface {
	Session() models.Session
}

// StaticSession is a SessionSource that never changes.
type StaticSession models.Session

func (s StaticSession) Session() models.Session {
	return models.Session(s)
}

// User-facing messages surfaced when a remote write fails for good.
const (
	msgCreateRequirement = "Could not create the requirement"
	msgUpdateRequirement = "Could not update the requirement"
	msgDeleteRequirement = "Could not delete the requirement"
	msgCreateTask        = "Could not create the task"
	msgUpdateTask        = "Could not update the task"
	msgUpdateTaskStatus  = "Could not update the task status"
	msgCompleteTask      = "Could not complete the task"
	msgAddProgress       = "Could not add the progress entry"
	msgEditProgress      = "Could not edit the progress entry"
	msgDeleteProgress    = "Could not delete the progress entry"
	msgDeleteTask        = "Could not delete the task"
)
