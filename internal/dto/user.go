package dto

import (
	"time"

	"github.com/yukikurage/consultant-worklog/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID                 string                `json:"id"`
	Email              string                `json:"email"`
	DisplayName        string                `json:"display_name"`
	DeveloperLevel     models.DeveloperLevel `json:"developer_level"`
	Company            string                `json:"company"`
	Area               string                `json:"area"`
	TrainingEnrolled   bool                  `json:"training_enrolled"`
	TrainingDailyHours float64               `json:"training_daily_hours"`
	CreatedAt          time.Time             `json:"created_at"`
}

// Training returns the training allotment described by the profile.
func (u UserDTO) Training() models.TrainingConfig {
	return models.User{
		DeveloperLevel:     u.DeveloperLevel,
		TrainingEnrolled:   u.TrainingEnrolled,
		TrainingDailyHours: u.TrainingDailyHours,
	}.TrainingConfig()
}

// ProfileDTO holds the optional profile fields of signup and profile updates
type ProfileDTO struct {
	DeveloperLevel     *models.DeveloperLevel `json:"developer_level,omitempty"`
	Company            *string                `json:"company,omitempty"`
	Area               *string                `json:"area,omitempty"`
	TrainingEnrolled   *bool                  `json:"training_enrolled,omitempty"`
	TrainingDailyHours *float64               `json:"training_daily_hours,omitempty"`
}

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Email       string     `json:"email" binding:"required"`
	Password    string     `json:"password" binding:"required"`
	DisplayName *string    `json:"display_name,omitempty"`
	Profile     ProfileDTO `json:"profile"`
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest is the body of PATCH /api/auth/me
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	ProfileDTO
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:                 user.ID,
		Email:              user.Email,
		DisplayName:        user.DisplayName,
		DeveloperLevel:     user.DeveloperLevel,
		Company:            user.Company,
		Area:               user.Area,
		TrainingEnrolled:   user.TrainingEnrolled,
		TrainingDailyHours: user.TrainingDailyHours,
		CreatedAt:          user.CreatedAt,
	}
}
