package models

import (
	"time"
)

type DeveloperLevel string

const (
	DeveloperLevelTrainee DeveloperLevel = "trainee"
	DeveloperLevelJunior  DeveloperLevel = "junior"
	DeveloperLevelSenior  DeveloperLevel = "senior"
)

type User struct {
	ID                 string         `gorm:"primarykey;type:varchar(64)" json:"id"`
	Email              string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash       string         `gorm:"type:varchar(255);not null" json:"-"`
	DisplayName        string         `gorm:"type:varchar(255)" json:"display_name"`
	DeveloperLevel     DeveloperLevel `gorm:"type:varchar(32)" json:"developer_level"`
	Company            string         `gorm:"type:varchar(255)" json:"company"`
	Area               string         `gorm:"type:varchar(255)" json:"area"`
	TrainingEnrolled   bool           `gorm:"not null;default:false" json:"training_enrolled"`
	TrainingDailyHours float64        `gorm:"not null;default:0" json:"training_daily_hours"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TrainingConfig derives the training allotment from the profile. Only trainees
// enrolled in the training program receive one.
func (u User) TrainingConfig() TrainingConfig {
	return TrainingConfig{
		IsEnrolled: u.DeveloperLevel == DeveloperLevelTrainee && u.TrainingEnrolled,
		DailyHours: u.TrainingDailyHours,
	}
}
