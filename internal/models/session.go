package models

// TrainingConfig is the daily training allotment of a user.
type TrainingConfig struct {
	IsEnrolled bool    `json:"is_enrolled"`
	DailyHours float64 `json:"daily_hours"`
}

// Allotment returns the daily training hours, or zero when not enrolled.
func (c TrainingConfig) Allotment() float64 {
	if !c.IsEnrolled || c.DailyHours < 0 {
		return 0
	}
	return c.DailyHours
}

// Session identifies the authenticated principal a client works for.
type Session struct {
	UserID   string
	Training TrainingConfig
}

// Authenticated reports whether the session carries a user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
