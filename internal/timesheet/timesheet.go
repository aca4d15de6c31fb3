// Package timesheet derives the daily time accounting of a user from their tasks.
package timesheet

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

type ActivityKind string

const (
	ActivityCompletion ActivityKind = "completion"
	ActivityProgress   ActivityKind = "progress"
)

// Activity is one completion or one progress entry dated on the summarized day.
type Activity struct {
	Kind             ActivityKind
	TaskID           string
	TaskDescription  string
	RequirementID    string
	RequirementLabel string
	Description      string
	TimeSpent        string
	Hours            float64
	TrainingShare    float64
	At               time.Time
}

// Summary is the time accounting of one calendar day.
type Summary struct {
	Day                 time.Time
	Tasks               []models.Task
	Activities          []Activity
	WorkHours           float64
	TrainingHours       float64
	TrainingShare       float64
	RemainingHours      float64
	TrainingDescription string
}

// ActivityCount returns the number of distinct activities of the day.
func (s Summary) ActivityCount() int {
	return len(s.Activities)
}

// Summarize computes the summary of day over tasks. Days are compared in the
// location of day. requirements are only used for labels.
func Summarize(day time.Time, tasks []models.Task, requirements []models.Requirement, training models.TrainingConfig) Summary {
	labels := make(map[string]string, len(requirements))
	for _, r := range requirements {
		labels[r.ID] = fmt.Sprintf("%s: %s", r.DisplayType(), r.Name)
	}
	label := func(requirementID string) string {
		if l, ok := labels[requirementID]; ok {
			return l
		}
		return fmt.Sprintf("%s: Desconocido", models.RequirementTypeRequirement)
	}

	summary := Summary{
		Day:        day,
		Tasks:      ActivityTasks(day, tasks),
		Activities: []Activity{},
	}

	for _, t := range tasks {
		if completedOn(t, day) {
			cd := t.CompletionDetails
			summary.Activities = append(summary.Activities, Activity{
				Kind:             ActivityCompletion,
				TaskID:           t.ID,
				TaskDescription:  t.Description,
				RequirementID:    t.RequirementID,
				RequirementLabel: label(t.RequirementID),
				Description:      cd.Description,
				TimeSpent:        cd.TimeSpent,
				Hours:            ParseHours(cd.TimeSpent),
				At:               cd.CompletedAt,
			})
		}
		for _, e := range t.Progress {
			if !SameDay(e.Date, day) {
				continue
			}
			summary.Activities = append(summary.Activities, Activity{
				Kind:             ActivityProgress,
				TaskID:           t.ID,
				TaskDescription:  t.Description,
				RequirementID:    t.RequirementID,
				RequirementLabel: label(t.RequirementID),
				Description:      e.Description,
				TimeSpent:        e.TimeSpent,
				Hours:            ParseHours(e.TimeSpent),
				At:               e.Date,
			})
		}
	}

	for _, a := range summary.Activities {
		summary.WorkHours += a.Hours
	}

	allotment := training.Allotment()
	summary.TrainingHours = allotment
	if n := len(summary.Activities); n > 0 && allotment > 0 {
		summary.TrainingShare = allotment / float64(n)
		for i := range summary.Activities {
			summary.Activities[i].TrainingShare = summary.TrainingShare
		}
	}
	summary.RemainingHours = math.Max(0, constants.WorkdayHours-allotment-summary.WorkHours)

	if training.IsEnrolled && len(summary.Tasks) > 0 {
		summary.TrainingDescription = trainingDescription(day, summary.Tasks, label)
	}
	return summary
}

// ActivityTasks returns the tasks completed on day followed by the tasks with
// progress dated on day, each task once.
func ActivityTasks(day time.Time, tasks []models.Task) []models.Task {
	out := []models.Task{}
	seen := make(map[string]bool)
	for _, t := range tasks {
		if completedOn(t, day) {
			out = append(out, t)
			seen[t.ID] = true
		}
	}
	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		for _, e := range t.Progress {
			if SameDay(e.Date, day) {
				out = append(out, t)
				seen[t.ID] = true
				break
			}
		}
	}
	return out
}

// SameDay reports whether t falls on the calendar day of day, in day's location.
func SameDay(t, day time.Time) bool {
	if t.IsZero() {
		return false
	}
	y1, m1, d1 := t.In(day.Location()).Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func completedOn(t models.Task, day time.Time) bool {
	return t.Status == models.TaskStatusCompleted &&
		t.CompletionDetails != nil &&
		SameDay(t.CompletionDetails.CompletedAt, day)
}

func trainingDescription(day time.Time, tasks []models.Task, label func(string) string) string {
	var b strings.Builder
	b.WriteString("Se recibió adiestramiento para realizar: ")
	for i, t := range tasks {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, `la tarea "%s" del requerimiento %s`, t.Description, label(t.RequirementID))

		if completedOn(t, day) && t.CompletionDetails.Description != "" {
			fmt.Fprintf(&b, " (%s)", t.CompletionDetails.Description)
			continue
		}
		for _, e := range t.Progress {
			if SameDay(e.Date, day) {
				fmt.Fprintf(&b, " (%s)", e.Description)
				break
			}
		}
	}
	return b.String()
}
