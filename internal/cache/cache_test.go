package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/consultant-worklog/internal/models"
)

func seeded() *Cache {
	c := New()
	c.Reset(
		[]models.Requirement{{ID: "r1", Name: "one"}, {ID: "r2", Name: "two"}},
		[]models.Task{
			{ID: "t1", RequirementID: "r1"},
			{ID: "t2", RequirementID: "r2"},
			{ID: "t3", RequirementID: "r1"},
		},
	)
	return c
}

func TestCache_ReadsAreCopies(t *testing.T) {
	c := seeded()
	c.UpdateTask("t1", func(task *models.Task) {
		task.Progress = []models.ProgressEntry{{ID: "p1", Description: "a"}}
	})

	tasks := c.Tasks()
	tasks[0].Progress[0].Description = "mutated"
	tasks[0].Status = models.TaskStatusCompleted

	got, ok := c.Task("t1")
	require.True(t, ok)
	assert.Equal(t, "a", got.Progress[0].Description)
	assert.Equal(t, models.TaskStatus(""), got.Status)
}

func TestCache_TasksFor(t *testing.T) {
	c := seeded()

	tasks := c.TasksFor("r1")
	require.Len(t, tasks, 2)
	assert.Equal(t, "t1", tasks[0].ID)
	assert.Equal(t, "t3", tasks[1].ID)

	assert.Empty(t, c.TasksFor("none"))
	assert.Len(t, c.Tasks(), 3)
}

func TestCache_ReplaceRequirementID(t *testing.T) {
	c := New()
	c.PutRequirement(models.Requirement{ID: "tmp-1", Name: "draft"})
	c.Select("tmp-1")
	c.PutTask(models.Task{ID: "t1", RequirementID: "tmp-1"})

	c.ReplaceRequirementID("tmp-1", models.Requirement{ID: "r9", Name: "draft", Version: 1})

	_, ok := c.Requirement("tmp-1")
	assert.False(t, ok)
	got, ok := c.Requirement("r9")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, "r9", c.Selected())
	assert.Len(t, c.TasksFor("r9"), 1)
}

func TestCache_RemoveAndRestoreKeepsOrder(t *testing.T) {
	c := seeded()

	removed, index, ok := c.RemoveTask("t2")
	require.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Len(t, c.Tasks(), 2)

	c.RestoreTask(removed, index)
	ids := []string{}
	for _, task := range c.Tasks() {
		ids = append(ids, task.ID)
	}
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids)

	c.RestoreTask(removed, index)
	assert.Len(t, c.Tasks(), 3, "restoring a present task is a no-op")

	req, ri, ok := c.RemoveRequirement("r1")
	require.True(t, ok)
	c.RestoreRequirement(req, ri)
	assert.Equal(t, "r1", c.Requirements()[0].ID)
}

func TestCache_RemoveTasksFor(t *testing.T) {
	c := seeded()

	removed := c.RemoveTasksFor("r1")
	assert.Len(t, removed, 2)
	assert.Len(t, c.Tasks(), 1)
}

func TestCache_Selection(t *testing.T) {
	c := seeded()

	assert.Equal(t, "r1", c.SelectFirst())
	assert.True(t, c.Select("r2"))
	assert.False(t, c.Select("missing"))
	assert.Equal(t, "r2", c.Selected())

	c.Reset([]models.Requirement{{ID: "r1"}}, nil)
	assert.Equal(t, "", c.Selected(), "a reload drops a selection that no longer exists")

	c.Clear()
	assert.Equal(t, "", c.SelectFirst())
}

func TestCache_BusyFlags(t *testing.T) {
	c := seeded()

	c.MarkBusy("t1")
	c.MarkBusy("t1")
	assert.True(t, c.Busy("t1"))
	assert.False(t, c.Busy("t2"))

	c.ClearBusy("t1")
	assert.True(t, c.Busy("t1"), "flags nest")
	c.ClearBusy("t1")
	assert.False(t, c.Busy("t1"))

	c.MarkBusy("tmp-1")
	c.ReplaceTaskID("tmp-1", models.Task{ID: "t9"})
	assert.Equal(t, map[string]bool{"t9": true}, c.BusyFlags())
}
