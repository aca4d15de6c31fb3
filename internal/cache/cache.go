// Package cache holds the in-memory mirror of the session user's requirements
// and tasks. Readers always get copies.
package cache

import (
	"sync"

	"github.com/yukikurage/consultant-worklog/internal/models"
)

// Cache is safe for concurrent use. Requirements and tasks keep their insertion order.
type Cache struct {
	mu           sync.RWMutex
	requirements []models.Requirement
	tasks        []models.Task
	selected     string
	busy         map[string]int
}

func New() *Cache {
	return &Cache{busy: make(map[string]int)}
}

// Reset replaces the whole content, as after a full reload.
func (c *Cache) Reset(requirements []models.Requirement, tasks []models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requirements = make([]models.Requirement, 0, len(requirements))
	for _, r := range requirements {
		c.requirements = append(c.requirements, r.Clone())
	}
	c.tasks = make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		c.tasks = append(c.tasks, t.Clone())
	}
	if c.selected != "" && c.requirementIndex(c.selected) < 0 {
		c.selected = ""
	}
}

// Clear drops everything, including the selection and busy flags.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requirements = nil
	c.tasks = nil
	c.selected = ""
	c.busy = make(map[string]int)
}

// Requirements returns every cached requirement.
func (c *Cache) Requirements() []models.Requirement {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Requirement, 0, len(c.requirements))
	for _, r := range c.requirements {
		out = append(out, r.Clone())
	}
	return out
}

// Requirement returns the cached requirement with id.
func (c *Cache) Requirement(id string) (models.Requirement, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.requirementIndex(id)
	if i < 0 {
		return models.Requirement{}, false
	}
	return c.requirements[i].Clone(), true
}

// PutRequirement appends r, or replaces the entry with the same id.
func (c *Cache) PutRequirement(r models.Requirement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.requirementIndex(r.ID); i >= 0 {
		c.requirements[i] = r.Clone()
		return
	}
	c.requirements = append(c.requirements, r.Clone())
}

// UpdateRequirement applies fn to the cached requirement with id in place.
func (c *Cache) UpdateRequirement(id string, fn func(*models.Requirement)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.requirementIndex(id)
	if i < 0 {
		return false
	}
	fn(&c.requirements[i])
	return true
}

// ReplaceRequirementID swaps a temporary id for the server one and repoints
// the selection and tasks that referenced it.
func (c *Cache) ReplaceRequirementID(oldID string, r models.Requirement) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.requirementIndex(oldID); i >= 0 {
		c.requirements[i] = r.Clone()
	} else {
		c.requirements = append(c.requirements, r.Clone())
	}
	if c.selected == oldID {
		c.selected = r.ID
	}
	for i := range c.tasks {
		if c.tasks[i].RequirementID == oldID {
			c.tasks[i].RequirementID = r.ID
		}
	}
}

// RemoveRequirement drops the requirement and returns it with its position
// so that RestoreRequirement can put it back.
func (c *Cache) RemoveRequirement(id string) (models.Requirement, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.requirementIndex(id)
	if i < 0 {
		return models.Requirement{}, -1, false
	}
	removed := c.requirements[i]
	c.requirements = append(c.requirements[:i:i], c.requirements[i+1:]...)
	return removed, i, true
}

// RestoreRequirement reinserts r at index, clamped to the current bounds.
func (c *Cache) RestoreRequirement(r models.Requirement, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requirementIndex(r.ID) >= 0 {
		return
	}
	index = clamp(index, len(c.requirements))
	c.requirements = append(c.requirements[:index:index], append([]models.Requirement{r.Clone()}, c.requirements[index:]...)...)
}

// Tasks returns every cached task.
func (c *Cache) Tasks() []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Task, 0, len(c.tasks))
	for _, t := range c.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// TasksFor returns the tasks of one requirement.
func (c *Cache) TasksFor(requirementID string) []models.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := []models.Task{}
	for _, t := range c.tasks {
		if t.RequirementID == requirementID {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Task returns the cached task with id.
func (c *Cache) Task(id string) (models.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.taskIndex(id)
	if i < 0 {
		return models.Task{}, false
	}
	return c.tasks[i].Clone(), true
}

// PutTask appends t, or replaces the entry with the same id.
func (c *Cache) PutTask(t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.taskIndex(t.ID); i >= 0 {
		c.tasks[i] = t.Clone()
		return
	}
	c.tasks = append(c.tasks, t.Clone())
}

// UpdateTask applies fn to the cached task with id in place.
func (c *Cache) UpdateTask(id string, fn func(*models.Task)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.taskIndex(id)
	if i < 0 {
		return false
	}
	fn(&c.tasks[i])
	return true
}

// ReplaceTaskID swaps a temporary task id for the server one, moving its busy flag.
func (c *Cache) ReplaceTaskID(oldID string, t models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.taskIndex(oldID); i >= 0 {
		c.tasks[i] = t.Clone()
	} else {
		c.tasks = append(c.tasks, t.Clone())
	}
	if n, ok := c.busy[oldID]; ok {
		delete(c.busy, oldID)
		c.busy[t.ID] += n
	}
}

// RemoveTask drops the task and returns it with its position.
func (c *Cache) RemoveTask(id string) (models.Task, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.taskIndex(id)
	if i < 0 {
		return models.Task{}, -1, false
	}
	removed := c.tasks[i]
	c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
	return removed, i, true
}

// RemoveTasksFor drops every task of a requirement and returns them.
func (c *Cache) RemoveTasksFor(requirementID string) []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []models.Task
	kept := c.tasks[:0:0]
	for _, t := range c.tasks {
		if t.RequirementID == requirementID {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	c.tasks = kept
	return removed
}

// RestoreTask reinserts t at index, clamped to the current bounds.
func (c *Cache) RestoreTask(t models.Task, index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.taskIndex(t.ID) >= 0 {
		return
	}
	index = clamp(index, len(c.tasks))
	c.tasks = append(c.tasks[:index:index], append([]models.Task{t.Clone()}, c.tasks[index:]...)...)
}

// Selected returns the selected requirement id, or "".
func (c *Cache) Selected() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected
}

// Select marks a cached requirement as selected. An empty id clears the selection.
func (c *Cache) Select(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id != "" && c.requirementIndex(id) < 0 {
		return false
	}
	c.selected = id
	return true
}

// SelectFirst selects the first cached requirement, or nothing when there is none.
func (c *Cache) SelectFirst() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selected = ""
	if len(c.requirements) > 0 {
		c.selected = c.requirements[0].ID
	}
	return c.selected
}

// MarkBusy flags a task as having a mutation in flight. Flags nest.
func (c *Cache) MarkBusy(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy[taskID]++
}

// ClearBusy releases one MarkBusy.
func (c *Cache) ClearBusy(taskID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.busy[taskID] <= 1 {
		delete(c.busy, taskID)
		return
	}
	c.busy[taskID]--
}

// Busy reports whether a mutation of the task is in flight.
func (c *Cache) Busy(taskID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.busy[taskID] > 0
}

// BusyFlags returns the ids of every task with a mutation in flight.
func (c *Cache) BusyFlags() map[string]bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]bool, len(c.busy))
	for id, n := range c.busy {
		if n > 0 {
			out[id] = true
		}
	}
	return out
}

func (c *Cache) requirementIndex(id string) int {
	for i := range c.requirements {
		if c.requirements[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cache) taskIndex(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func clamp(index, n int) int {
	if index < 0 {
		return 0
	}
	if index > n {
		return n
	}
	return index
}
