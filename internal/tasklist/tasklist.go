// Package tasklist holds the ordered, in-memory task list.
//
// A List has no lock of its own. It is owned by exactly one writer
// (controlplane.Service) which serializes every mutation.
package tasklist

import (
	"errors"
	"fmt"

	"github.com/fentz26/devlaunch/internal/models"
)

// ErrDuplicateID is returned by Add when the id is already in the list.
var ErrDuplicateID = errors.New("duplicate task id")

// List is an ordered sequence of tasks with unique ids.
type List struct {
	tasks []models.Task
	index map[string]int
}

// New returns a list seeded with tasks. Seeding stops at the first duplicate id.
func New(tasks ...models.Task) (*List, error) {
	l := &List{index: make(map[string]int)}
	for _, t := range tasks {
		if err := l.Add(t); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add appends task to the end of the list. A duplicate id is a caller bug:
// the list is left unchanged and ErrDuplicateID is returned.
func (l *List) Add(task models.Task) error {
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if _, ok := l.index[task.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, task.ID)
	}
	l.index[task.ID] = len(l.tasks)
	l.tasks = append(l.tasks, task)
	return nil
}

// Remove deletes the task with id. Removing an absent id is a no-op.
func (l *List) Remove(id string) bool {
	i, ok := l.index[id]
	if !ok {
		return false
	}
	l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
	delete(l.index, id)
	for j := i; j < len(l.tasks); j++ {
		l.index[l.tasks[j].ID] = j
	}
	return true
}

// Update replaces one field of the task with id. An absent id is a no-op
// and reports false.
func (l *List) Update(id string, field models.Field, value string) (bool, error) {
	i, ok := l.index[id]
	if !ok {
		return false, nil
	}
	updated, err := l.tasks[i].With(field, value)
	if err != nil {
		return false, err
	}
	l.tasks[i] = updated
	return true, nil
}

// Get returns the task with id.
func (l *List) Get(id string) (models.Task, bool) {
	i, ok := l.index[id]
	if !ok {
		return models.Task{}, false
	}
	return l.tasks[i], true
}

// Has reports whether id is in the list.
func (l *List) Has(id string) bool {
	_, ok := l.index[id]
	return ok
}

// Len returns the number of tasks.
func (l *List) Len() int {
	return len(l.tasks)
}

// Tasks returns a copy of the tasks in list order.
func (l *List) Tasks() []models.Task {
	out := make([]models.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}
