package session

import (
	"strings"

	"tasks-serverless/internal/task"
)

type Tab int

const (
	TabAll Tab = iota
	TabPending
	TabCompleted
)

func (t Tab) String() string {
	switch t {
	case TabPending:
		return "pending"
	case TabCompleted:
		return "completed"
	default:
		return "all"
	}
}

// TaskView is the locally cached task collection. Mutations from the server are
// folded back in place of a full refetch: created tasks are prepended (the
// server lists newest first), updates merge by id, deletes remove.
type TaskView struct {
	tasks []task.Task
	tab   Tab
	query string
}

func NewTaskView() *TaskView {
	return &TaskView{tasks: []task.Task{}}
}

// Load replaces the cache with a server listing, keeping the server's order.
func (v *TaskView) Load(tasks []task.Task) {
	v.tasks = append([]task.Task(nil), tasks...)
}

func (v *TaskView) SetTab(tab Tab) {
	v.tab = tab
}

func (v *TaskView) Tab() Tab {
	return v.tab
}

func (v *TaskView) SetQuery(query string) {
	v.query = strings.TrimSpace(query)
}

func (v *TaskView) Query() string {
	return v.query
}

func (v *TaskView) Tasks() []task.Task {
	return v.tasks
}

// Visible applies the status tab and the free-text search. The search spans
// title and description, case-insensitively.
func (v *TaskView) Visible() []task.Task {
	needle := strings.ToLower(v.query)

	visible := make([]task.Task, 0, len(v.tasks))
	for _, t := range v.tasks {
		switch v.tab {
		case TabPending:
			if t.Completed {
				continue
			}
		case TabCompleted:
			if !t.Completed {
				continue
			}
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}

		visible = append(visible, t)
	}

	return visible
}

func (v *TaskView) Counts() (all, pending, completed int) {
	for _, t := range v.tasks {
		if t.Completed {
			completed++
		} else {
			pending++
		}
	}
	return len(v.tasks), pending, completed
}

func (v *TaskView) Get(id string) (task.Task, bool) {
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

func (v *TaskView) ApplyCreate(t task.Task) {
	v.tasks = append([]task.Task{t}, v.tasks...)
}

func (v *TaskView) ApplyUpdate(updated task.Task) {
	for i, t := range v.tasks {
		if t.ID == updated.ID {
			v.tasks[i] = updated
			return
		}
	}
}

func (v *TaskView) ApplyDelete(id string) {
	for i, t := range v.tasks {
		if t.ID == id {
			v.tasks = append(v.tasks[:i], v.tasks[i+1:]...)
			return
		}
	}
}
