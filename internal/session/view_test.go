package session

import (
	"testing"

	"tasks-serverless/internal/task"
)

func sampleTasks() []task.Task {
	return []task.Task{
		{ID: "t1", Title: "Buy milk", Description: "2 liters", Completed: false},
		{ID: "t2", Title: "Walk dog", Description: "Around the park", Completed: true},
		{ID: "t3", Title: "Write report", Description: "Quarterly numbers", Completed: false},
	}
}

func ids(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadKeepsServerOrder(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	if got := ids(v.Visible()); !equalIDs(got, []string{"t1", "t2", "t3"}) {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestTabsFilterByStatus(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.SetTab(TabPending)
	if got := ids(v.Visible()); !equalIDs(got, []string{"t1", "t3"}) {
		t.Errorf("pending tab: unexpected tasks %v", got)
	}

	v.SetTab(TabCompleted)
	if got := ids(v.Visible()); !equalIDs(got, []string{"t2"}) {
		t.Errorf("completed tab: unexpected tasks %v", got)
	}

	v.SetTab(TabAll)
	if got := v.Visible(); len(got) != 3 {
		t.Errorf("all tab: expected 3 tasks, got %d", len(got))
	}
}

func TestSearchSpansTitleAndDescription(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.SetQuery("MILK")
	if got := ids(v.Visible()); !equalIDs(got, []string{"t1"}) {
		t.Errorf("title search: unexpected tasks %v", got)
	}

	v.SetQuery("park")
	if got := ids(v.Visible()); !equalIDs(got, []string{"t2"}) {
		t.Errorf("description search: unexpected tasks %v", got)
	}

	v.SetQuery("nothing matches this")
	if got := v.Visible(); len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}

	v.SetQuery("")
	if got := v.Visible(); len(got) != 3 {
		t.Errorf("cleared search: expected 3 tasks, got %d", len(got))
	}
}

func TestSearchCombinesWithTab(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.SetTab(TabPending)
	v.SetQuery("w")

	// "Walk dog" matches the query but is completed; only "Write report" passes both.
	if got := ids(v.Visible()); !equalIDs(got, []string{"t3"}) {
		t.Errorf("unexpected tasks %v", got)
	}
}

func TestCounts(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	all, pending, completed := v.Counts()
	if all != 3 || pending != 2 || completed != 1 {
		t.Errorf("unexpected counts: all=%d pending=%d completed=%d", all, pending, completed)
	}
}

func TestApplyCreatePrepends(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.ApplyCreate(task.Task{ID: "t4", Title: "New task"})

	if got := ids(v.Visible()); !equalIDs(got, []string{"t4", "t1", "t2", "t3"}) {
		t.Errorf("unexpected order after create: %v", got)
	}
}

func TestApplyUpdateMergesByID(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.ApplyUpdate(task.Task{ID: "t1", Title: "Buy milk", Completed: true})

	got, ok := v.Get("t1")
	if !ok {
		t.Fatal("t1 missing after update")
	}
	if !got.Completed {
		t.Error("expected t1 to be completed")
	}
	if all, _, completed := v.Counts(); all != 3 || completed != 2 {
		t.Errorf("unexpected counts after update: all=%d completed=%d", all, completed)
	}

	// Updates for unknown ids are dropped, not appended.
	v.ApplyUpdate(task.Task{ID: "t9", Title: "Ghost"})
	if all, _, _ := v.Counts(); all != 3 {
		t.Errorf("expected 3 tasks after unknown update, got %d", all)
	}
}

func TestApplyDelete(t *testing.T) {
	v := NewTaskView()
	v.Load(sampleTasks())

	v.ApplyDelete("t2")

	if _, ok := v.Get("t2"); ok {
		t.Error("t2 still present after delete")
	}
	if got := ids(v.Visible()); !equalIDs(got, []string{"t1", "t3"}) {
		t.Errorf("unexpected tasks after delete: %v", got)
	}

	// Deleting an absent id is a no-op.
	v.ApplyDelete("t9")
	if all, _, _ := v.Counts(); all != 2 {
		t.Errorf("expected 2 tasks, got %d", all)
	}
}

func TestTabString(t *testing.T) {
	if TabAll.String() != "all" || TabPending.String() != "pending" || TabCompleted.String() != "completed" {
		t.Error("unexpected tab names")
	}
}
