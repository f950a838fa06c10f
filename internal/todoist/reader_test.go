package todoist

import (
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/todomove/todoist/internal/intercessor"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestParseSnapshotFolders(t *testing.T) {
	snapshot := &Snapshot{
		Projects: []RawProject{
			// item_order deliberately out of slice order.
			{ID: 3, Name: "Side", Indent: 1, ItemOrder: 4},
			{ID: 1, Name: "Life admin", Indent: 1, ItemOrder: 1},
			{ID: 2, Name: "Taxes", Indent: 2, ItemOrder: 2},
			{ID: 4, Name: "Deep", Indent: 3, ItemOrder: 5},
			{ID: 5, Name: "Insurance", Indent: 2, ItemOrder: 3},
		},
	}

	g, stats, err := ParseSnapshot(snapshot, quietLogger())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	if stats.Folders != 2 || stats.Projects != 5 {
		t.Errorf("stats = %+v, want 2 folders and 5 projects", stats)
	}

	// "Life admin" holds its own project plus the two indent-2 records
	// that follow it in item_order.
	for _, folder := range g.Folders {
		switch folder.Name {
		case "Life admin":
			if len(folder.Projects) != 3 {
				t.Errorf("Life admin has %d projects, want 3", len(folder.Projects))
			}
		case "Side":
			// indent-3 records are treated as members of the open folder.
			if len(folder.Projects) != 2 {
				t.Errorf("Side has %d projects, want 2 (own + indent-3 record)", len(folder.Projects))
			}
		default:
			t.Errorf("unexpected folder %q", folder.Name)
		}
	}

	// Every record still lands as a project with its server id.
	var taxes *intercessor.Project
	for _, project := range g.Projects {
		if project.Name == "Taxes" {
			taxes = project
		}
	}
	if taxes == nil || taxes.RemoteID != "2" {
		t.Fatalf("Taxes project missing or wrong remote id: %+v", taxes)
	}
	if taxes.Folder == nil || taxes.Folder.Name != "Life admin" {
		t.Error("Taxes must be attached to the Life admin folder")
	}
}

func TestParseSnapshotSkipsDeletedAndCompleted(t *testing.T) {
	snapshot := &Snapshot{
		Projects: []RawProject{
			{ID: 1, Name: "Keep", Indent: 1, ItemOrder: 1},
			{ID: 2, Name: "Gone", Indent: 1, ItemOrder: 2, IsDeleted: 1},
		},
		Items: []RawItem{
			{ID: 10, ProjectID: 1, Content: "Live", Priority: 4},
			{ID: 11, ProjectID: 1, Content: "Done", Priority: 4, Checked: 1},
			{ID: 12, ProjectID: 1, Content: "Trashed", Priority: 4, IsDeleted: 1},
			{ID: 13, ProjectID: 2, Content: "Orphan", Priority: 4},
		},
	}

	g, stats, err := ParseSnapshot(snapshot, quietLogger())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	if len(g.Tasks) != 1 || g.Tasks[0].Title != "Live" {
		t.Errorf("tasks = %d, want only the live task", len(g.Tasks))
	}
	// Checked, deleted, and deleted-project items all count as skipped.
	if stats.SkippedItems != 3 {
		t.Errorf("skipped items = %d, want 3", stats.SkippedItems)
	}
	if stats.Projects != 1 {
		t.Errorf("projects = %d, want the deleted project dropped", stats.Projects)
	}
}

func TestParseSnapshotItemFields(t *testing.T) {
	snapshot := &Snapshot{
		Labels: []RawLabel{
			{ID: 7, Name: "errands"},
			{ID: 8, Name: "dead", IsDeleted: 1},
		},
		Projects: []RawProject{
			{ID: 1, Name: "Home", Indent: 1, ItemOrder: 1},
		},
		Items: []RawItem{
			{
				ID:         10,
				ProjectID:  1,
				Content:    "Urgent thing",
				Priority:   1,
				DateAdded:  "Fri 10 Mar 2017 14:30:00 +0000",
				DueDateUTC: "2017-04-01T09:00",
				Labels:     []int64{7, 8, 999},
			},
			{ID: 11, ProjectID: 1, Content: "Calm thing", Priority: 4},
		},
	}

	g, stats, err := ParseSnapshot(snapshot, quietLogger())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	if stats.Tags != 1 {
		t.Errorf("tags = %d, deleted labels must not be ingested", stats.Tags)
	}

	urgent := g.Tasks[0]
	if !urgent.Flagged {
		t.Error("priority 1 item must be flagged")
	}
	if g.Tasks[1].Flagged {
		t.Error("priority 4 item must not be flagged")
	}
	if urgent.Due == nil || !urgent.Due.Equal(time.Date(2017, 4, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("due = %v", urgent.Due)
	}
	if urgent.Created.IsZero() {
		t.Error("date_added not parsed")
	}
	if len(urgent.Tags) != 1 || urgent.Tags[0].Title != "errands" {
		t.Errorf("tags = %v, want only the surviving label", urgent.Tags)
	}
	// One deleted label ref plus one that never existed.
	if stats.UnknownLabelRefs != 2 {
		t.Errorf("unknown label refs = %d, want 2", stats.UnknownLabelRefs)
	}

	if urgent.RemoteID != "10" || urgent.Project.RemoteID != "1" {
		t.Error("server ids must be kept as remote ids")
	}
}

func TestParseSnapshotRecurrence(t *testing.T) {
	snapshot := &Snapshot{
		Projects: []RawProject{{ID: 1, Name: "Home", Indent: 1, ItemOrder: 1}},
		Items: []RawItem{
			{ID: 10, ProjectID: 1, Content: "Water plants", Priority: 4, DateString: "every 3 days"},
			{ID: 11, ProjectID: 1, Content: "Dated", Priority: 4, DateString: "2017-03-04"},
		},
	}

	g, _, err := ParseSnapshot(snapshot, quietLogger())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	repeat := g.Tasks[0].Repeat
	if repeat == nil || repeat.Type != "day" || repeat.Interval != 3 {
		t.Errorf("repeat = %+v, want every 3 days", repeat)
	}
	if g.Tasks[1].Repeat != nil {
		t.Error("a plain date string must not produce a repeat")
	}
}

func TestParseSnapshotUnsupportedRecurrenceFails(t *testing.T) {
	snapshot := &Snapshot{
		Projects: []RawProject{{ID: 1, Name: "Home", Indent: 1, ItemOrder: 1}},
		Items: []RawItem{
			{ID: 10, ProjectID: 1, Content: "Odd", Priority: 4, DateString: "every fortnight"},
		},
	}

	_, _, err := ParseSnapshot(snapshot, quietLogger())
	if !errors.Is(err, ErrUnsupportedRecurrence) {
		t.Fatalf("got %v, want the recurrence error surfaced, not swallowed", err)
	}
}

func TestParseSnapshotNotes(t *testing.T) {
	snapshot := &Snapshot{
		Projects: []RawProject{{ID: 1, Name: "Home", Indent: 1, ItemOrder: 1}},
		Items: []RawItem{
			{ID: 10, ProjectID: 1, Content: "Documented", Priority: 4},
		},
		Notes: []RawNote{
			{ID: 100, ItemID: 10, Content: "first"},
			{ID: 101, ItemID: 10, Content: "second"},
			{ID: 102, ItemID: 10, Content: "deleted", IsDeleted: 1},
			{ID: 103, ItemID: 999, Content: "lost"},
		},
	}

	g, stats, err := ParseSnapshot(snapshot, quietLogger())
	if err != nil {
		t.Fatalf("ParseSnapshot failed: %v", err)
	}

	if g.Tasks[0].Notes != "first\nsecond" {
		t.Errorf("notes = %q, want newline-joined", g.Tasks[0].Notes)
	}
	if stats.Notes != 2 {
		t.Errorf("notes = %d, want 2", stats.Notes)
	}
	if stats.UnknownTaskNotes != 1 {
		t.Errorf("unknown task notes = %d, want 1", stats.UnknownTaskNotes)
	}
}

func TestParseTodoistTime(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"Fri 10 Mar 2017 14:30:00 +0000", true},
		{"2017-03-10T14:30:00Z", true},
		{"2017-03-10T14:30:00", true},
		{"2017-03-10T14:30", true},
		{"2017-03-10", true},
		{"", false},
		{"not a date", false},
	}

	for _, tt := range tests {
		if _, ok := parseTodoistTime(tt.value); ok != tt.ok {
			t.Errorf("parseTodoistTime(%q) ok = %v, want %v", tt.value, ok, tt.ok)
		}
	}
}
