package todoist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/todomove/todoist/internal/intercessor"
)

// Snapshot is one raw sync dump, as returned by the sync endpoint with the
// wildcard sync token.
type Snapshot struct {
	User     RawUser      `json:"user"`
	Labels   []RawLabel   `json:"labels"`
	Projects []RawProject `json:"projects"`
	Items    []RawItem    `json:"items"`
	Notes    []RawNote    `json:"notes"`
}

// RawUser carries the account fields the adapter cares about.
type RawUser struct {
	IsPremium bool `json:"is_premium"`
}

// RawLabel is a label record from the dump.
type RawLabel struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsDeleted int    `json:"is_deleted"`
}

// RawProject is a project record from the dump.
type RawProject struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Indent    int    `json:"indent"`
	ItemOrder int    `json:"item_order"`
	IsDeleted int    `json:"is_deleted"`
}

// RawItem is a task record from the dump.
type RawItem struct {
	ID         int64   `json:"id"`
	ProjectID  int64   `json:"project_id"`
	Content    string  `json:"content"`
	Priority   int     `json:"priority"`
	Checked    int     `json:"checked"`
	IsDeleted  int     `json:"is_deleted"`
	DateAdded  string  `json:"date_added"`
	DueDateUTC string  `json:"due_date_utc"`
	DateString string  `json:"date_string"`
	Labels     []int64 `json:"labels"`
}

// RawNote is a note record from the dump.
type RawNote struct {
	ID        int64  `json:"id"`
	ItemID    int64  `json:"item_id"`
	Content   string `json:"content"`
	IsDeleted int    `json:"is_deleted"`
}

// ReadStats reports what an ingest run produced and what it had to skip, so
// data loss during a migration is visible instead of silent.
type ReadStats struct {
	Tags     int
	Folders  int
	Projects int
	Tasks    int
	Notes    int
	// SkippedItems counts items dropped because they were deleted,
	// completed, or referenced an unknown project.
	SkippedItems int
	// UnknownTaskNotes counts notes whose item was never built into a task.
	UnknownTaskNotes int
	// UnknownLabelRefs counts label references on items that matched no
	// surviving label record.
	UnknownLabelRefs int
}

// Reader pulls one full snapshot from Todoist and converts it into the
// canonical graph.
type Reader struct {
	client *Client
	logger *log.Logger
}

// NewReader creates a reader over the given client.
//
// If logger is nil, a default logger writing to stderr is used.
func NewReader(client *Client, logger *log.Logger) *Reader {
	if logger == nil {
		logger = log.New(os.Stderr, "[todoist] ", log.LstdFlags)
	}
	return &Reader{client: client, logger: logger}
}

// ReadGraph fetches labels, projects, items and notes in one read and
// parses them into a graph.
func (r *Reader) ReadGraph(ctx context.Context) (*intercessor.Graph, *ReadStats, error) {
	snapshot, err := r.client.Read(ctx, []string{"labels", "projects", "items", "notes"})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return ParseSnapshot(snapshot, r.logger)
}

// ParseSnapshot converts a raw dump into the canonical graph:
// labels become tags, projects become folders and projects depending on
// indentation, items become tasks, and notes are appended to their task's
// notes text.
//
// Entities keep the server ids they already have as their RemoteID, so a
// graph read from Todoist counts as fully reconciled.
func ParseSnapshot(snapshot *Snapshot, logger *log.Logger) (*intercessor.Graph, *ReadStats, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[todoist] ", log.LstdFlags)
	}

	g := intercessor.NewGraph()
	stats := &ReadStats{}

	tagsByLabelID := parseLabels(snapshot.Labels, g, stats)
	projectsByID := parseProjects(snapshot.Projects, g, stats)

	tasksByItemID, err := parseItems(snapshot.Items, g, stats, projectsByID, tagsByLabelID, logger)
	if err != nil {
		return nil, nil, err
	}

	parseNotes(snapshot.Notes, stats, tasksByItemID, logger)

	return g, stats, nil
}

func parseLabels(labels []RawLabel, g *intercessor.Graph, stats *ReadStats) map[int64]*intercessor.Tag {
	tags := make(map[int64]*intercessor.Tag, len(labels))
	for _, label := range labels {
		if label.IsDeleted != 0 {
			continue
		}
		tag := intercessor.NewTag(label.Name)
		tag.RemoteID = strconv.FormatInt(label.ID, 10)
		g.AddTag(tag)
		tags[label.ID] = tag
		stats.Tags++
	}
	return tags
}

// parseProjects walks the records in item_order. A record at indent 1
// becomes both a folder and a project inside that folder, and stays the
// current folder for every deeper record that follows it; records at indent
// 0, or deeper records before any indent-1 record, are standalone. The
// produced model keeps one level of nesting only.
func parseProjects(records []RawProject, g *intercessor.Graph, stats *ReadStats) map[int64]*intercessor.Project {
	sorted := make([]RawProject, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ItemOrder < sorted[j].ItemOrder
	})

	projects := make(map[int64]*intercessor.Project, len(sorted))

	var current *intercessor.Folder
	for _, record := range sorted {
		if record.IsDeleted != 0 {
			continue
		}

		project := intercessor.NewProject(record.Name)
		project.RemoteID = strconv.FormatInt(record.ID, 10)

		switch {
		case record.Indent == 1:
			folder := intercessor.NewFolder(record.Name)
			g.AddFolder(folder)
			folder.Attach(project)
			current = folder
			stats.Folders++
		case record.Indent > 1 && current != nil:
			current.Attach(project)
		}

		g.AddProject(project)
		projects[record.ID] = project
		stats.Projects++
	}

	return projects
}

func parseItems(items []RawItem, g *intercessor.Graph, stats *ReadStats,
	projects map[int64]*intercessor.Project, tags map[int64]*intercessor.Tag,
	logger *log.Logger) (map[int64]*intercessor.Task, error) {

	tasks := make(map[int64]*intercessor.Task, len(items))
	for _, item := range items {
		if item.IsDeleted != 0 || item.Checked != 0 {
			stats.SkippedItems++
			continue
		}

		project, ok := projects[item.ProjectID]
		if !ok {
			// Project was deleted; its items go with it.
			stats.SkippedItems++
			continue
		}

		task := intercessor.NewTask(item.Content)
		task.RemoteID = strconv.FormatInt(item.ID, 10)
		task.Project = project

		for _, labelID := range item.Labels {
			tag, ok := tags[labelID]
			if !ok {
				stats.UnknownLabelRefs++
				continue
			}
			task.Tags = append(task.Tags, tag)
		}

		// Todoist priority runs 1 (natural) to 4 (very urgent), but the
		// dump encodes it inverted relative to the UI. Anything below the
		// maximum counts as flagged.
		if item.Priority < 4 {
			task.Flagged = true
		}

		if created, ok := parseTodoistTime(item.DateAdded); ok {
			task.Created = created
		}
		if item.DueDateUTC != "" {
			if due, ok := parseTodoistTime(item.DueDateUTC); ok {
				task.Due = &due
			} else {
				logger.Printf("WARNING: item %d has unparseable due date %q", item.ID, item.DueDateUTC)
			}
		}

		if IsRecurring(item.DateString) {
			repeat, err := ParseRepeat(item.DateString)
			if err != nil {
				// A dropped recurrence would silently corrupt the
				// migrated schedule, so surface it.
				return nil, fmt.Errorf("item %d (%q): %w", item.ID, item.Content, err)
			}
			task.Repeat = repeat
		}

		g.AddTask(task)
		tasks[item.ID] = task
		stats.Tasks++
	}

	return tasks, nil
}

// parseNotes appends note content onto the owning task's notes text, joined
// with a newline when the task already has notes. Notes whose item was
// filtered out or never existed are counted and skipped rather than
// aborting the ingest.
func parseNotes(notes []RawNote, stats *ReadStats, tasks map[int64]*intercessor.Task, logger *log.Logger) {
	for _, note := range notes {
		if note.IsDeleted != 0 {
			continue
		}
		if err := attachNote(note, tasks); errors.Is(err, ErrUnknownTaskReference) {
			stats.UnknownTaskNotes++
			logger.Printf("WARNING: %v", err)
			continue
		}
		stats.Notes++
	}
}

func attachNote(note RawNote, tasks map[int64]*intercessor.Task) error {
	task, ok := tasks[note.ItemID]
	if !ok {
		return fmt.Errorf("note %d: item %d: %w", note.ID, note.ItemID, ErrUnknownTaskReference)
	}
	if task.Notes == "" {
		task.Notes = note.Content
	} else {
		task.Notes += "\n" + note.Content
	}
	return nil
}

// Layouts seen in sync dumps across API generations, tried in order.
var todoistTimeLayouts = []string{
	"Mon 02 Jan 2006 15:04:05 -0700",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseTodoistTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range todoistTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
