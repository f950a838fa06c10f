package todoist

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/todomove/todoist/internal/intercessor"
)

// Command types understood by the sync endpoint.
const (
	CmdLabelAdd   = "label_add"
	CmdProjectAdd = "project_add"
	CmdItemAdd    = "item_add"
	CmdNoteAdd    = "note_add"
)

// Layouts Todoist expects for item dates.
const (
	dueDateUTCLayout = "2006-01-02T15:04"
	dateStringLayout = "2006-01-02"
)

// Command is one server-bound instruction, submitted as part of a batch.
type Command struct {
	// Type selects the operation (label_add, project_add, item_add, note_add).
	Type string `json:"type"`
	// UUID is the idempotency/correlation token, fresh per command.
	UUID string `json:"uuid"`
	// TempID is the client-chosen identifier the server will map to a
	// permanent id in its temp_id_mapping response.
	TempID string `json:"temp_id"`
	// Args holds the type-specific fields.
	Args map[string]any `json:"args"`
}

// TempIDMapping maps client temp ids to server-issued permanent ids.
type TempIDMapping map[string]string

// TagCommand builds the label_add command for a tag.
func TagCommand(tag *intercessor.Tag) Command {
	return Command{
		Type:   CmdLabelAdd,
		UUID:   uuid.NewString(),
		TempID: tag.ID,
		Args:   map[string]any{"name": tag.Title},
	}
}

// FolderCommand builds the project_add command for a folder. Todoist has no
// folder concept; a folder becomes a top-level project at indent 1, and its
// member projects sit below it at indent 2.
func FolderCommand(folder *intercessor.Folder) Command {
	return Command{
		Type:   CmdProjectAdd,
		UUID:   uuid.NewString(),
		TempID: folder.ID,
		Args:   map[string]any{"name": folder.Name, "indent": 1},
	}
}

// ProjectCommand builds the project_add command for a project. Projects
// inside a folder are indented one level below it; standalone projects stay
// at indent 1.
func ProjectCommand(project *intercessor.Project) Command {
	indent := 1
	if project.Folder != nil {
		indent = 2
	}
	return Command{
		Type:   CmdProjectAdd,
		UUID:   uuid.NewString(),
		TempID: project.ID,
		Args:   map[string]any{"name": project.Name, "indent": indent},
	}
}

// TaskCommandOptions tunes how a task is rendered into an item_add command.
type TaskCommandOptions struct {
	// EmbedTags appends " @title" markers for each tag to the item
	// content. Meant for non-premium accounts, where Todoist stores
	// labels but hides them.
	EmbedTags bool
}

// TaskCommand builds the item_add command for a task.
//
// The owning project and any tags must already be reconciled: the command
// references their permanent remote ids. Tags without a remote id are
// omitted from the labels list rather than treated as an error. When both
// due and defer are set, due wins. A task-level repeat rule overrides the
// project's default; either one replaces the date_string with its phrase.
func TaskCommand(task *intercessor.Task, opts TaskCommandOptions) (Command, error) {
	if task.Project == nil {
		return Command{}, fmt.Errorf("task %q has no project", task.Title)
	}
	if task.Project.RemoteID == "" {
		return Command{}, fmt.Errorf("task %q: project %q: %w", task.Title, task.Project.Name, ErrUnresolvedID)
	}

	labelIDs := make([]string, 0, len(task.Tags))
	for _, tag := range task.Tags {
		if tag.RemoteID != "" {
			labelIDs = append(labelIDs, tag.RemoteID)
		}
	}

	content := task.Title
	if opts.EmbedTags {
		// Hashtags collide with project names in Todoist quick-add, so
		// tags are embedded with @ markers instead.
		for _, tag := range task.Tags {
			content += " @" + tag.Title
		}
	}

	args := map[string]any{
		"project_id": task.Project.RemoteID,
		"content":    content,
		"starred":    task.Flagged,
		"completed":  task.Completed,
		"date_lang":  "en",
		"labels":     labelIDs,
		"indent":     1,
	}

	if task.Due != nil {
		args["due_date_utc"] = task.Due.UTC().Format(dueDateUTCLayout)
		args["date_string"] = task.Due.UTC().Format(dateStringLayout)
	} else if task.Defer != nil {
		args["due_date_utc"] = task.Defer.UTC().Format(dueDateUTCLayout)
		args["date_string"] = task.Defer.UTC().Format(dateStringLayout)
	}

	if repeat := task.EffectiveRepeat(); repeat != nil {
		phrase, err := FormatRepeat(repeat)
		if err != nil {
			return Command{}, fmt.Errorf("task %q: %w", task.Title, err)
		}
		args["date_string"] = phrase
	}

	return Command{
		Type:   CmdItemAdd,
		UUID:   uuid.NewString(),
		TempID: task.ID,
		Args:   args,
	}, nil
}

// NoteCommand builds the note_add command attaching a task's notes text to
// the item created under the task's temp id. note_add returns no
// temp_id_mapping entry, so the command's own temp id is a throwaway uuid
// rather than an entity id.
func NoteCommand(task *intercessor.Task) Command {
	return Command{
		Type:   CmdNoteAdd,
		UUID:   uuid.NewString(),
		TempID: uuid.NewString(),
		Args: map[string]any{
			"content": task.Notes,
			"item_id": task.ID,
		},
	}
}
