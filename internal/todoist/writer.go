package todoist

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/todomove/todoist/internal/intercessor"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	// Premium enables premium-only features (note_add commands). Fetch it
	// once via Client.FetchPremium before constructing the writer.
	Premium bool
	// EmbedTagsOnBasic appends tag titles to task content as " @title"
	// markers when the account is not premium, where labels exist but
	// stay hidden. Off by default.
	EmbedTagsOnBasic bool
	// Dispatch tunes batching and retry.
	Dispatch DispatcherOptions
}

// Writer pushes an intercessor graph to Todoist in dependency order: tags,
// folders, projects, then tasks with their notes. Each stage blocks on the
// previous stage's reconciliation because later commands reference earlier
// permanent ids (a task carries its project's and tags' remote ids, and a
// project's indent depends on its folder existing).
//
// Entities that already carry a RemoteID are skipped, so a run halted
// halfway can be resumed without duplicating what already synced.
type Writer struct {
	dispatcher *Dispatcher
	logger     *log.Logger
	premium    bool
	embedTags  bool
}

// NewWriter creates a writer over the given transport.
//
// If logger is nil, a default logger writing to stderr is used.
func NewWriter(transport Transport, logger *log.Logger, opts WriterOptions) *Writer {
	if logger == nil {
		logger = log.New(os.Stderr, "[todoist] ", log.LstdFlags)
	}
	return &Writer{
		dispatcher: NewDispatcher(transport, logger, opts.Dispatch),
		logger:     logger,
		premium:    opts.Premium,
		embedTags:  opts.EmbedTagsOnBasic && !opts.Premium,
	}
}

// SyncResult counts what a sync run pushed and what it skipped as already
// reconciled.
type SyncResult struct {
	Tags     int
	Folders  int
	Projects int
	Tasks    int
	Notes    int
	Skipped  int
}

// SyncFrom pushes the whole graph. The pipeline halts at the first failing
// stage; entities from completed stages stay reconciled, so re-running with
// the same graph resumes where it stopped.
func (w *Writer) SyncFrom(ctx context.Context, g *intercessor.Graph) (*SyncResult, error) {
	result := &SyncResult{}

	var err error
	if result.Tags, err = w.SyncTags(ctx, g.Tags); err != nil {
		return result, fmt.Errorf("failed to sync tags: %w", err)
	}
	if result.Folders, err = w.SyncFolders(ctx, g.Folders); err != nil {
		return result, fmt.Errorf("failed to sync folders: %w", err)
	}
	if result.Projects, err = w.SyncProjects(ctx, g.Projects); err != nil {
		return result, fmt.Errorf("failed to sync projects: %w", err)
	}
	if result.Tasks, result.Notes, err = w.SyncTasks(ctx, g.Tasks); err != nil {
		return result, fmt.Errorf("failed to sync tasks: %w", err)
	}

	total := len(g.Tags) + len(g.Folders) + len(g.Projects) + len(g.Tasks)
	result.Skipped = total - result.Tags - result.Folders - result.Projects - result.Tasks

	w.logger.Printf("Sync complete: tags=%d folders=%d projects=%d tasks=%d notes=%d skipped=%d",
		result.Tags, result.Folders, result.Projects, result.Tasks, result.Notes, result.Skipped)

	return result, nil
}

// SyncTags pushes tags as label_add commands and reconciles their remote
// ids. Returns the number of tags synced.
func (w *Writer) SyncTags(ctx context.Context, tags []*intercessor.Tag) (int, error) {
	pending := unsynced(tags)
	if len(pending) == 0 {
		return 0, nil
	}

	commands := make([]Command, 0, len(pending))
	for _, tag := range pending {
		commands = append(commands, TagCommand(tag))
	}

	if err := dispatchAndReconcile(w, ctx, commands, pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// SyncFolders pushes folders as indent-1 project_add commands. Must run
// before SyncProjects so member projects can be indented beneath them.
func (w *Writer) SyncFolders(ctx context.Context, folders []*intercessor.Folder) (int, error) {
	pending := unsynced(folders)
	if len(pending) == 0 {
		return 0, nil
	}

	commands := make([]Command, 0, len(pending))
	for _, folder := range pending {
		commands = append(commands, FolderCommand(folder))
	}

	if err := dispatchAndReconcile(w, ctx, commands, pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// SyncProjects pushes projects as project_add commands, indent 2 when the
// project lives inside a folder.
func (w *Writer) SyncProjects(ctx context.Context, projects []*intercessor.Project) (int, error) {
	pending := unsynced(projects)
	if len(pending) == 0 {
		return 0, nil
	}

	commands := make([]Command, 0, len(pending))
	for _, project := range pending {
		commands = append(commands, ProjectCommand(project))
	}

	if err := dispatchAndReconcile(w, ctx, commands, pending); err != nil {
		return 0, err
	}
	return len(pending), nil
}

// SyncTasks pushes tasks as item_add commands, each followed by a note_add
// command when the task has notes and the account is premium. Tag and
// project remote ids must already be reconciled. Returns the number of
// tasks and notes synced.
func (w *Writer) SyncTasks(ctx context.Context, tasks []*intercessor.Task) (int, int, error) {
	pending := unsynced(tasks)
	if len(pending) == 0 {
		return 0, 0, nil
	}

	notes := 0
	commands := make([]Command, 0, len(pending))
	for _, task := range pending {
		command, err := TaskCommand(task, TaskCommandOptions{EmbedTags: w.embedTags})
		if err != nil {
			return 0, 0, err
		}
		commands = append(commands, command)

		if task.Notes != "" && w.premium {
			commands = append(commands, NoteCommand(task))
			notes++
		}
	}

	if err := dispatchAndReconcile(w, ctx, commands, pending); err != nil {
		return 0, 0, err
	}
	return len(pending), notes, nil
}

// dispatchAndReconcile sends the commands and writes the returned permanent
// ids back onto the entities. The mapping may legitimately contain more
// entries than entities (note_add temp ids are throwaway), but every entity
// must resolve.
func dispatchAndReconcile[E Reconcilable](w *Writer, ctx context.Context, commands []Command, entities []E) error {
	mapping, err := w.dispatcher.Dispatch(ctx, commands)
	if err != nil {
		return err
	}
	return Reconcile(entities, mapping)
}

// unsynced filters out entities that already have a remote id.
func unsynced[E Reconcilable](entities []E) []E {
	var pending []E
	for _, entity := range entities {
		if entity.RemoteIdentifier() != "" {
			continue
		}
		pending = append(pending, entity)
	}
	return pending
}
