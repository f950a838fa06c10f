package todoist

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/todomove/todoist/internal/intercessor"
)

// testGraph builds a folder with two projects, a tagged task with notes in
// the first project, and a standalone project.
func testGraph() *intercessor.Graph {
	g := intercessor.NewGraph()

	shopping := intercessor.NewTag("shopping")
	errands := intercessor.NewTag("errands")
	g.AddTag(shopping)
	g.AddTag(errands)

	folder := intercessor.NewFolder("Life admin")
	g.AddFolder(folder)

	home := intercessor.NewProject("Home")
	work := intercessor.NewProject("Work")
	folder.Attach(home)
	folder.Attach(work)
	g.AddProject(home)
	g.AddProject(work)

	inbox := intercessor.NewProject("Inbox")
	g.AddProject(inbox)

	task := intercessor.NewTask("Buy milk")
	task.Project = home
	task.Tags = []*intercessor.Tag{shopping, errands}
	task.Notes = "semi-skimmed"
	g.AddTask(task)

	return g
}

func TestWriterSyncFrom(t *testing.T) {
	var batches [][]Command
	writer := NewWriter(okTransport(&batches), nil, WriterOptions{
		Premium:  true,
		Dispatch: DispatcherOptions{RetryDelay: 1},
	})

	g := testGraph()
	result, err := writer.SyncFrom(context.Background(), g)
	if err != nil {
		t.Fatalf("SyncFrom failed: %v", err)
	}

	if result.Tags != 2 || result.Folders != 1 || result.Projects != 3 || result.Tasks != 1 || result.Notes != 1 {
		t.Errorf("result = %+v", result)
	}

	// One dispatch per stage, in dependency order.
	if len(batches) != 4 {
		t.Fatalf("got %d dispatches, want 4", len(batches))
	}
	wantTypes := []string{CmdLabelAdd, CmdProjectAdd, CmdProjectAdd, CmdItemAdd}
	for i, batch := range batches {
		if batch[0].Type != wantTypes[i] {
			t.Errorf("stage %d dispatched %q, want %q", i, batch[0].Type, wantTypes[i])
		}
	}

	// The task stage carries the note command right behind its task.
	taskBatch := batches[3]
	if len(taskBatch) != 2 || taskBatch[1].Type != CmdNoteAdd {
		t.Errorf("task batch = %d commands, want item_add followed by note_add", len(taskBatch))
	}

	// Every entity ends up reconciled.
	for _, tag := range g.Tags {
		if tag.RemoteID == "" {
			t.Errorf("tag %q not reconciled", tag.Title)
		}
	}
	for _, project := range g.Projects {
		if project.RemoteID == "" {
			t.Errorf("project %q not reconciled", project.Name)
		}
	}
	if g.Tasks[0].RemoteID == "" {
		t.Error("task not reconciled")
	}

	// Folder ids resolve before project commands are built, so folder
	// members are indented and the standalone project is not.
	projectBatch := batches[2]
	indents := map[string]any{}
	for _, command := range projectBatch {
		indents[command.Args["name"].(string)] = command.Args["indent"]
	}
	if indents["Home"] != 2 || indents["Work"] != 2 {
		t.Errorf("folder members indent = %v/%v, want 2/2", indents["Home"], indents["Work"])
	}
	if indents["Inbox"] != 1 {
		t.Errorf("standalone project indent = %v, want 1", indents["Inbox"])
	}

	// The task references the reconciled project and tag ids.
	taskArgs := batches[3][0].Args
	if taskArgs["project_id"] != g.Tasks[0].Project.RemoteID {
		t.Errorf("project_id = %v, want %q", taskArgs["project_id"], g.Tasks[0].Project.RemoteID)
	}
	labels := taskArgs["labels"].([]string)
	if len(labels) != 2 {
		t.Errorf("labels = %v, want both reconciled tag ids", labels)
	}
}

func TestWriterSkipsNotesOnBasicAccounts(t *testing.T) {
	var batches [][]Command
	writer := NewWriter(okTransport(&batches), nil, WriterOptions{
		Premium:  false,
		Dispatch: DispatcherOptions{RetryDelay: 1},
	})

	result, err := writer.SyncFrom(context.Background(), testGraph())
	if err != nil {
		t.Fatalf("SyncFrom failed: %v", err)
	}
	if result.Notes != 0 {
		t.Errorf("notes synced = %d, want 0 on a basic account", result.Notes)
	}
	for _, batch := range batches {
		for _, command := range batch {
			if command.Type == CmdNoteAdd {
				t.Error("note_add dispatched on a basic account")
			}
		}
	}
}

func TestWriterSkipsReconciledEntities(t *testing.T) {
	var batches [][]Command
	writer := NewWriter(okTransport(&batches), nil, WriterOptions{
		Premium:  true,
		Dispatch: DispatcherOptions{RetryDelay: 1},
	})

	g := testGraph()
	if _, err := writer.SyncFrom(context.Background(), g); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	// Second run: everything already carries a remote id.
	batches = nil
	result, err := writer.SyncFrom(context.Background(), g)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(batches) != 0 {
		t.Errorf("second sync dispatched %d batches, want 0", len(batches))
	}
	if result.Skipped != 7 {
		t.Errorf("skipped = %d, want 7 (2 tags + 1 folder + 3 projects + 1 task)", result.Skipped)
	}
}

func TestWriterHaltsPipelineButKeepsEarlierStages(t *testing.T) {
	transport := transportFunc(func(ctx context.Context, commands []Command) (TempIDMapping, error) {
		if commands[0].Type == CmdItemAdd {
			return nil, fmt.Errorf("%w: server unavailable", ErrTransport)
		}
		mapping := make(TempIDMapping, len(commands))
		for _, command := range commands {
			mapping[command.TempID] = "r-" + command.TempID
		}
		return mapping, nil
	})

	writer := NewWriter(transport, nil, WriterOptions{
		Premium:  true,
		Dispatch: DispatcherOptions{MaxAttempts: 1, RetryDelay: 1},
	})

	g := testGraph()
	_, err := writer.SyncFrom(context.Background(), g)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("got %v, want transport failure from the task stage", err)
	}

	// Earlier stages stay validly reconciled so a re-run resumes there.
	for _, tag := range g.Tags {
		if tag.RemoteID == "" {
			t.Errorf("tag %q lost its reconciliation", tag.Title)
		}
	}
	for _, project := range g.Projects {
		if project.RemoteID == "" {
			t.Errorf("project %q lost its reconciliation", project.Name)
		}
	}
	if g.Tasks[0].RemoteID != "" {
		t.Error("task must stay unresolved after the failed stage")
	}
}

func TestWriterSingleStageSync(t *testing.T) {
	var batches [][]Command
	writer := NewWriter(okTransport(&batches), nil, WriterOptions{
		Premium:  true,
		Dispatch: DispatcherOptions{RetryDelay: 1},
	})

	// Project and tag were reconciled in a previous run; only the new
	// task needs to go up.
	project := intercessor.NewProject("Home")
	project.RemoteID = "500"
	tag := intercessor.NewTag("urgent")
	tag.RemoteID = "600"

	task := intercessor.NewTask("New thing")
	task.Project = project
	task.Tags = []*intercessor.Tag{tag}

	synced, notes, err := writer.SyncTasks(context.Background(), []*intercessor.Task{task})
	if err != nil {
		t.Fatalf("SyncTasks failed: %v", err)
	}
	if synced != 1 || notes != 0 {
		t.Errorf("synced = %d notes = %d", synced, notes)
	}
	if task.RemoteID == "" {
		t.Error("task not reconciled")
	}
	if len(batches) != 1 {
		t.Errorf("got %d dispatches, want 1", len(batches))
	}
}

func TestWriterEmbedTagsOnlyOnBasic(t *testing.T) {
	// Premium accounts get real labels; the embed option must not fire.
	var batches [][]Command
	writer := NewWriter(okTransport(&batches), nil, WriterOptions{
		Premium:          true,
		EmbedTagsOnBasic: true,
		Dispatch:         DispatcherOptions{RetryDelay: 1},
	})

	g := testGraph()
	if _, err := writer.SyncFrom(context.Background(), g); err != nil {
		t.Fatalf("SyncFrom failed: %v", err)
	}
	content := batches[3][0].Args["content"].(string)
	if content != "Buy milk" {
		t.Errorf("content = %q, tags must not be embedded on premium", content)
	}
}
