package intercessor

import (
	"time"

	"github.com/google/uuid"
)

// Tag is a label that can be attached to any number of tasks.
type Tag struct {
	// ID is the stable client identifier, assigned at creation.
	ID string
	// Title is the human-readable tag name.
	Title string
	// RemoteID is the identifier the remote service issued for this tag.
	// Empty until the tag has been reconciled.
	RemoteID string
}

// NewTag creates a tag with a fresh client id.
func NewTag(title string) *Tag {
	return &Tag{
		ID:    uuid.NewString(),
		Title: title,
	}
}

// Folder groups projects one level deep. Folders never nest.
type Folder struct {
	ID   string
	Name string
	// Projects lists the folder's children in order. The folder shares the
	// projects with the graph; it does not own their lifetime.
	Projects []*Project
	RemoteID string
}

// NewFolder creates a folder with a fresh client id.
func NewFolder(name string) *Folder {
	return &Folder{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// Attach adds a project to the folder and sets the project's back-reference.
func (f *Folder) Attach(p *Project) {
	f.Projects = append(f.Projects, p)
	p.Folder = f
}

// Project is a list of tasks, optionally living inside a folder.
type Project struct {
	ID   string
	Name string
	// Folder is a weak back-reference used for lookups only; nil when the
	// project is standalone.
	Folder *Folder
	// Repeat is the project's default repeat rule, applied to tasks that
	// carry none of their own.
	Repeat   *Repeat
	RemoteID string
}

// NewProject creates a project with a fresh client id.
func NewProject(name string) *Project {
	return &Project{
		ID:   uuid.NewString(),
		Name: name,
	}
}

// Task is a single todo item belonging to exactly one project.
type Task struct {
	ID    string
	Title string
	// Project is the owning project. Every task has one.
	Project *Project
	// Tags are shared references into the graph's tag set.
	Tags      []*Tag
	Flagged   bool
	Completed bool
	// Due is when the task should be completed; Defer hides the task until
	// the given time. Due wins when both are set.
	Due   *time.Time
	Defer *time.Time
	// Repeat overrides the project's default repeat rule when set.
	Repeat *Repeat
	// Notes is free-form text attached to the task.
	Notes    string
	Created  time.Time
	RemoteID string
}

// NewTask creates a task with a fresh client id.
func NewTask(title string) *Task {
	return &Task{
		ID:    uuid.NewString(),
		Title: title,
	}
}

// ClientID returns the tag's stable client identifier.
func (t *Tag) ClientID() string { return t.ID }

// RemoteIdentifier returns the reconciled remote id, or "" if unresolved.
func (t *Tag) RemoteIdentifier() string { return t.RemoteID }

// SetRemoteID records the server-issued identifier for the tag.
func (t *Tag) SetRemoteID(id string) { t.RemoteID = id }

// ClientID returns the folder's stable client identifier.
func (f *Folder) ClientID() string { return f.ID }

// RemoteIdentifier returns the reconciled remote id, or "" if unresolved.
func (f *Folder) RemoteIdentifier() string { return f.RemoteID }

// SetRemoteID records the server-issued identifier for the folder.
func (f *Folder) SetRemoteID(id string) { f.RemoteID = id }

// ClientID returns the project's stable client identifier.
func (p *Project) ClientID() string { return p.ID }

// RemoteIdentifier returns the reconciled remote id, or "" if unresolved.
func (p *Project) RemoteIdentifier() string { return p.RemoteID }

// SetRemoteID records the server-issued identifier for the project.
func (p *Project) SetRemoteID(id string) { p.RemoteID = id }

// ClientID returns the task's stable client identifier.
func (t *Task) ClientID() string { return t.ID }

// RemoteIdentifier returns the reconciled remote id, or "" if unresolved.
func (t *Task) RemoteIdentifier() string { return t.RemoteID }

// SetRemoteID records the server-issued identifier for the task.
func (t *Task) SetRemoteID(id string) { t.RemoteID = id }

// EffectiveRepeat returns the task's own repeat rule, falling back to the
// owning project's default. Returns nil when neither is set.
func (t *Task) EffectiveRepeat() *Repeat {
	if t.Repeat != nil {
		return t.Repeat
	}
	if t.Project != nil {
		return t.Project.Repeat
	}
	return nil
}
