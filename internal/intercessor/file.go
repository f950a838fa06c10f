package intercessor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphFile is the on-disk representation of a Graph. Relationships are
// stored as client-id references instead of pointers so the format stays
// flat and cycle-free. Files are YAML by default; a .json extension switches
// to JSON.
type GraphFile struct {
	Tags     []TagRecord     `json:"tags,omitempty" yaml:"tags,omitempty"`
	Folders  []FolderRecord  `json:"folders,omitempty" yaml:"folders,omitempty"`
	Projects []ProjectRecord `json:"projects,omitempty" yaml:"projects,omitempty"`
	Tasks    []TaskRecord    `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// TagRecord is the flat form of a Tag.
type TagRecord struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Title    string `json:"title" yaml:"title"`
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// FolderRecord is the flat form of a Folder. Membership lives on the
// project side (ProjectRecord.Folder), not here.
type FolderRecord struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" yaml:"name"`
	RemoteID string `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// ProjectRecord is the flat form of a Project.
type ProjectRecord struct {
	ID       string  `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string  `json:"name" yaml:"name"`
	Folder   string  `json:"folder,omitempty" yaml:"folder,omitempty"` // folder client id
	Repeat   *Repeat `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	RemoteID string  `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// TaskRecord is the flat form of a Task.
type TaskRecord struct {
	ID        string     `json:"id,omitempty" yaml:"id,omitempty"`
	Title     string     `json:"title" yaml:"title"`
	Project   string     `json:"project" yaml:"project"` // project client id
	Tags      []string   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Flagged   bool       `json:"flagged,omitempty" yaml:"flagged,omitempty"`
	Completed bool       `json:"completed,omitempty" yaml:"completed,omitempty"`
	Due       *time.Time `json:"due,omitempty" yaml:"due,omitempty"`
	Defer     *time.Time `json:"defer,omitempty" yaml:"defer,omitempty"`
	Repeat    *Repeat    `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
	// Created is a pointer so a zero creation time is omitted from the
	// encoded file instead of serialized as the epoch.
	Created  *time.Time `json:"created,omitempty" yaml:"created,omitempty"`
	RemoteID string     `json:"remote_id,omitempty" yaml:"remote_id,omitempty"`
}

// FromGraph flattens a graph into its file form.
func FromGraph(g *Graph) *GraphFile {
	gf := &GraphFile{}
	for _, t := range g.Tags {
		gf.Tags = append(gf.Tags, TagRecord{ID: t.ID, Title: t.Title, RemoteID: t.RemoteID})
	}
	for _, f := range g.Folders {
		gf.Folders = append(gf.Folders, FolderRecord{ID: f.ID, Name: f.Name, RemoteID: f.RemoteID})
	}
	for _, p := range g.Projects {
		rec := ProjectRecord{ID: p.ID, Name: p.Name, Repeat: p.Repeat, RemoteID: p.RemoteID}
		if p.Folder != nil {
			rec.Folder = p.Folder.ID
		}
		gf.Projects = append(gf.Projects, rec)
	}
	for _, t := range g.Tasks {
		rec := TaskRecord{
			ID:        t.ID,
			Title:     t.Title,
			Flagged:   t.Flagged,
			Completed: t.Completed,
			Due:       t.Due,
			Defer:     t.Defer,
			Repeat:    t.Repeat,
			Notes:     t.Notes,
			RemoteID:  t.RemoteID,
		}
		if !t.Created.IsZero() {
			created := t.Created
			rec.Created = &created
		}
		if t.Project != nil {
			rec.Project = t.Project.ID
		}
		for _, tag := range t.Tags {
			rec.Tags = append(rec.Tags, tag.ID)
		}
		gf.Tasks = append(gf.Tasks, rec)
	}
	return gf
}

// ToGraph resolves the file's id references into a live graph. Records
// without an id get a fresh one so hand-written files don't need to invent
// uuids. A task referencing an unknown project or tag id is an error.
func (gf *GraphFile) ToGraph() (*Graph, error) {
	g := NewGraph()

	tags := make(map[string]*Tag)
	for _, rec := range gf.Tags {
		tag := &Tag{ID: rec.ID, Title: rec.Title, RemoteID: rec.RemoteID}
		if tag.ID == "" {
			tag.ID = NewTag(rec.Title).ID
		}
		g.AddTag(tag)
		tags[tag.ID] = tag
	}

	folders := make(map[string]*Folder)
	for _, rec := range gf.Folders {
		folder := &Folder{ID: rec.ID, Name: rec.Name, RemoteID: rec.RemoteID}
		if folder.ID == "" {
			folder.ID = NewFolder(rec.Name).ID
		}
		g.AddFolder(folder)
		folders[folder.ID] = folder
	}

	projects := make(map[string]*Project)
	for _, rec := range gf.Projects {
		if rec.Repeat != nil {
			if err := rec.Repeat.Validate(); err != nil {
				return nil, fmt.Errorf("project %q: %w", rec.Name, err)
			}
		}
		project := &Project{ID: rec.ID, Name: rec.Name, Repeat: rec.Repeat, RemoteID: rec.RemoteID}
		if project.ID == "" {
			project.ID = NewProject(rec.Name).ID
		}
		if rec.Folder != "" {
			folder, ok := folders[rec.Folder]
			if !ok {
				return nil, fmt.Errorf("project %q references unknown folder %q", rec.Name, rec.Folder)
			}
			folder.Attach(project)
		}
		g.AddProject(project)
		projects[project.ID] = project
	}

	for _, rec := range gf.Tasks {
		if rec.Repeat != nil {
			if err := rec.Repeat.Validate(); err != nil {
				return nil, fmt.Errorf("task %q: %w", rec.Title, err)
			}
		}
		task := &Task{
			ID:        rec.ID,
			Title:     rec.Title,
			Flagged:   rec.Flagged,
			Completed: rec.Completed,
			Due:       rec.Due,
			Defer:     rec.Defer,
			Repeat:    rec.Repeat,
			Notes:     rec.Notes,
			RemoteID:  rec.RemoteID,
		}
		if rec.Created != nil {
			task.Created = *rec.Created
		}
		if task.ID == "" {
			task.ID = NewTask(rec.Title).ID
		}
		project, ok := projects[rec.Project]
		if !ok {
			return nil, fmt.Errorf("task %q references unknown project %q", rec.Title, rec.Project)
		}
		task.Project = project
		for _, tagID := range rec.Tags {
			tag, ok := tags[tagID]
			if !ok {
				return nil, fmt.Errorf("task %q references unknown tag %q", rec.Title, tagID)
			}
			task.Tags = append(task.Tags, tag)
		}
		g.AddTask(task)
	}

	return g, nil
}

// ReadGraphFile loads a graph from a YAML or JSON file, chosen by extension.
func ReadGraphFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %s: %w", path, err)
	}

	var gf GraphFile
	if isJSONPath(path) {
		if err := json.Unmarshal(data, &gf); err != nil {
			return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &gf); err != nil {
			return nil, fmt.Errorf("failed to parse graph file %s: %w", path, err)
		}
	}

	g, err := gf.ToGraph()
	if err != nil {
		return nil, fmt.Errorf("invalid graph file %s: %w", path, err)
	}
	return g, nil
}

// WriteGraphFile writes a graph to disk, atomically via a temp file.
func WriteGraphFile(path string, g *Graph) error {
	gf := FromGraph(g)

	var data []byte
	var err error
	if isJSONPath(path) {
		data, err = json.MarshalIndent(gf, "", "  ")
	} else {
		data, err = yaml.Marshal(gf)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create graph directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
