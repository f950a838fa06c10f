package intercessor

// Graph aggregates one account's worth of entities. It is what a service
// reader produces and what a service writer consumes.
type Graph struct {
	Tags     []*Tag
	Folders  []*Folder
	Projects []*Project
	Tasks    []*Task
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// AddTag appends a tag to the graph.
func (g *Graph) AddTag(t *Tag) { g.Tags = append(g.Tags, t) }

// AddFolder appends a folder to the graph.
func (g *Graph) AddFolder(f *Folder) { g.Folders = append(g.Folders, f) }

// AddProject appends a project to the graph.
func (g *Graph) AddProject(p *Project) { g.Projects = append(g.Projects, p) }

// AddTask appends a task to the graph.
func (g *Graph) AddTask(t *Task) { g.Tasks = append(g.Tasks, t) }

// TagByID returns the tag with the given client id, or nil.
func (g *Graph) TagByID(id string) *Tag {
	for _, t := range g.Tags {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// FolderByID returns the folder with the given client id, or nil.
func (g *Graph) FolderByID(id string) *Folder {
	for _, f := range g.Folders {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// ProjectByID returns the project with the given client id, or nil.
func (g *Graph) ProjectByID(id string) *Project {
	for _, p := range g.Projects {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// TaskByID returns the task with the given client id, or nil.
func (g *Graph) TaskByID(id string) *Task {
	for _, t := range g.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// RemoteIDs collects the reconciled remote ids of every entity in the graph,
// keyed by client id. Entities without a remote id are omitted.
func (g *Graph) RemoteIDs() map[string]string {
	ids := make(map[string]string)
	for _, t := range g.Tags {
		if t.RemoteID != "" {
			ids[t.ID] = t.RemoteID
		}
	}
	for _, f := range g.Folders {
		if f.RemoteID != "" {
			ids[f.ID] = f.RemoteID
		}
	}
	for _, p := range g.Projects {
		if p.RemoteID != "" {
			ids[p.ID] = p.RemoteID
		}
	}
	for _, t := range g.Tasks {
		if t.RemoteID != "" {
			ids[t.ID] = t.RemoteID
		}
	}
	return ids
}

// ApplyRemoteIDs writes previously persisted remote ids back onto matching
// entities, so an incremental run can skip already-synced ones. Unknown
// client ids are ignored.
func (g *Graph) ApplyRemoteIDs(ids map[string]string) {
	for _, t := range g.Tags {
		if id, ok := ids[t.ID]; ok {
			t.RemoteID = id
		}
	}
	for _, f := range g.Folders {
		if id, ok := ids[f.ID]; ok {
			f.RemoteID = id
		}
	}
	for _, p := range g.Projects {
		if id, ok := ids[p.ID]; ok {
			p.RemoteID = id
		}
	}
	for _, t := range g.Tasks {
		if id, ok := ids[t.ID]; ok {
			t.RemoteID = id
		}
	}
}
