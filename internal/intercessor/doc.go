// Package intercessor provides the canonical, service-agnostic todo-list
// model shared by every service adapter: tags, folders, projects, tasks,
// notes and repeat rules.
//
// Entities are identified by a client id assigned at construction time. The
// id is the only stable correlation key between local state and in-flight
// remote commands, so it never changes after creation. Service adapters
// record the identifier a remote service hands back in the entity's RemoteID
// field; an empty RemoteID means the entity has not been reconciled yet.
//
// The model deliberately keeps relationships shallow: a folder holds
// projects (one level, folders never nest), a project optionally points back
// at its folder, and a task points at exactly one project plus any number of
// shared tags.
package intercessor
