// Package todoist adapts the intercessor todo-list model to the Todoist
// Sync API (v7).
//
// The write side translates entities into batched commands. Each command
// carries a correlation uuid and a temp id (the entity's client id); the
// server answers with a temp_id_mapping from temp ids to permanent ids,
// which is written back onto the entities. Stages run in dependency order:
// tags, then folders, then projects, then tasks with their notes, because a
// task command references the permanent ids of its project and tags.
//
// The read side consumes one raw sync dump (labels, projects, items, notes)
// and produces the same canonical graph the write side consumes. Todoist has
// no real folders: a project at indent 1 doubles as the folder for the
// indent-2 projects that follow it in item_order.
package todoist
