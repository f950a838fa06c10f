package todoist

// Reconcilable is any entity that can receive a server-issued permanent id.
// All intercessor entities qualify.
type Reconcilable interface {
	ClientID() string
	RemoteIdentifier() string
	SetRemoteID(id string)
}

// Reconcile writes resolved permanent ids from the mapping onto the
// entities that produced the commands. It owns no state; it is a
// write-through onto caller-owned entities.
//
// Entities whose client id is absent from the mapping are collected into a
// *UnresolvedError, but the remaining entities are still updated: partial
// success is preferred over all-or-nothing, so a caller can resume a halted
// run without re-syncing what already resolved.
func Reconcile[E Reconcilable](entities []E, mapping TempIDMapping) error {
	var unresolved []string
	for _, entity := range entities {
		remoteID, ok := mapping[entity.ClientID()]
		if !ok {
			unresolved = append(unresolved, entity.ClientID())
			continue
		}
		entity.SetRemoteID(remoteID)
	}
	if len(unresolved) > 0 {
		return &UnresolvedError{TempIDs: unresolved}
	}
	return nil
}
