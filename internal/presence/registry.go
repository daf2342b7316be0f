package presence

// Handle is a live connection the registry can point a user at. Two handles
// are the same connection iff their IDs are equal.
type Handle interface {
	ID() string
}

// Registry maps a user id to the connection that most recently announced it.
//
// It keeps a secondary index from connection id back to user id so a closing
// connection can find its entry without scanning. Registry is not safe for
// concurrent use; it is owned by the hub's dispatch goroutine.
type Registry[H Handle] struct {
	byUser map[string]H
	byConn map[string]string
}

func NewRegistry[H Handle]() *Registry[H] {
	return &Registry[H]{
		byUser: make(map[string]H),
		byConn: make(map[string]string),
	}
}

// Register points userID at handle, replacing any previous entry. If the
// handle was announced under another user before, that association moves.
func (r *Registry[H]) Register(userID string, handle H) {
	if prev, ok := r.byUser[userID]; ok && prev.ID() != handle.ID() {
		delete(r.byConn, prev.ID())
	}
	if oldUser, ok := r.byConn[handle.ID()]; ok && oldUser != userID {
		delete(r.byUser, oldUser)
	}
	r.byUser[userID] = handle
	r.byConn[handle.ID()] = userID
}

// Lookup returns the handle currently registered for userID.
func (r *Registry[H]) Lookup(userID string) (H, bool) {
	h, ok := r.byUser[userID]
	return h, ok
}

// Unregister removes userID only while it still points at handle. A stale
// close from a superseded connection is a no-op. Reports whether an entry
// was removed.
func (r *Registry[H]) Unregister(userID string, handle H) bool {
	cur, ok := r.byUser[userID]
	if !ok || cur.ID() != handle.ID() {
		return false
	}
	delete(r.byUser, userID)
	delete(r.byConn, handle.ID())
	return true
}

// UserFor returns the user a connection is currently registered under.
func (r *Registry[H]) UserFor(connID string) (string, bool) {
	u, ok := r.byConn[connID]
	return u, ok
}

// Len is the number of users with a live entry.
func (r *Registry[H]) Len() int {
	return len(r.byUser)
}
