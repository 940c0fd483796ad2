package bus

import "sync"

// ThreadID identifies the OS/goroutine-pool worker slot a notification is
// sent from. It is opaque to this package; callers typically derive it from
// a worker-local counter assigned at worker startup.
type ThreadID uint64

// ClientMap is the process-wide thread-id -> bus-client-id registry. It
// exists because the pipeline-notification send site lives deep inside the
// storage stack, several calls below the worker's entry point, and cannot
// have the sender's ClientID threaded through every intervening call.
//
// Grounded on pkg/memtable/memtable.go's package-level sync.Once-guarded
// state (the `once`/`minimumBytes` pair): one instance per process, owned by
// the query-execution runtime (the package itself holds no global instance;
// see NewClientMap), populated once per worker before that worker does any
// work, and read many times after.
type ClientMap struct {
	mu  sync.RWMutex
	ids map[ThreadID]ClientID
}

// NewClientMap constructs an empty registry. The query-execution runtime
// owns exactly one of these for its lifetime; workers Register on start and
// Unregister on exit.
func NewClientMap() *ClientMap {
	return &ClientMap{ids: make(map[ThreadID]ClientID)}
}

// Register associates threadID with clientID. Called once per worker,
// before that worker performs any inserts.
func (m *ClientMap) Register(threadID ThreadID, clientID ClientID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[threadID] = clientID
}

// Unregister removes threadID's association. Called once a worker has
// joined and will send no further notifications.
func (m *ClientMap) Unregister(threadID ThreadID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.ids, threadID)
}

// Lookup returns the bus client id registered for threadID, or false if the
// worker never registered (a programmer error at the call site, since every
// worker must register before inserting).
func (m *ClientMap) Lookup(threadID ThreadID) (ClientID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[threadID]
	return id, ok
}
