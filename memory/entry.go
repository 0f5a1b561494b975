package memory

// Top-level namespaces.
const (
	NamespaceMemory   = "memory"
	NamespaceSessions = "sessions"
)

// Entry is one key and its raw value. Keys are slash-separated paths such as
// memory/limits.md or sessions/thread-2.json.
type Entry struct {
	Key   string
	Value []byte
}
