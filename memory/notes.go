package memory

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
)

// Notes holds the prompt notes stored under the memory/ namespace. Each note
// becomes one section of the system prompt, titled by its base name without
// extension. Reload replaces the held set; reads never touch the store.
type Notes struct {
	store   Store
	mu      sync.RWMutex
	entries []Entry
}

// NewNotes creates an empty Notes over store.
func NewNotes(store Store) *Notes {
	return &Notes{store: store}
}

// Reload reads every note currently in the store.
func (n *Notes) Reload(ctx context.Context) error {
	keys, err := n.store.List(ctx)
	if err != nil {
		return fmt.Errorf("list notes: %w", err)
	}

	prefix := NamespaceMemory + "/"
	keys = slices.DeleteFunc(keys, func(k string) bool {
		return !strings.HasPrefix(k, prefix)
	})
	slices.Sort(keys)

	var entries []Entry
	if len(keys) > 0 {
		entries, err = n.store.Load(ctx, keys...)
		if err != nil {
			return fmt.Errorf("load notes: %w", err)
		}
		entries = slices.DeleteFunc(entries, func(e Entry) bool {
			return !strings.HasPrefix(e.Key, prefix)
		})
		slices.SortFunc(entries, func(a, b Entry) int {
			return strings.Compare(a.Key, b.Key)
		})
	}

	n.mu.Lock()
	n.entries = entries
	n.mu.Unlock()
	return nil
}

// Entries returns copies of the held notes in key order.
func (n *Notes) Entries() []Entry {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]Entry, len(n.entries))
	for i, e := range n.entries {
		out[i] = Entry{Key: e.Key, Value: slices.Clone(e.Value)}
	}
	return out
}

// Prompt renders the held notes as "## <name>\n\n<text>" sections separated
// by blank lines. Notes with only whitespace are skipped.
func (n *Notes) Prompt() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	sections := make([]string, 0, len(n.entries))
	for _, e := range n.entries {
		text := strings.TrimSpace(string(e.Value))
		if text == "" {
			continue
		}
		name := strings.TrimSuffix(path.Base(e.Key), path.Ext(e.Key))
		sections = append(sections, "## "+name+"\n\n"+text)
	}
	return strings.Join(sections, "\n\n")
}

// LoadPrompt reads the notes in store and returns their rendered prompt.
// A nil store yields "".
func LoadPrompt(ctx context.Context, store Store) (string, error) {
	if store == nil {
		return "", nil
	}
	notes := NewNotes(store)
	if err := notes.Reload(ctx); err != nil {
		return "", err
	}
	return notes.Prompt(), nil
}
