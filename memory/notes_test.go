package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/tailored-agentic-units/tradedesk/memory"
)

type failingStore struct {
	memory.Store
	listErr error
	loadErr error
}

func (s failingStore) List(ctx context.Context) ([]string, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.Store.List(ctx)
}

func (s failingStore) Load(ctx context.Context, keys ...string) ([]memory.Entry, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.Store.Load(ctx, keys...)
}

func TestNotes_Reload(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "memory/limits.md", "Never buy more than 100 shares.\n")
	writeTestFile(t, root, "memory/desk/style.txt", "Answer briefly.")
	writeTestFile(t, root, "memory/empty.md", "  \n")
	writeTestFile(t, root, "sessions/thread-2.json", "{}")

	notes := memory.NewNotes(memory.NewFileStore(root))
	if err := notes.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	entries := notes.Entries()
	if len(entries) != 3 {
		t.Fatalf("Entries() returned %d, want 3", len(entries))
	}
	if entries[0].Key != "memory/desk/style.txt" {
		t.Errorf("Entries()[0].Key = %q, want memory/desk/style.txt", entries[0].Key)
	}

	want := "## style\n\nAnswer briefly.\n\n## limits\n\nNever buy more than 100 shares."
	if got := notes.Prompt(); got != want {
		t.Errorf("Prompt() = %q, want %q", got, want)
	}
}

func TestNotes_ReloadPicksUpEdits(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "memory/limits.md", "v1")
	notes := memory.NewNotes(memory.NewFileStore(root))
	ctx := context.Background()

	if err := notes.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	writeTestFile(t, root, "memory/limits.md", "v2")

	if got := notes.Prompt(); got != "## limits\n\nv1" {
		t.Errorf("Prompt() before reload = %q", got)
	}
	if err := notes.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := notes.Prompt(); got != "## limits\n\nv2" {
		t.Errorf("Prompt() after reload = %q", got)
	}
}

func TestNotes_EntriesAreCopies(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "memory/limits.md", "original")
	notes := memory.NewNotes(memory.NewFileStore(root))
	if err := notes.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	notes.Entries()[0].Value[0] = 'X'
	if got := string(notes.Entries()[0].Value); got != "original" {
		t.Errorf("held note mutated to %q", got)
	}
}

func TestNotes_Errors(t *testing.T) {
	boom := errors.New("disk gone")
	root := t.TempDir()
	writeTestFile(t, root, "memory/limits.md", "notes")
	base := memory.NewFileStore(root)

	for name, store := range map[string]memory.Store{
		"list": failingStore{Store: base, listErr: boom},
		"load": failingStore{Store: base, loadErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := memory.LoadPrompt(context.Background(), store); !errors.Is(err, boom) {
				t.Errorf("LoadPrompt() error = %v, want %v", err, boom)
			}
		})
	}
}

func TestLoadPrompt(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		got, err := memory.LoadPrompt(context.Background(), nil)
		if err != nil || got != "" {
			t.Errorf("LoadPrompt(nil) = %q, %v; want empty", got, err)
		}
	})

	t.Run("no notes", func(t *testing.T) {
		root := t.TempDir()
		writeTestFile(t, root, "sessions/thread-2.json", "{}")

		got, err := memory.LoadPrompt(context.Background(), memory.NewFileStore(root))
		if err != nil || got != "" {
			t.Errorf("LoadPrompt() = %q, %v; want empty", got, err)
		}
	})
}
