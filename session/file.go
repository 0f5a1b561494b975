package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tailored-agentic-units/tradedesk/memory"
)

const snapshotSuffix = ".json"

type fileStore struct {
	store memory.Store
	mu    sync.Mutex
}

// NewFileStore creates a Store that persists each session as a JSON snapshot
// in the memory namespace under memory.NamespaceSessions. Writes are atomic
// per snapshot; a single process is expected to own the directory.
func NewFileStore(store memory.Store) Store {
	return &fileStore{store: store}
}

func snapshotKey(id string) string {
	return path.Join(memory.NamespaceSessions, url.PathEscape(id)+snapshotSuffix)
}

func (s *fileStore) load(ctx context.Context, id string) (*Snapshot, error) {
	entries, err := s.store.Load(ctx, snapshotKey(id))
	if errors.Is(err, memory.ErrKeyNotFound) {
		return &Snapshot{ID: id}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(entries[0].Value, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	snap.ID = id
	return &snap, nil
}

func (s *fileStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, id)
}

func (s *fileStore) Commit(ctx context.Context, id string, c Commit) error {
	if id == "" {
		return ErrEmptyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	next, err := apply(current, c, time.Now())
	if err != nil {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	return s.store.Save(ctx, memory.Entry{Key: snapshotKey(id), Value: data})
}

func (s *fileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Delete(ctx, snapshotKey(id))
}

func (s *fileStore) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	prefix := memory.NamespaceSessions + "/"
	var ids []string
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, snapshotSuffix) {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), snapshotSuffix)
		if strings.Contains(name, "/") {
			continue
		}
		id, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fileStore) Close(context.Context) error {
	return nil
}
