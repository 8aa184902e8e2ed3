package content

import (
	"context"
	"strings"
	"sync"
)

// Entry is a knowledge base article used for message personalization.
type Entry struct {
	Title    string
	Content  string
	Category string
}

// KnowledgeBase lists the active personalization entries for a group.
type KnowledgeBase interface {
	ListActive(ctx context.Context, groupID string) ([]Entry, error)
}

// StaticKnowledgeBase serves a fixed per-group entry set. It is the
// default collaborator when no external knowledge store is wired.
type StaticKnowledgeBase struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewStaticKnowledgeBase() *StaticKnowledgeBase {
	return &StaticKnowledgeBase{entries: make(map[string][]Entry)}
}

func (kb *StaticKnowledgeBase) Put(groupID string, entries []Entry) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.entries[strings.TrimSpace(groupID)] = entries
}

func (kb *StaticKnowledgeBase) ListActive(ctx context.Context, groupID string) ([]Entry, error) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	entries := kb.entries[strings.TrimSpace(groupID)]
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return copied, nil
}
