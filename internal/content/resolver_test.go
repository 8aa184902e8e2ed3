package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"go.uber.org/zap"
)

type fakeKnowledgeBase struct {
	listActiveFn func(ctx context.Context, groupID string) ([]Entry, error)
}

func (f *fakeKnowledgeBase) ListActive(ctx context.Context, groupID string) ([]Entry, error) {
	if f.listActiveFn == nil {
		return nil, nil
	}
	return f.listActiveFn(ctx, groupID)
}

func TestResolverTipPicksRandomEntry(t *testing.T) {
	t.Parallel()

	kb := &fakeKnowledgeBase{
		listActiveFn: func(ctx context.Context, groupID string) ([]Entry, error) {
			if groupID != "group-1" {
				t.Fatalf("groupID = %q, want group-1", groupID)
			}
			return []Entry{
				{Title: "Hydration", Content: "Drink water regularly throughout the day."},
				{Title: "Movement", Content: "Stretch every hour when sitting for long periods."},
			}, nil
		},
	}

	resolver := NewResolver(kb, zap.NewNop())
	resolver.randIntn = func(n int) int { return 1 }

	got := resolver.Resolve(context.Background(), domain.KindTip, "group-1")
	want := "Here's a tip for you: Stretch every hour when sitting for long periods."
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolverEducationPicksFirstTaggedEntry(t *testing.T) {
	t.Parallel()

	kb := &fakeKnowledgeBase{
		listActiveFn: func(ctx context.Context, groupID string) ([]Entry, error) {
			return []Entry{
				{Title: "Promo", Content: "irrelevant", Category: "marketing"},
				{Title: "Self-Exam Guide", Content: "Check monthly, a few days after your cycle ends.", Category: "Education"},
				{Title: "Other Guide", Content: "later entry", Category: "guidelines"},
			}, nil
		},
	}

	resolver := NewResolver(kb, zap.NewNop())

	got := resolver.Resolve(context.Background(), domain.KindEducation, "group-1")
	want := "Self-Exam Guide — Check monthly, a few days after your cycle ends."
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolverFallsBackOnLookupError(t *testing.T) {
	t.Parallel()

	kb := &fakeKnowledgeBase{
		listActiveFn: func(ctx context.Context, groupID string) ([]Entry, error) {
			return nil, errors.New("knowledge base unavailable")
		},
	}

	resolver := NewResolver(kb, zap.NewNop())
	resolver.randIntn = func(n int) int { return 0 }

	got := resolver.Resolve(context.Background(), domain.KindTip, "group-1")
	if got != fallbackMessages[domain.KindTip][0] {
		t.Fatalf("Resolve() = %q, want first fallback tip", got)
	}
}

func TestResolverFallsBackOnEmptyKnowledgeBase(t *testing.T) {
	t.Parallel()

	resolver := NewResolver(NewStaticKnowledgeBase(), zap.NewNop())

	got := resolver.Resolve(context.Background(), domain.KindCheckIn, "group-1")
	if got != fallbackMessages[domain.KindCheckIn][0] {
		t.Fatalf("Resolve() = %q, want check-in fallback", got)
	}
}

func TestExcerptTruncatesOnWordBoundary(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("word ", 100)
	got := excerpt(long)

	if !strings.HasSuffix(got, "...") {
		t.Fatalf("excerpt should end with ellipsis, got %q", got)
	}
	if len([]rune(got)) > maxExcerptLen+3 {
		t.Fatalf("excerpt length = %d, want <= %d", len([]rune(got)), maxExcerptLen+3)
	}
	if strings.Contains(got, "  ") {
		t.Fatalf("excerpt should normalize whitespace, got %q", got)
	}

	short := "already short"
	if excerpt(short) != short {
		t.Fatalf("excerpt(%q) = %q, want unchanged", short, excerpt(short))
	}
}

func TestStaticKnowledgeBaseIsolation(t *testing.T) {
	t.Parallel()

	kb := NewStaticKnowledgeBase()
	kb.Put("group-1", []Entry{{Title: "A", Content: "a"}})

	entries, err := kb.ListActive(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	entries[0].Title = "mutated"

	again, err := kb.ListActive(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("ListActive() error = %v", err)
	}
	if again[0].Title != "A" {
		t.Fatal("callers must not be able to mutate stored entries")
	}
}
