package content

import (
	"bytes"
	"context"
	"math/rand"
	"strings"
	"text/template"
	"unicode"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"go.uber.org/zap"
)

const maxExcerptLen = 200

var messageTemplates = map[domain.Kind]string{
	domain.KindTip:       `Here's a tip for you: {{.Excerpt}}`,
	domain.KindEducation: `{{.Title}} — {{.Excerpt}}`,
}

var fallbackMessages = map[domain.Kind][]string{
	domain.KindTip: {
		"Small habits add up. Take a short walk today and drink plenty of water.",
		"A few minutes of mindfulness can lower stress. Try a breathing exercise now.",
		"Regular sleep is one of the best things you can do for your health.",
	},
	domain.KindReminder: {
		"You have a pending item on your health plan. Open the app to review it.",
	},
	domain.KindCheckIn: {
		"How are you feeling today? Take a minute to log your check-in.",
	},
	domain.KindEducation: {
		"Knowing your own baseline is the first step. Review the self-exam guide in the app.",
	},
}

// Resolver produces personalized message text for a reminder kind using
// the group's knowledge base, falling back to generic messages when the
// knowledge base is empty or unavailable. It never returns an error to
// callers; lookup failures are logged and absorbed.
type Resolver struct {
	kb       KnowledgeBase
	logger   *zap.Logger
	randIntn func(n int) int
}

func NewResolver(kb KnowledgeBase, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		kb:       kb,
		logger:   logger,
		randIntn: rand.Intn,
	}
}

func (r *Resolver) Resolve(ctx context.Context, kind domain.Kind, groupID string) string {
	entry, ok := r.pickEntry(ctx, kind, groupID)
	if !ok {
		return r.fallback(kind)
	}

	tmpl, ok := messageTemplates[kind]
	if !ok {
		return r.fallback(kind)
	}

	parsed, err := template.New(kind.String()).Parse(tmpl)
	if err != nil {
		r.logger.Error("failed to parse message template",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return r.fallback(kind)
	}

	var buf bytes.Buffer
	err = parsed.Execute(&buf, struct {
		Title   string
		Excerpt string
	}{
		Title:   strings.TrimSpace(entry.Title),
		Excerpt: excerpt(entry.Content),
	})
	if err != nil {
		r.logger.Error("failed to render message template",
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return r.fallback(kind)
	}

	return buf.String()
}

func (r *Resolver) pickEntry(ctx context.Context, kind domain.Kind, groupID string) (Entry, bool) {
	if r.kb == nil {
		return Entry{}, false
	}

	entries, err := r.kb.ListActive(ctx, groupID)
	if err != nil {
		r.logger.Warn("knowledge base lookup failed, using fallback message",
			zap.String("groupId", groupID),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
		return Entry{}, false
	}
	if len(entries) == 0 {
		return Entry{}, false
	}

	switch kind {
	case domain.KindTip:
		return entries[r.randIntn(len(entries))], true
	case domain.KindEducation:
		for _, entry := range entries {
			category := strings.ToLower(strings.TrimSpace(entry.Category))
			if category == "education" || category == "guidelines" {
				return entry, true
			}
		}
		return Entry{}, false
	default:
		return Entry{}, false
	}
}

func (r *Resolver) fallback(kind domain.Kind) string {
	candidates := fallbackMessages[kind]
	if len(candidates) == 0 {
		return "You have a new notification."
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	return candidates[r.randIntn(len(candidates))]
}

// excerpt truncates content to maxExcerptLen runes on a word boundary.
func excerpt(content string) string {
	trimmed := strings.Join(strings.Fields(content), " ")
	runes := []rune(trimmed)
	if len(runes) <= maxExcerptLen {
		return trimmed
	}

	cut := maxExcerptLen
	for cut > 0 && !unicode.IsSpace(runes[cut]) {
		cut--
	}
	if cut == 0 {
		cut = maxExcerptLen
	}
	return strings.TrimRight(string(runes[:cut]), " ") + "..."
}
