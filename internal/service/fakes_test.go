package service

import (
	"context"
	"sync"

	"github.com/nudgelab/reminder-engine/internal/domain"
	"github.com/nudgelab/reminder-engine/internal/push"
)

type fakeSink struct {
	mu   sync.Mutex
	fn   func(ctx context.Context, sub domain.Subscription, payload push.Payload) error
	sent []push.Payload
}

func (f *fakeSink) Send(ctx context.Context, sub domain.Subscription, payload push.Payload) error {
	f.mu.Lock()
	f.sent = append(f.sent, payload)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, sub, payload)
	}
	return nil
}

func (f *fakeSink) sentPayloads() []push.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]push.Payload, len(f.sent))
	copy(out, f.sent)
	return out
}

type fakeResolver struct {
	fn func(ctx context.Context, kind domain.Kind, groupID string) string
}

func (f *fakeResolver) Resolve(ctx context.Context, kind domain.Kind, groupID string) string {
	if f.fn != nil {
		return f.fn(ctx, kind, groupID)
	}
	return "resolved message"
}

type fakeRateLimiter struct {
	mu      sync.Mutex
	waitFn  func(ctx context.Context, kind string) error
	waitFor []string
}

func (f *fakeRateLimiter) Allow(ctx context.Context, kind string) (bool, error) {
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, kind string) error {
	f.mu.Lock()
	f.waitFor = append(f.waitFor, kind)
	f.mu.Unlock()
	if f.waitFn != nil {
		return f.waitFn(ctx, kind)
	}
	return nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	fn         func(ctx context.Context, reminder domain.Reminder) bool
	dispatched []domain.Reminder
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, reminder domain.Reminder) bool {
	f.mu.Lock()
	f.dispatched = append(f.dispatched, reminder)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, reminder)
	}
	return true
}

func (f *fakeDispatcher) dispatchedReminders() []domain.Reminder {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Reminder, len(f.dispatched))
	copy(out, f.dispatched)
	return out
}
