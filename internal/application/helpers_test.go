package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/infrastructure/storage"
)

var testEpoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// newTestSessions собирает сервис с детерминированными часами и ID
func newTestSessions(t *testing.T, opts ...SessionOption) (*SessionService, *storage.CollectionStore) {
	t.Helper()
	store := storage.NewCollectionStore(storage.NewMemoryStore(), nil)

	var mu sync.Mutex
	n := 0
	tick := 0
	opts = append([]SessionOption{
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick++
			return testEpoch.Add(time.Duration(tick) * time.Second)
		}),
	}, opts...)
	return NewSessionService(store, opts...), store
}

type fakePhotos struct {
	data map[string][]byte
}

func (f *fakePhotos) Save(ctx context.Context, data []byte, ext string) (string, error) {
	path := fmt.Sprintf("/photos/%d%s", len(f.data), ext)
	f.data[path] = data
	return path, nil
}

func (f *fakePhotos) Load(ctx context.Context, path string) ([]byte, error) {
	b, ok := f.data[path]
	if !ok {
		return nil, errors.New("no such photo")
	}
	return b, nil
}

type fakeCounter struct {
	count    int
	err      error
	needsKey bool
	// block, если задан, держит запрос до закрытия канала или отмены ctx
	block   chan struct{}
	started chan struct{}

	mu   sync.Mutex
	reqs []port.CountRequest
}

func (f *fakeCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.count, f.err
}

func (f *fakeCounter) RequiresCredential() bool { return f.needsKey }

func (f *fakeCounter) requests() []port.CountRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]port.CountRequest(nil), f.reqs...)
}

type countingFixture struct {
	sessions *SessionService
	settings *SettingsService
	counting *CountingService
	counter  *fakeCounter
	session  entity.Session
	photo    string
}

func newCountingFixture(t *testing.T, counter *fakeCounter) *countingFixture {
	t.Helper()
	sessions, store := newTestSessions(t)
	settings := NewSettingsService(store)
	photos := &fakePhotos{data: map[string][]byte{"/photos/a.jpg": []byte("jpeg")}}

	session, err := sessions.CreateSession(context.Background(), "Bolts", "bolt")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	return &countingFixture{
		sessions: sessions,
		settings: settings,
		counting: NewCountingService(sessions, settings, photos, counter, time.Second, nil),
		counter:  counter,
		session:  session,
		photo:    "/photos/a.jpg",
	}
}
