package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"photo-counter/internal/container"
	"photo-counter/internal/domain/entity"
	"photo-counter/internal/domain/port"
	"photo-counter/internal/infrastructure/storage"
)

const (
	testChat = int64(100)
	testUser = int64(7)
)

type memPhotos struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memPhotos) Save(ctx context.Context, data []byte, ext string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := fmt.Sprintf("/photos/%d%s", len(m.data), ext)
	m.data[path] = data
	return path, nil
}

func (m *memPhotos) Load(ctx context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[path], nil
}

type stubCounter struct {
	count    int
	needsKey bool
}

func (s stubCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	return s.count, nil
}

func (s stubCounter) RequiresCredential() bool { return s.needsKey }

type blockingCounter struct {
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (b *blockingCounter) CountObjects(ctx context.Context, req port.CountRequest) (int, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	select {
	case <-b.release:
		return 4, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (b *blockingCounter) RequiresCredential() bool { return false }

func (b *blockingCounter) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

type recorder struct {
	mu      sync.Mutex
	replies []Reply
}

func (r *recorder) respond(chatID int64, reply Reply) {
	r.mu.Lock()
	r.replies = append(r.replies, reply)
	r.mu.Unlock()
}

func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.replies))
	for i, reply := range r.replies {
		out[i] = reply.Text
	}
	return out
}

func (r *recorder) last() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return Reply{}
	}
	return r.replies[len(r.replies)-1]
}

type botFixture struct {
	c   *container.Container
	h   *Handler
	rec *recorder
	ctx context.Context
}

func newBotFixture(t *testing.T, counter port.ObjectCounter) *botFixture {
	t.Helper()
	c := container.New(storage.NewMemoryStore(), &memPhotos{data: map[string][]byte{}}, counter, time.Second, nil)
	rec := &recorder{}
	return &botFixture{c: c, h: NewHandler(c, rec.respond), rec: rec, ctx: context.Background()}
}

func (f *botFixture) cmd(command, args string) Reply {
	f.h.HandleCommand(f.ctx, testChat, testUser, command, args)
	f.h.Wait()
	return f.rec.last()
}

func (f *botFixture) photo() Reply {
	f.h.HandlePhoto(f.ctx, testChat, testUser, []byte("jpeg"), ".jpg")
	return f.rec.last()
}

func (f *botFixture) chatState(t *testing.T) entity.ChatState {
	chat, err := f.c.Chats.Get(f.ctx, testChat, testUser)
	require.NoError(t, err)
	return chat.State
}

func TestHandler_ManualFlow(t *testing.T) {
	f := newBotFixture(t, stubCounter{})

	r := f.cmd("new", "Bolts;bolt")
	require.Contains(t, r.Text, "Bolts")

	f.photo()
	require.Equal(t, entity.StateReviewing, f.chatState(t))

	f.cmd("tap", "10 20")
	f.cmd("tap", "30 40")
	f.cmd("tap", "50 60")
	r = f.cmd("remove", "1")
	require.Contains(t, r.Text, "Счёт: 2")

	r = f.cmd("status", "")
	require.Contains(t, r.Text, "Отметок: 2, правок: 4")

	r = f.cmd("done", "")
	require.Contains(t, r.Text, "Сохранено: 2")
	require.Equal(t, entity.StateMainMenu, f.chatState(t))

	sessions := f.c.SessionService.ListSessions(f.ctx)
	require.Len(t, sessions, 1)
	require.Equal(t, 2, sessions[0].TotalCount)
	require.Equal(t, 4, sessions[0].Images[0].Corrections)

	require.Equal(t, msgNoReview, f.cmd("status", "").Text)
}

func TestHandler_TypedCountAndValidation(t *testing.T) {
	f := newBotFixture(t, stubCounter{})
	f.cmd("new", "Shelf")
	f.photo()

	require.Equal(t, "⚠️ please enter a count", f.cmd("done", "").Text)

	f.h.HandleText(f.ctx, testChat, testUser, "7")
	require.Equal(t, "✏️ Счёт: 7", f.rec.last().Text)

	r := f.cmd("done", "")
	require.Contains(t, r.Text, "Сохранено: 7")
}

func TestHandler_AutomaticNeedsKey(t *testing.T) {
	f := newBotFixture(t, stubCounter{count: 5, needsKey: true})
	f.cmd("new", "Cans;can")
	f.photo()

	require.Equal(t, msgNeedAPIKey, f.cmd("auto", "").Text)
	require.Equal(t, entity.StateReviewing, f.chatState(t))

	require.Equal(t, msgAPIKeySaved, f.cmd("apikey", "sk-test").Text)

	r := f.cmd("auto", "")
	require.Contains(t, r.Text, "Найдено объектов: 5")

	// ввод числа в автоматическом режиме недоступен
	require.Equal(t, msgWrongMode, f.cmd("count", "9").Text)

	r = f.cmd("done", "")
	require.Contains(t, r.Text, "Сохранено: 5")
}

func TestHandler_NoObjects(t *testing.T) {
	f := newBotFixture(t, stubCounter{count: 0})
	f.cmd("new", "Empty")
	f.photo()

	require.Equal(t, msgNoObjects, f.cmd("auto", "").Text)
	require.Equal(t, "⚠️ no objects to commit", f.cmd("done", "").Text)
	require.Equal(t, msgManual, f.cmd("manual", "").Text)
}

func TestHandler_RepeatedAutoReportsBusyImmediately(t *testing.T) {
	counter := &blockingCounter{release: make(chan struct{})}
	f := newBotFixture(t, counter)
	f.cmd("new", "Nails;nail")
	f.photo()
	before := len(f.rec.texts())

	f.h.HandleCommand(f.ctx, testChat, testUser, "auto", "")
	f.h.HandleCommand(f.ctx, testChat, testUser, "auto", "")
	require.Equal(t, []string{msgCounting, msgBusy}, f.rec.texts()[before:])

	close(counter.release)
	f.h.Wait()

	replies := f.rec.texts()[before:]
	require.Len(t, replies, 3)
	require.Contains(t, replies[2], "Найдено объектов: 4")
	require.Equal(t, 1, counter.Calls())
	require.Equal(t, entity.StateReviewing, f.chatState(t))
}

func TestHandler_PhotoNeedsSession(t *testing.T) {
	f := newBotFixture(t, stubCounter{})
	require.Equal(t, msgNoSession, f.photo().Text)

	f.cmd("new", "A")
	f.photo()
	require.Equal(t, msgReviewInProgress, f.photo().Text)

	require.Equal(t, msgCancelled, f.cmd("cancel", "").Text)
	require.Equal(t, entity.StateMainMenu, f.chatState(t))
}

func TestHandler_SessionsUseDelete(t *testing.T) {
	f := newBotFixture(t, stubCounter{})
	require.Equal(t, msgNoSessions, f.cmd("sessions", "").Text)

	f.cmd("new", "First")
	f.cmd("new", "Second")

	r := f.cmd("sessions", "")
	lines := strings.Split(r.Text, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[1], "1. Second")
	require.Contains(t, lines[2], "2. First")

	require.Contains(t, f.cmd("use", "2").Text, "First")
	chat, _ := f.c.Chats.Get(f.ctx, testChat, testUser)
	first := f.c.SessionService.ListSessions(f.ctx)[1]
	require.Equal(t, first.ID, chat.ActiveSessionID)

	require.Contains(t, f.cmd("delete", "2").Text, "First")
	chat, _ = f.c.Chats.Get(f.ctx, testChat, testUser)
	require.Empty(t, chat.ActiveSessionID)
	require.Len(t, f.c.SessionService.ListSessions(f.ctx), 1)

	require.Contains(t, f.cmd("use", "5").Text, "not found")
	require.Equal(t, "Использование: /use <номер>", f.cmd("use", "x").Text)
}

func TestHandler_Export(t *testing.T) {
	f := newBotFixture(t, stubCounter{})
	require.Equal(t, msgNoSession, f.cmd("export", "").Text)

	f.cmd("new", "Boxes")
	f.photo()
	f.cmd("count", "4")
	f.cmd("done", "")

	r := f.cmd("export", "")
	require.NotNil(t, r.File)
	require.True(t, strings.HasPrefix(string(r.File), "Image ID,Count,Timestamp,Corrections\n"))
	require.True(t, strings.HasSuffix(string(r.File), "Total Count:,4"))
	require.True(t, strings.HasSuffix(r.FileName, ".csv"))
}

func TestHandler_UnknownCommand(t *testing.T) {
	f := newBotFixture(t, stubCounter{})
	require.Equal(t, msgUnknownCommand, f.cmd("frobnicate", "").Text)
	f.h.HandleText(f.ctx, testChat, testUser, "hello")
	require.Equal(t, msgSendPhoto, f.rec.last().Text)
}
