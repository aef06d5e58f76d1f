package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/barachat/domain/chat"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// fakeStreamer satisfies Streamer and lets tests inject inbound envelopes.
type fakeStreamer struct {
	mu        sync.Mutex
	callbacks []MessageCallback
	opened    []string
	sent      []chat.Envelope
	openErr   error
	sendOK    bool
	uploadRes *UploadResult
	uploadErr error
	sendCh    chan struct{}
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{sendOK: true, sendCh: make(chan struct{}, 16)}
}

func (f *fakeStreamer) OnMessage(cb MessageCallback) {
	f.mu.Lock()
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

func (f *fakeStreamer) OpenStream(_ context.Context, room string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.opened = append(f.opened, room)
	return nil
}

func (f *fakeStreamer) Send(room, user, text, kind string) bool {
	f.mu.Lock()
	f.sent = append(f.sent, chat.Envelope{Kind: kind, Room: room, User: user, Text: text})
	ok := f.sendOK
	f.mu.Unlock()
	f.sendCh <- struct{}{}
	return ok
}

func (f *fakeStreamer) SendEnvelope(env chat.Envelope) bool {
	f.mu.Lock()
	f.sent = append(f.sent, env)
	ok := f.sendOK
	f.mu.Unlock()
	f.sendCh <- struct{}{}
	return ok
}

func (f *fakeStreamer) Upload(_ context.Context, filename string, _ []byte, _ string) (*UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if f.uploadRes != nil {
		return f.uploadRes, nil
	}
	return &UploadResult{Success: true, FileName: filename, FileURL: "/api/download/x_" + filename}, nil
}

func (f *fakeStreamer) Close() error { return nil }

// emit delivers an envelope as if it arrived on the stream.
func (f *fakeStreamer) emit(env chat.Envelope) {
	f.mu.Lock()
	callbacks := make([]MessageCallback, len(f.callbacks))
	copy(callbacks, f.callbacks)
	f.mu.Unlock()
	for _, cb := range callbacks {
		cb(env)
	}
}

func (f *fakeStreamer) waitForSend(t *testing.T) {
	t.Helper()
	select {
	case <-f.sendCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a send")
	}
}

func drainEvent(t *testing.T, s *Session) Event {
	t.Helper()
	select {
	case evt := <-s.Events():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a session event")
		return Event{}
	}
}

func assertNoEvent(t *testing.T, s *Session) {
	t.Helper()
	select {
	case evt := <-s.Events():
		t.Fatalf("unexpected event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionOptimisticSendRendersOnce(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})

	s.SendText("hello")

	evt := drainEvent(t, s)
	if evt.Kind != EventMessage || evt.Envelope.Text != "hello" || evt.Envelope.User != "alice" {
		t.Fatalf("optimistic event = %+v", evt)
	}
	transport.waitForSend(t)

	// The echo of our own message must not render again.
	transport.emit(chat.Envelope{Kind: chat.KindText, Room: chat.DefaultRoom, User: "alice", Text: "hello", Timestamp: chat.Now()})
	assertNoEvent(t, s)

	if got := len(s.History(chat.DefaultRoom)); got != 1 {
		t.Errorf("history has %d entries, want 1 (self-dedup)", got)
	}
}

func TestSessionSendFailureKeepsOptimisticCopy(t *testing.T) {
	transport := newFakeStreamer()
	transport.sendOK = false
	s := NewSession(transport, "alice", nil, &mockLogger{})

	s.SendText("hello")
	drainEvent(t, s)
	transport.waitForSend(t)

	if got := len(s.History(chat.DefaultRoom)); got != 1 {
		t.Errorf("history has %d entries after failed send, want 1", got)
	}
}

func TestSessionInboundFromPeer(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})

	transport.emit(chat.Envelope{Kind: chat.KindText, Room: chat.DefaultRoom, User: "bob", Text: "hi", Timestamp: chat.Now()})

	evt := drainEvent(t, s)
	if evt.Envelope.User != "bob" || evt.Envelope.Text != "hi" {
		t.Fatalf("inbound event = %+v", evt)
	}
	if got := len(s.History(chat.DefaultRoom)); got != 1 {
		t.Errorf("history has %d entries, want 1", got)
	}
}

func TestSessionDecodesLegacyFileMessages(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})

	transport.emit(chat.Envelope{
		Kind: chat.KindFile,
		Room: chat.DefaultRoom,
		User: "bob",
		Text: chat.EncodeLegacyFileText("photo.png", "/api/download/x_photo.png"),
	})

	evt := drainEvent(t, s)
	if evt.Envelope.FileName != "photo.png" {
		t.Errorf("FileName = %q, want photo.png", evt.Envelope.FileName)
	}
	if evt.Envelope.FileURL != "/api/download/x_photo.png" {
		t.Errorf("FileURL = %q", evt.Envelope.FileURL)
	}
	if !evt.Envelope.IsImage {
		t.Error("IsImage = false for a .png file")
	}
}

func TestSessionSwitchRoomReplaysBufferedHistory(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})
	ctx := context.Background()

	if err := s.Join(ctx, "general"); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	s.SendText("in general")
	drainEvent(t, s)
	transport.waitForSend(t)

	replay, err := s.SwitchRoom(ctx, "random")
	if err != nil {
		t.Fatalf("SwitchRoom() error = %v", err)
	}
	if len(replay) != 0 {
		t.Errorf("replay of unseen room has %d entries, want 0", len(replay))
	}
	if s.CurrentRoom() != "random" {
		t.Errorf("CurrentRoom() = %q, want random", s.CurrentRoom())
	}

	replay, err = s.SwitchRoom(ctx, "general")
	if err != nil {
		t.Fatalf("SwitchRoom() error = %v", err)
	}
	if len(replay) != 1 || replay[0].Text != "in general" {
		t.Errorf("replay of general = %+v, want the buffered message", replay)
	}

	// Every switch reopened the stream for the new room.
	transport.mu.Lock()
	opened := append([]string(nil), transport.opened...)
	transport.mu.Unlock()
	want := []string{"general", "random", "general"}
	if len(opened) != len(want) {
		t.Fatalf("opened rooms = %v, want %v", opened, want)
	}
	for i := range want {
		if opened[i] != want[i] {
			t.Fatalf("opened rooms = %v, want %v", opened, want)
		}
	}
}

func TestSessionSwitchRoomFailureKeepsCurrentRoom(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})

	transport.openErr = errors.New("server unreachable")
	if _, err := s.SwitchRoom(context.Background(), "random"); err == nil {
		t.Fatal("SwitchRoom() succeeded with a failing stream")
	}
	if s.CurrentRoom() != chat.DefaultRoom {
		t.Errorf("CurrentRoom() = %q after failed switch, want %q", s.CurrentRoom(), chat.DefaultRoom)
	}
}

func TestSessionSendFile(t *testing.T) {
	transport := newFakeStreamer()
	s := NewSession(transport, "alice", nil, &mockLogger{})

	s.SendFile(context.Background(), "photo.png", []byte("bytes"))

	placeholder := drainEvent(t, s)
	if placeholder.Kind != EventSystem {
		t.Fatalf("first event = %+v, want system placeholder", placeholder)
	}

	msg := drainEvent(t, s)
	if msg.Kind != EventMessage || msg.Envelope.Kind != chat.KindFile {
		t.Fatalf("second event = %+v, want file message", msg)
	}
	if msg.Envelope.FileURL == "" || !msg.Envelope.IsImage {
		t.Errorf("file envelope = %+v", msg.Envelope)
	}

	transport.waitForSend(t)
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sent) != 1 || transport.sent[0].Kind != chat.KindFile {
		t.Errorf("sent envelopes = %+v", transport.sent)
	}
}

func TestSessionSendFileUploadFailureSurfacesSystemMessage(t *testing.T) {
	transport := newFakeStreamer()
	transport.uploadErr = errors.New("server exploded")
	s := NewSession(transport, "alice", nil, &mockLogger{})

	s.SendFile(context.Background(), "photo.png", []byte("bytes"))

	drainEvent(t, s) // placeholder
	failure := drainEvent(t, s)
	if failure.Kind != EventSystem {
		t.Fatalf("failure event = %+v, want system message", failure)
	}
	if failure.Envelope.Kind != chat.KindSystem {
		t.Errorf("failure envelope kind = %q", failure.Envelope.Kind)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sent) != 0 {
		t.Errorf("file envelope sent despite failed upload: %+v", transport.sent)
	}
}
