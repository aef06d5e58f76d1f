package client

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/barachat/domain/chat"
)

// Streamer is the slice of Transport the session depends on.
type Streamer interface {
	OnMessage(cb MessageCallback)
	OpenStream(ctx context.Context, room string) error
	Send(room, user, text, kind string) bool
	SendEnvelope(env chat.Envelope) bool
	Upload(ctx context.Context, filename string, content []byte, room string) (*UploadResult, error)
	Close() error
}

// EventKind classifies what the UI should do with a session event.
type EventKind int

const (
	// EventMessage is a chat message to append to the transcript.
	EventMessage EventKind = iota
	// EventSystem is an inline status line (upload progress, errors).
	EventSystem
)

// Event is one item for the UI to drain from Events.
type Event struct {
	Kind     EventKind
	Envelope chat.Envelope
}

// Session bridges the transport's background goroutines to a single-threaded
// UI loop. All network results arrive on the Events channel; the UI never
// shares mutable state with the listen loop.
type Session struct {
	transport Streamer
	cipher    Cipher
	username  string
	logger    types.Logger

	mu          sync.Mutex
	currentRoom string
	histories   map[string][]chat.Envelope
	closed      bool

	events chan Event
}

// NewSession creates a session for username. The cipher may be nil, which
// means NoopCipher.
func NewSession(transport Streamer, username string, cipher Cipher, logger types.Logger) *Session {
	if cipher == nil {
		cipher = NoopCipher{}
	}
	s := &Session{
		transport:   transport,
		cipher:      cipher,
		username:    username,
		logger:      logger,
		currentRoom: chat.DefaultRoom,
		histories:   make(map[string][]chat.Envelope),
		events:      make(chan Event, 256),
	}
	transport.OnMessage(s.onInbound)
	return s
}

// Events is the queue the UI drains each tick. Posting never blocks the
// network goroutine; if the UI falls behind, events are dropped and logged.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Username returns the local user.
func (s *Session) Username() string {
	return s.username
}

// CurrentRoom returns the room the session is showing.
func (s *Session) CurrentRoom() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentRoom
}

// Join opens the stream for room and makes it current.
func (s *Session) Join(ctx context.Context, room string) error {
	if err := s.transport.OpenStream(ctx, room); err != nil {
		return err
	}
	s.mu.Lock()
	s.currentRoom = room
	s.mu.Unlock()
	return nil
}

// SwitchRoom changes the current room: the old room's transcript stays
// buffered, the stream is torn down and reopened for the new room, and the
// new room's buffered history is returned for the UI to replay. Unseen
// rooms return an empty slice.
func (s *Session) SwitchRoom(ctx context.Context, newRoom string) ([]chat.Envelope, error) {
	if err := s.transport.OpenStream(ctx, newRoom); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.currentRoom = newRoom
	replay := make([]chat.Envelope, len(s.histories[newRoom]))
	copy(replay, s.histories[newRoom])
	s.mu.Unlock()
	return replay, nil
}

// History returns a copy of a room's buffered transcript.
func (s *Session) History(room string) []chat.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Envelope, len(s.histories[room]))
	copy(out, s.histories[room])
	return out
}

// onInbound runs on the transport's listen goroutine for every envelope.
func (s *Session) onInbound(env chat.Envelope) {
	// The local copy was already rendered optimistically at send time;
	// dropping the echo keeps each own message rendered exactly once.
	if env.User == s.username {
		return
	}

	if env.Kind == chat.KindFile && env.FileURL == "" {
		if name, url, ok := chat.DecodeLegacyFileText(env.Text); ok {
			env.FileName = name
			env.FileURL = url
			env.IsImage = isImageName(name)
		}
	}

	if text, err := s.cipher.Decrypt(env.Text); err == nil {
		env.Text = text
	}

	s.append(env.Room, env)
	s.post(Event{Kind: EventMessage, Envelope: env})
}

// SendText renders the message locally right away and ships it in the
// background. A failed send is logged, not retried; the optimistic copy is
// not retracted.
func (s *Session) SendText(text string) {
	s.mu.Lock()
	room := s.currentRoom
	s.mu.Unlock()

	local := chat.Envelope{
		Kind:      chat.KindText,
		Room:      room,
		User:      s.username,
		Text:      text,
		Timestamp: chat.Now(),
	}
	s.append(room, local)
	s.post(Event{Kind: EventMessage, Envelope: local})

	wire := text
	if enc, err := s.cipher.Encrypt(text); err == nil {
		wire = enc
	}
	go func() {
		if !s.transport.Send(room, s.username, wire, chat.KindText) {
			s.logger.Warn("Message send failed", "room", room)
		}
	}()
}

// SendFile renders a placeholder, uploads in the background, then ships a
// file envelope referencing the stored URL. Upload failures surface as a
// system line in the transcript, never silently.
func (s *Session) SendFile(ctx context.Context, filename string, content []byte) {
	s.mu.Lock()
	room := s.currentRoom
	s.mu.Unlock()

	s.post(Event{Kind: EventSystem, Envelope: chat.Envelope{
		Kind:      chat.KindSystem,
		Room:      room,
		User:      s.username,
		Text:      "Uploading " + filepath.Base(filename) + "...",
		Timestamp: chat.Now(),
	}})

	go func() {
		result, err := s.transport.Upload(ctx, filename, content, room)
		if err != nil {
			s.logger.WithError(err).Warn("Upload failed", "file", filename)
			s.post(Event{Kind: EventSystem, Envelope: chat.Envelope{
				Kind:      chat.KindSystem,
				Room:      room,
				User:      s.username,
				Text:      "Upload failed: " + err.Error(),
				Timestamp: chat.Now(),
			}})
			return
		}

		env := chat.Envelope{
			Kind:     chat.KindFile,
			Room:     room,
			User:     s.username,
			Text:     chat.EncodeLegacyFileText(result.FileName, result.FileURL),
			FileURL:  result.FileURL,
			FileName: result.FileName,
			IsImage:  isImageName(result.FileName),
		}
		s.append(room, env)
		s.post(Event{Kind: EventMessage, Envelope: env})
		if !s.transport.SendEnvelope(env) {
			s.logger.Warn("File message send failed", "room", room)
		}
	}()
}

// Close shuts the transport down. The Events channel stays open so a UI
// mid-drain never reads from a closed channel; it simply goes quiet.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.transport.Close()
}

func (s *Session) append(room string, env chat.Envelope) {
	s.mu.Lock()
	s.histories[room] = append(s.histories[room], env)
	s.mu.Unlock()
}

func (s *Session) post(evt Event) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.events <- evt:
	default:
		s.logger.Warn("UI event queue full, dropping event")
	}
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp":
		return true
	}
	return false
}
