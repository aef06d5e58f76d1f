package api

import (
	"encoding/json"
	"sync"
	"unicode/utf8"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/barachat/domain/chat"
	"github.com/example/barachat/events"
	"github.com/example/barachat/modules/broadcast"
)

// inboundFrame is what clients send on the stream. The room comes from the
// connection's query parameter, never from the frame; a client-supplied
// timestamp is discarded.
type inboundFrame struct {
	Kind     string `json:"type"`
	User     string `json:"user"`
	Text     string `json:"text"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	IsImage  bool   `json:"is_image"`
}

// errorFrame is sent to the offending sender only.
type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// wsWriter is the write side of one websocket connection.
type wsWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// streamConn serializes writes to one websocket connection. The hub's
// fan-out goroutines and the connection's read loop both write to the
// socket, and the underlying websocket forbids concurrent writers.
type streamConn struct {
	mu sync.Mutex
	ws wsWriter
}

var _ broadcast.Conn = (*streamConn)(nil)

func (c *streamConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(messageType, data)
}

func (c *streamConn) Close() error {
	return c.ws.Close()
}

// handleChatStream handles GET /ws?room=<name>. The room is fixed for the
// lifetime of the connection; switching rooms means reconnecting.
func (m *Module) handleChatStream(c *websocket.Conn) {
	room := c.Query("room", chat.DefaultRoom)
	if room == "" || len(room) > chat.MaxRoomNameLength {
		room = chat.DefaultRoom
	}

	conn := &streamConn{ws: c}
	m.registry.Subscribe(conn, room)
	m.logger.Info("Chat stream opened", "room", room)

	defer func() {
		m.registry.Unsubscribe(conn, room)
		m.logger.Info("Chat stream closed", "room", room)
	}()

	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				m.logger.WithError(err).Warn("Chat stream read error", "room", room)
			}
			return
		}
		if mt != websocket.TextMessage {
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			m.sendStreamError(conn, "Invalid JSON")
			continue
		}

		env := m.buildEnvelope(room, frame)
		m.hub.Broadcast(room, env, nil)
		m.publishBroadcast(env)
	}
}

// buildEnvelope normalizes one inbound frame into the outbound wire form.
func (m *Module) buildEnvelope(room string, frame inboundFrame) chat.Envelope {
	user := frame.User
	if user == "" {
		user = "unknown"
	}
	if len(user) > chat.MaxUsernameLength {
		cut := chat.MaxUsernameLength
		// Never split a multi-byte rune at the cut point.
		for cut > 0 && !utf8.RuneStart(user[cut]) {
			cut--
		}
		user = user[:cut]
	}
	kind := frame.Kind
	if kind == "" {
		kind = chat.KindText
	}

	env := chat.Envelope{
		Kind:      kind,
		Room:      room,
		User:      user,
		Text:      frame.Text,
		Timestamp: chat.Now(),
		FileURL:   frame.FileURL,
		FileName:  frame.FileName,
		IsImage:   frame.IsImage,
	}

	if env.Kind == chat.KindFile {
		// Fill whichever file representation the sender omitted so both
		// structured-field and legacy-text peers can read the message.
		if env.FileURL == "" {
			if name, url, ok := chat.DecodeLegacyFileText(env.Text); ok {
				env.FileName = name
				env.FileURL = url
			}
		} else if env.Text == "" {
			env.Text = chat.EncodeLegacyFileText(env.FileName, env.FileURL)
		}
	}
	return env
}

// publishBroadcast mirrors a fanned-out envelope onto the event bus for the
// history module. Failures are logged, never surfaced to the stream.
func (m *Module) publishBroadcast(env chat.Envelope) {
	if m.eventBus == nil {
		return
	}
	if env.Kind == chat.KindHeartbeat || env.Kind == chat.KindSignaling {
		return
	}
	event := events.MessageBroadcastEvent{
		MessageID: uuid.New().String(),
		Envelope:  env,
	}
	if err := events.MessageBroadcastV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.WithError(err).Warn("Failed to publish broadcast event", "room", env.Room)
	}
}

func (m *Module) sendStreamError(conn *streamConn, message string) {
	payload, err := json.Marshal(errorFrame{Type: chat.KindError, Message: message})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}
