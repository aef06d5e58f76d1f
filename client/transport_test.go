package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/barachat/domain/chat"
)

// chatTestServer is a minimal in-process server: login, upload, and a /ws
// endpoint that stamps timestamps and fans frames out per room.
type chatTestServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string][]*websocket.Conn
}

func newChatTestServer(t *testing.T) (*chatTestServer, *httptest.Server) {
	t.Helper()
	cts := &chatTestServer{t: t, rooms: make(map[string][]*websocket.Conn)}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", cts.handleLogin)
	mux.HandleFunc("/api/upload", cts.handleUpload)
	mux.HandleFunc("/ws", cts.handleWS)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return cts, srv
}

func (s *chatTestServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	w.Header().Set("Content-Type", "application/json")
	if req.Username == "alice" && req.Password == "password123" {
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
		return
	}
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{})
}

func (s *chatTestServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Authentication required"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil || r.FormValue("room") == "" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Missing file or room"})
		return
	}
	file.Close()
	_ = json.NewEncoder(w).Encode(UploadResult{
		Success:  true,
		FileURL:  "/api/download/stamped_" + header.Filename,
		FileName: header.Filename,
		FileSize: header.Size,
	})
}

func (s *chatTestServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	room := r.URL.Query().Get("room")
	if room == "" {
		room = chat.DefaultRoom
	}

	s.mu.Lock()
	s.rooms[room] = append(s.rooms[room], conn)
	s.mu.Unlock()

	go func() {
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env chat.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			env.Room = room
			env.Timestamp = chat.Now()
			payload, _ := json.Marshal(env)

			s.mu.Lock()
			peers := append([]*websocket.Conn(nil), s.rooms[room]...)
			s.mu.Unlock()
			for _, peer := range peers {
				_ = peer.WriteMessage(websocket.TextMessage, payload)
			}
		}
	}()
}

// push writes an envelope to every connection in a room, bypassing any
// sender.
func (s *chatTestServer) push(room string, env chat.Envelope) {
	payload, _ := json.Marshal(env)
	s.mu.Lock()
	peers := append([]*websocket.Conn(nil), s.rooms[room]...)
	s.mu.Unlock()
	for _, peer := range peers {
		_ = peer.WriteMessage(websocket.TextMessage, payload)
	}
}

func collectEnvelopes(transport *Transport) <-chan chat.Envelope {
	ch := make(chan chat.Envelope, 16)
	transport.OnMessage(func(env chat.Envelope) {
		select {
		case ch <- env:
		default:
		}
	})
	return ch
}

func waitEnvelope(t *testing.T, ch <-chan chat.Envelope) chat.Envelope {
	t.Helper()
	select {
	case env := <-ch:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an envelope")
		return chat.Envelope{}
	}
}

func TestTransportLogin(t *testing.T) {
	_, srv := newChatTestServer(t)
	transport := NewTransport(srv.URL, &mockLogger{})

	token, err := transport.Login(context.Background(), "alice", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" || transport.Token() != token {
		t.Errorf("token = %q, stored = %q", token, transport.Token())
	}
}

func TestTransportLoginFailure(t *testing.T) {
	_, srv := newChatTestServer(t)
	transport := NewTransport(srv.URL, &mockLogger{})

	if _, err := transport.Login(context.Background(), "alice", "wrong"); !errors.Is(err, ErrLoginFailed) {
		t.Errorf("Login(bad credentials) error = %v, want ErrLoginFailed", err)
	}
	if transport.Token() != "" {
		t.Errorf("token stored after failed login: %q", transport.Token())
	}
}

func TestTransportSendWithoutStream(t *testing.T) {
	transport := NewTransport("http://127.0.0.1:0", &mockLogger{})
	if transport.Send("general", "alice", "hi", chat.KindText) {
		t.Error("Send() = true with no open stream")
	}
}

func TestTransportBroadcastScenario(t *testing.T) {
	_, srv := newChatTestServer(t)

	sender := NewTransport(srv.URL, &mockLogger{})
	receiver := NewTransport(srv.URL, &mockLogger{})
	t.Cleanup(func() {
		_ = sender.Close()
		_ = receiver.Close()
	})
	received := collectEnvelopes(receiver)

	ctx := context.Background()
	if err := sender.OpenStream(ctx, "general"); err != nil {
		t.Fatalf("sender OpenStream() error = %v", err)
	}
	if err := receiver.OpenStream(ctx, "general"); err != nil {
		t.Fatalf("receiver OpenStream() error = %v", err)
	}

	before := chat.Now()
	if !sender.Send("general", "alice", "hi", chat.KindText) {
		t.Fatal("Send() = false")
	}

	env := waitEnvelope(t, received)
	if env.Room != "general" || env.User != "alice" || env.Text != "hi" {
		t.Errorf("received envelope = %+v", env)
	}
	if env.Timestamp < before {
		t.Errorf("server timestamp %v predates the send at %v", env.Timestamp, before)
	}
}

func TestTransportCallbackPanicDoesNotStopListenLoop(t *testing.T) {
	cts, srv := newChatTestServer(t)

	transport := NewTransport(srv.URL, &mockLogger{})
	t.Cleanup(func() { _ = transport.Close() })

	transport.OnMessage(func(chat.Envelope) { panic("boom") })
	received := collectEnvelopes(transport)

	if err := transport.OpenStream(context.Background(), "general"); err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	cts.push("general", chat.Envelope{Kind: chat.KindText, Room: "general", User: "bob", Text: "one"})
	cts.push("general", chat.Envelope{Kind: chat.KindText, Room: "general", User: "bob", Text: "two"})

	first := waitEnvelope(t, received)
	second := waitEnvelope(t, received)
	if first.Text != "one" || second.Text != "two" {
		t.Errorf("received %q then %q, want %q then %q", first.Text, second.Text, "one", "two")
	}
}

func TestTransportUpload(t *testing.T) {
	_, srv := newChatTestServer(t)
	transport := NewTransport(srv.URL, &mockLogger{})
	ctx := context.Background()

	// Uploading before login fails locally, without a request.
	if _, err := transport.Upload(ctx, "notes.txt", []byte("hello"), "general"); !errors.Is(err, ErrNoToken) {
		t.Errorf("Upload(no token) error = %v, want ErrNoToken", err)
	}

	if _, err := transport.Login(ctx, "alice", "password123"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	result, err := transport.Upload(ctx, "notes.txt", []byte("hello"), "general")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !result.Success || result.FileName != "notes.txt" {
		t.Errorf("Upload() result = %+v", result)
	}
	if !strings.HasPrefix(result.FileURL, "/api/download/") {
		t.Errorf("FileURL = %q, want a download reference", result.FileURL)
	}
	if result.FileSize != int64(len("hello")) {
		t.Errorf("FileSize = %d, want %d", result.FileSize, len("hello"))
	}
}

func TestTransportOpenStreamReplacesPrevious(t *testing.T) {
	_, srv := newChatTestServer(t)
	transport := NewTransport(srv.URL, &mockLogger{})
	t.Cleanup(func() { _ = transport.Close() })

	ctx := context.Background()
	if err := transport.OpenStream(ctx, "general"); err != nil {
		t.Fatalf("first OpenStream() error = %v", err)
	}
	if err := transport.OpenStream(ctx, "random"); err != nil {
		t.Fatalf("second OpenStream() error = %v", err)
	}

	if !transport.Send("random", "alice", "hi", chat.KindText) {
		t.Error("Send() = false on the replacement stream")
	}
}
