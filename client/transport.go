package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gorilla/websocket"

	"github.com/example/barachat/domain/chat"
)

// Transport errors.
var (
	ErrLoginFailed = errors.New("login failed")
	ErrNoToken     = errors.New("not authenticated")
)

// MessageCallback receives every parsed inbound envelope.
type MessageCallback func(chat.Envelope)

// UploadResult is the server's answer to a stored upload.
type UploadResult struct {
	Success  bool   `json:"success"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// Transport owns the single outbound session: REST calls and at most one
// persistent chat stream. Opening a stream while one is live tears the old
// one down first.
type Transport struct {
	baseURL    string
	wsURL      string
	httpClient *http.Client
	logger     types.Logger

	mu        sync.Mutex
	token     string
	stream    *websocket.Conn
	writeMu   sync.Mutex
	listening sync.WaitGroup

	cbMu      sync.RWMutex
	callbacks []MessageCallback
}

// NewTransport creates a Transport for a server base URL such as
// "http://127.0.0.1:8765".
func NewTransport(baseURL string, logger types.Logger) *Transport {
	wsURL := strings.Replace(baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	return &Transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		wsURL:      strings.TrimRight(wsURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// OnMessage registers a callback invoked for every inbound stream envelope.
// Callbacks run on the listen goroutine; a panicking callback is recovered
// and logged, it never stops the loop.
func (t *Transport) OnMessage(cb MessageCallback) {
	t.cbMu.Lock()
	t.callbacks = append(t.callbacks, cb)
	t.cbMu.Unlock()
}

// Token returns the stored bearer token, empty before a successful login.
func (t *Transport) Token() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token
}

// Register creates an account.
func (t *Transport) Register(ctx context.Context, username, password, email string) error {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
		"email":    email,
	})
	resp, err := t.postJSON(ctx, "/api/register", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registration rejected: %s", readAPIError(resp.Body))
	}
	return nil
}

// Login authenticates and stores the bearer token for later calls. Returns
// ErrLoginFailed on bad credentials and a wrapped error on network failure;
// either way no token is stored.
func (t *Transport) Login(ctx context.Context, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	resp, err := t.postJSON(ctx, "/api/login", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil || result.Token == "" {
		return "", ErrLoginFailed
	}

	t.mu.Lock()
	t.token = result.Token
	t.mu.Unlock()
	return result.Token, nil
}

// UserInfo returns the identity behind the stored token.
func (t *Transport) UserInfo(ctx context.Context) (*chat.Claims, error) {
	req, err := t.newAuthedRequest(ctx, http.MethodGet, "/api/user", nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info rejected: %s", readAPIError(resp.Body))
	}
	var claims chat.Claims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &claims, nil
}

// OpenStream opens the persistent chat stream for room and starts the
// background listen loop. Any previously open stream is closed first; its
// listen loop exits before the new one starts.
func (t *Transport) OpenStream(ctx context.Context, room string) error {
	t.closeStream()
	t.listening.Wait()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, t.wsURL+"/ws?room="+room, nil)
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}

	t.mu.Lock()
	t.stream = conn
	t.mu.Unlock()

	t.listening.Add(1)
	go t.listen(conn)
	return nil
}

// listen reads frames until the stream closes, invoking every registered
// callback per parsed envelope. It exits silently on closure; reconnecting
// is the caller's job.
func (t *Transport) listen(conn *websocket.Conn) {
	defer t.listening.Done()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env chat.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.logger.WithError(err).Warn("Dropping unparseable frame")
			continue
		}
		t.dispatch(env)
	}
}

func (t *Transport) dispatch(env chat.Envelope) {
	t.cbMu.RLock()
	callbacks := make([]MessageCallback, len(t.callbacks))
	copy(callbacks, t.callbacks)
	t.cbMu.RUnlock()

	for _, cb := range callbacks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("Message callback panicked", "panic", r)
				}
			}()
			cb(env)
		}()
	}
}

// Send writes one envelope on the open stream. Returns false when no stream
// is open or the write fails; it never panics or blocks on a dead peer.
func (t *Transport) Send(room, user, text, kind string) bool {
	t.mu.Lock()
	conn := t.stream
	t.mu.Unlock()
	if conn == nil {
		return false
	}

	payload, err := json.Marshal(chat.Envelope{
		Kind: kind,
		Room: room,
		User: user,
		Text: text,
	})
	if err != nil {
		return false
	}

	t.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.WithError(err).Warn("Stream write failed", "room", room)
		return false
	}
	return true
}

// SendEnvelope writes a fully formed envelope, used for file messages that
// carry structured fields beyond user and text.
func (t *Transport) SendEnvelope(env chat.Envelope) bool {
	t.mu.Lock()
	conn := t.stream
	t.mu.Unlock()
	if conn == nil {
		return false
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return false
	}

	t.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	t.writeMu.Unlock()
	return err == nil
}

// Upload performs the authenticated multipart upload. Unlike Send, failures
// here surface to the caller, who decides how to present them.
func (t *Transport) Upload(ctx context.Context, filename string, content []byte, room string) (*UploadResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if err := w.WriteField("room", room); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload body: %w", err)
	}

	req, err := t.newAuthedRequest(ctx, http.MethodPost, "/api/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload rejected (%d): %s", resp.StatusCode, readAPIError(resp.Body))
	}
	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return &result, nil
}

// Download fetches a stored file by its reference URL (absolute or the
// server-relative form returned by Upload).
func (t *Transport) Download(ctx context.Context, fileURL string) ([]byte, error) {
	url := fileURL
	if strings.HasPrefix(url, "/") {
		url = t.baseURL + url
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download rejected (%d): %s", resp.StatusCode, readAPIError(resp.Body))
	}
	return io.ReadAll(resp.Body)
}

// Close tears down the stream and waits briefly for the listen loop to
// exit. Safe to call on an already closed transport.
func (t *Transport) Close() error {
	t.closeStream()

	done := make(chan struct{})
	go func() {
		t.listening.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.logger.Warn("Listen loop did not exit before timeout")
	}

	t.httpClient.CloseIdleConnections()
	return nil
}

func (t *Transport) closeStream() {
	t.mu.Lock()
	conn := t.stream
	t.stream = nil
	t.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func (t *Transport) postJSON(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (t *Transport) newAuthedRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	token := t.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func readAPIError(r io.Reader) string {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return "unknown error"
}
