package api

import "github.com/example/barachat/domain/chat"

// RegisterRequest is the API request to create an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// RegisterResponse is the API response for a successful registration.
type RegisterResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// LoginRequest is the API request to log in.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token. Absence of the token key signals
// failure to clients that only check for it.
type LoginResponse struct {
	Token string `json:"token,omitempty"`
}

// UploadResponse is the API response for a stored upload.
type UploadResponse struct {
	Success  bool   `json:"success"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

// UserInfoResponse identifies the bearer of a valid token.
type UserInfoResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// HistoryResponse is the API response for stored room history, in
// chronological order.
type HistoryResponse struct {
	Room     string          `json:"room"`
	Messages []chat.Envelope `json:"messages"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}
