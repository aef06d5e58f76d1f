package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/barachat/domain/chat"
)

// AuthPort is the interface other modules use to reach auth functionality.
type AuthPort interface {
	Register(ctx context.Context, username, password, email string) (*RegisterResponse, error)
	Login(ctx context.Context, username, password string) (string, error)
	Verify(ctx context.Context, token string) (*chat.Claims, error)
	GetUser(ctx context.Context, userID string) (*GetUserResponse, error)
}

// Adapter implements AuthPort using the service container.
type Adapter struct {
	container mono.ServiceContainer
}

// NewAdapter creates a new auth Adapter.
func NewAdapter(container mono.ServiceContainer) *Adapter {
	return &Adapter{container: container}
}

// Register creates a new user account.
func (a *Adapter) Register(ctx context.Context, username, password, email string) (*RegisterResponse, error) {
	req := RegisterRequest{Username: username, Password: password, Email: email}
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceRegister, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("register request failed: %w", err)
	}
	return &resp, nil
}

// Login authenticates and returns a bearer token. A credential mismatch
// returns ErrInvalidCredentials; transport failures are wrapped.
func (a *Adapter) Login(ctx context.Context, username, password string) (string, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceLogin, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	if resp.Token == "" {
		return "", ErrInvalidCredentials
	}
	return resp.Token, nil
}

// Verify validates a bearer token and returns the identity it carries.
func (a *Adapter) Verify(ctx context.Context, token string) (*chat.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceValidateToken, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("validate-token request failed: %w", err)
	}
	if !resp.Valid {
		return nil, errors.New("token validation failed: " + resp.Error)
	}
	return &chat.Claims{UserID: resp.UserID, Username: resp.Username}, nil
}

// GetUser retrieves a user by ID.
func (a *Adapter) GetUser(ctx context.Context, userID string) (*GetUserResponse, error) {
	req := GetUserRequest{UserID: userID}
	var resp GetUserResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceGetUser, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("get-user request failed: %w", err)
	}
	return &resp, nil
}
