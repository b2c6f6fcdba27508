package client

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/FacuPal/arq-microservicios/internal/apperr"
)

// Session is the validated caller identity resolved from the auth service.
type Session struct {
	UserID      string   `json:"id"`
	Login       string   `json:"login"`
	Permissions []string `json:"permissions"`
}

// IsAdmin reports whether the session carries the admin permission.
func (s *Session) IsAdmin() bool {
	for _, p := range s.Permissions {
		if p == "admin" {
			return true
		}
	}
	return false
}

// SessionValidator resolves a bearer token into a session.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*Session, error)
}

// AuthServiceClient validates tokens against the auth service.
type AuthServiceClient struct {
	baseURL string
	http    *http.Client
}

func NewAuthServiceClient(baseURL string) *AuthServiceClient {
	return &AuthServiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: clientTimeout},
	}
}

func (c *AuthServiceClient) Validate(ctx context.Context, token string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/users/current", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the auth service", err)
	}
	req.Header.Set("Authorization", bearer(token))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the auth service", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized {
		return nil, apperr.Unauthorized("unauthorized")
	}
	if res.StatusCode != http.StatusOK {
		return nil, apperr.Internalf("there was an error querying the auth service: status %d", res.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(res.Body).Decode(&session); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "there was an error querying the auth service", err)
	}
	return &session, nil
}
