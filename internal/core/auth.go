package core

import (
	"encoding/base64"
	"net/url"
)

// AuthType represents the type of authentication.
type AuthType string

const (
	AuthTypeNone   AuthType = "none"
	AuthTypeBasic  AuthType = "basic"
	AuthTypeBearer AuthType = "bearer"
	AuthTypeAPIKey AuthType = "apikey"
)

// APIKeyLocation specifies where an API key is injected.
type APIKeyLocation string

const (
	APIKeyInHeader APIKeyLocation = "header"
	APIKeyInQuery  APIKeyLocation = "query"
)

// AuthConfig holds authentication configuration for a request. The core
// only synthesizes headers/query parameters from it; token acquisition
// flows are out of scope.
type AuthConfig struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Key      string `json:"key,omitempty"`
	Value    string `json:"value,omitempty"`
	In       string `json:"in,omitempty"` // header or query, for apikey
}

// IsConfigured returns true if authentication is configured (not none/empty).
func (a *AuthConfig) IsConfigured() bool {
	if a == nil {
		return false
	}
	return a.Type != "" && AuthType(a.Type) != AuthTypeNone
}

// ApplyToHeaders adds synthesized auth headers to the provided map and
// returns any query parameters that must go on the URL instead.
func (a *AuthConfig) ApplyToHeaders(headers map[string]string) map[string]string {
	queryParams := make(map[string]string)

	if !a.IsConfigured() {
		return queryParams
	}

	switch AuthType(a.Type) {
	case AuthTypeBasic:
		credentials := base64.StdEncoding.EncodeToString(
			[]byte(a.Username + ":" + a.Password),
		)
		headers["Authorization"] = "Basic " + credentials

	case AuthTypeBearer:
		headers["Authorization"] = "Bearer " + a.Token

	case AuthTypeAPIKey:
		if APIKeyLocation(a.In) == APIKeyInQuery {
			queryParams[a.Key] = a.Value
		} else {
			headers[a.Key] = a.Value
		}
	}

	return queryParams
}

// ApplyToURL adds authentication query parameters to the URL.
func (a *AuthConfig) ApplyToURL(rawURL string) (string, error) {
	queryParams := a.ApplyToHeaders(make(map[string]string))
	if len(queryParams) == 0 {
		return rawURL, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}

	q := parsed.Query()
	for k, v := range queryParams {
		q.Set(k, v)
	}
	parsed.RawQuery = q.Encode()

	return parsed.String(), nil
}

// Clone creates a deep copy of the auth config.
func (a *AuthConfig) Clone() *AuthConfig {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
