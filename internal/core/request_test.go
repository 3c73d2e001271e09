package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestDraft_Validate(t *testing.T) {
	t.Run("valid draft", func(t *testing.T) {
		d := RequestDraft{Name: "list users", Method: "GET", URL: "https://api.example.com/users"}
		assert.NoError(t, d.Validate())
	})

	t.Run("name is required", func(t *testing.T) {
		d := RequestDraft{Method: "GET"}
		assert.ErrorIs(t, d.Validate(), ErrInvalidArgument)
	})

	t.Run("method must be known", func(t *testing.T) {
		d := RequestDraft{Name: "x", Method: "YEET"}
		assert.ErrorIs(t, d.Validate(), ErrInvalidArgument)
	})
}

func TestNewRequest(t *testing.T) {
	req := NewRequest(RequestDraft{Name: "create", Method: "post", URL: "https://x.test"})

	assert.NotEmpty(t, req.ID())
	assert.Equal(t, "POST", req.Method(), "method is normalized to upper case")
	assert.Equal(t, BodyTypeNone, req.BodyType())
}

func TestJoinParams(t *testing.T) {
	t.Run("appends enabled params only", func(t *testing.T) {
		got := JoinParams("https://x.test/search", []Param{
			{Key: "q", Value: "widgets", Enabled: true},
			{Key: "debug", Value: "1", Enabled: false},
		})
		assert.Equal(t, "https://x.test/search?q=widgets", got)
	})

	t.Run("merges with existing query", func(t *testing.T) {
		got := JoinParams("https://x.test/search?page=2", []Param{
			{Key: "q", Value: "widgets", Enabled: true},
		})
		assert.Contains(t, got, "page=2")
		assert.Contains(t, got, "q=widgets")
	})

	t.Run("no enabled params is the identity", func(t *testing.T) {
		got := JoinParams("https://x.test/a b", []Param{{Key: "q", Enabled: false}})
		assert.Equal(t, "https://x.test/a b", got)
	})
}

func TestRequest_Clone(t *testing.T) {
	req := NewRequest(RequestDraft{
		Name:    "orders",
		Method:  "GET",
		URL:     "https://x.test/orders",
		Headers: []Header{{Key: "Accept", Value: "application/json", Enabled: true}},
		Auth:    &AuthConfig{Type: string(AuthTypeBearer), Token: "t"},
	})

	clone := req.Clone()
	require.NotSame(t, req, clone)
	assert.Equal(t, req.ID(), clone.ID())
	assert.Equal(t, req.Headers(), clone.Headers())

	// Mutating the clone's draft must not reach back into the original.
	draft := clone.Draft()
	draft.Headers[0].Value = "text/html"
	draft.Auth.Token = "changed"
	assert.Equal(t, "application/json", req.Headers()[0].Value)
	assert.Equal(t, "t", req.Auth().Token)
}
