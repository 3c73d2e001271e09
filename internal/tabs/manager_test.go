package tabs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
	"github.com/quiverhq/quiver/internal/interfaces"
)

// mockSender records payloads and replies with a canned response.
type mockSender struct {
	mu       sync.Mutex
	payloads []interfaces.Payload
	respond  func(interfaces.Payload) (*core.Response, error)
}

func (m *mockSender) Send(_ context.Context, p interfaces.Payload) (*core.Response, error) {
	m.mu.Lock()
	m.payloads = append(m.payloads, p)
	m.mu.Unlock()
	if m.respond != nil {
		return m.respond(p)
	}
	return &core.Response{Status: 200, StatusText: "OK", Body: "ok"}, nil
}

func (m *mockSender) Protocol() string { return "http" }

func (m *mockSender) lastPayload(t *testing.T) interfaces.Payload {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.payloads)
	return m.payloads[len(m.payloads)-1]
}

type fixture struct {
	tree    *core.Tree
	envs    *core.EnvironmentSet
	log     *history.Log
	sender  *mockSender
	manager *Manager
	domains []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tree:   core.NewTree(),
		envs:   core.NewEnvironmentSet(),
		log:    history.NewLog(nil),
		sender: &mockSender{},
	}
	f.manager = NewManager(f.tree, f.envs, f.log, f.sender, nil,
		WithNotifier(func(domain string) { f.domains = append(f.domains, domain) }))
	return f
}

func TestManager_OpensWithOneTab(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, 1, f.manager.Count())
	tab := f.manager.Tabs()[0]
	assert.False(t, tab.HasUnsavedChanges())
	assert.False(t, tab.SavedToCollection())
	assert.Equal(t, "GET", tab.Draft().Method)
	assert.Equal(t, "Untitled", tab.Title())
}

func TestManager_CloseTab(t *testing.T) {
	f := newFixture(t)

	t.Run("the last tab cannot be closed", func(t *testing.T) {
		only := f.manager.Tabs()[0]
		err := f.manager.CloseTab(only.ID())
		assert.ErrorIs(t, err, ErrLastTab)
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
		assert.Equal(t, 1, f.manager.Count())
	})

	t.Run("closing discards without persistence", func(t *testing.T) {
		second := f.manager.OpenNewTab()
		require.NoError(t, f.manager.Edit(second.ID(), core.RequestDraft{Method: "GET", URL: "https://x.test"}))

		require.NoError(t, f.manager.CloseTab(second.ID()))
		assert.Equal(t, 1, f.manager.Count())
		assert.Empty(t, f.tree.ReachableRequestIDs(), "unsaved edits vanish on close")
	})

	t.Run("unknown tab", func(t *testing.T) {
		f.manager.OpenNewTab()
		assert.ErrorIs(t, f.manager.CloseTab("missing"), core.ErrNotFound)
	})
}

func TestManager_OpenRequest(t *testing.T) {
	f := newFixture(t)
	c, _ := f.tree.CreateCollection("API")
	req, err := f.tree.AddRequest(c.ID(), "", core.RequestDraft{Name: "health", Method: "GET", URL: "https://x.test/health"})
	require.NoError(t, err)

	t.Run("opens mapped and clean", func(t *testing.T) {
		tab, err := f.manager.OpenRequest(req.ID())
		require.NoError(t, err)
		assert.Equal(t, req.ID(), tab.RequestID())
		assert.True(t, tab.SavedToCollection())
		assert.False(t, tab.HasUnsavedChanges())
		assert.Equal(t, "health", tab.Title())
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.manager.OpenRequest("missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestManager_DuplicateTab(t *testing.T) {
	f := newFixture(t)
	c, _ := f.tree.CreateCollection("API")
	req, _ := f.tree.AddRequest(c.ID(), "", core.RequestDraft{Name: "health", Method: "GET", URL: "https://x.test/health"})
	src, err := f.manager.OpenRequest(req.ID())
	require.NoError(t, err)

	dup, err := f.manager.DuplicateTab(src.ID())
	require.NoError(t, err)

	assert.NotEqual(t, src.ID(), dup.ID(), "the copy has its own identity")
	assert.Empty(t, dup.RequestID(), "the copy maps to no persisted request")
	assert.False(t, dup.SavedToCollection())
	assert.True(t, dup.HasUnsavedChanges())
	assert.Nil(t, dup.Response())
	assert.Equal(t, src.Draft(), dup.Draft())

	// Edits to the copy never leak into the source.
	require.NoError(t, f.manager.Edit(dup.ID(), core.RequestDraft{Name: "changed", Method: "POST"}))
	assert.Equal(t, "health", src.Draft().Name)
}

func TestManager_Edit(t *testing.T) {
	f := newFixture(t)
	tab := f.manager.Tabs()[0]

	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{Method: "POST", URL: "https://x.test"}))
	assert.True(t, tab.HasUnsavedChanges())
	assert.Equal(t, "POST", tab.Draft().Method)

	assert.ErrorIs(t, f.manager.Edit("missing", core.RequestDraft{}), core.ErrNotFound)
}

func TestManager_SaveToCollection(t *testing.T) {
	f := newFixture(t)
	c, _ := f.tree.CreateCollection("API")
	tab := f.manager.Tabs()[0]
	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{Method: "GET", URL: "https://x.test/users"}))

	t.Run("first save creates exactly one request", func(t *testing.T) {
		req, err := f.manager.SaveToCollection(tab.ID(), c.ID(), "", "list users")
		require.NoError(t, err)

		assert.Len(t, f.tree.ReachableRequestIDs(), 1)
		assert.Equal(t, req.ID(), tab.RequestID())
		assert.True(t, tab.SavedToCollection())
		assert.False(t, tab.HasUnsavedChanges(), "save returns the tab to clean")
		assert.Contains(t, f.domains, "collections")
	})

	t.Run("repeated saves update in place", func(t *testing.T) {
		draft := tab.Draft()
		draft.Method = "POST"
		require.NoError(t, f.manager.Edit(tab.ID(), draft))

		req, err := f.manager.SaveToCollection(tab.ID(), c.ID(), "", "")
		require.NoError(t, err)

		assert.Len(t, f.tree.ReachableRequestIDs(), 1, "no duplicate is created")
		assert.Equal(t, tab.RequestID(), req.ID())

		persisted, ok := f.tree.FindRequest(req.ID())
		require.True(t, ok)
		assert.Equal(t, "POST", persisted.Method())
	})

	t.Run("invalid draft is rejected", func(t *testing.T) {
		bad := f.manager.OpenNewTab()
		require.NoError(t, f.manager.Edit(bad.ID(), core.RequestDraft{Method: "GET"}))
		_, err := f.manager.SaveToCollection(bad.ID(), c.ID(), "", "")
		assert.ErrorIs(t, err, core.ErrInvalidArgument)
	})
}

func TestManager_Send(t *testing.T) {
	f := newFixture(t)
	env, _ := f.envs.Create("dev", "")
	require.NoError(t, f.envs.SetVariable(env.ID(), core.Variable{Key: "HOST", Value: "api.example.com", Enabled: true}))
	require.NoError(t, f.envs.SetVariable(env.ID(), core.Variable{Key: "TOKEN", Value: "s3cret", Enabled: true, Secret: true}))
	require.NoError(t, f.envs.Activate(env.ID()))

	tab := f.manager.Tabs()[0]
	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{
		Name:   "create",
		Method: "POST",
		URL:    "https://{{HOST}}/users",
		Params: []core.Param{
			{Key: "dry_run", Value: "1", Enabled: true},
			{Key: "debug", Value: "1", Enabled: false},
		},
		Body:     `{"token":"{{TOKEN}}"}`,
		BodyType: core.BodyTypeJSON,
		Auth:     &core.AuthConfig{Type: string(core.AuthTypeBearer), Token: "{{TOKEN}}"},
	}))

	resp, err := f.manager.Send(context.Background(), tab.ID())
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	t.Run("payload is fully resolved", func(t *testing.T) {
		p := f.sender.lastPayload(t)
		assert.Equal(t, "https://api.example.com/users?dry_run=1", p.URL)
		assert.Equal(t, "Bearer s3cret", p.Headers["Authorization"], "secrets resolve to stored values")
		assert.Equal(t, "application/json", p.Headers["Content-Type"])
		assert.Equal(t, `{"token":"s3cret"}`, p.Body)
	})

	t.Run("outcome lands on the tab and in history", func(t *testing.T) {
		require.NotNil(t, tab.Response())
		assert.Equal(t, 200, tab.Response().Status)

		require.Equal(t, 1, f.log.Len())
		e := f.log.Entries()[0]
		assert.Equal(t, "https://{{HOST}}/users", e.URL, "history keeps the template form")
		assert.Equal(t, "https://api.example.com/users?dry_run=1", e.ResolvedURL)
		assert.Equal(t, "dev", e.Environment)
		assert.Contains(t, f.domains, "history")
	})

	t.Run("send never touches identity or save state", func(t *testing.T) {
		assert.True(t, tab.HasUnsavedChanges())
		assert.False(t, tab.SavedToCollection())
	})

	t.Run("unknown tab is the only error path", func(t *testing.T) {
		_, err := f.manager.Send(context.Background(), "missing")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestManager_SendTransportFailure(t *testing.T) {
	f := newFixture(t)
	f.sender.respond = func(interfaces.Payload) (*core.Response, error) {
		return nil, errors.New("connection refused")
	}

	tab := f.manager.Tabs()[0]
	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{Method: "GET", URL: "https://unreachable.test"}))

	resp, err := f.manager.Send(context.Background(), tab.ID())
	require.NoError(t, err, "transport failure is not an error, it is a result")

	assert.True(t, resp.IsNetworkError())
	assert.Zero(t, resp.Status)
	assert.Contains(t, resp.StatusText, "connection refused")

	require.Equal(t, 1, f.log.Len())
	assert.Equal(t, "network", f.log.Entries()[0].Response.StatusClass())
}

func TestManager_LateResponseForClosedTab(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	f.sender.respond = func(interfaces.Payload) (*core.Response, error) {
		close(started)
		<-release
		return &core.Response{Status: 200, StatusText: "OK"}, nil
	}

	slow := f.manager.OpenNewTab()
	require.NoError(t, f.manager.Edit(slow.ID(), core.RequestDraft{Method: "GET", URL: "https://slow.test"}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.manager.Send(context.Background(), slow.ID())
	}()

	<-started
	require.NoError(t, f.manager.CloseTab(slow.ID()))
	close(release)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("send did not finish")
	}

	// The response is discarded, but the history entry still records it.
	assert.Equal(t, 1, f.manager.Count())
	assert.Equal(t, 1, f.log.Len())
	assert.Equal(t, 200, f.log.Entries()[0].Response.Status)
}

func TestManager_LoadFromHistory(t *testing.T) {
	f := newFixture(t)

	entry := history.Entry{
		ID:          "h1",
		RequestName: "replay me",
		Method:      "POST",
		URL:         "https://{{HOST}}/orders",
		Body:        `{"sku":"a"}`,
		BodyType:    core.BodyTypeJSON,
		ResolvedURL: "https://api.example.com/orders",
	}

	tab := f.manager.LoadFromHistory(entry)
	assert.True(t, tab.HasUnsavedChanges())
	assert.False(t, tab.SavedToCollection())
	assert.Empty(t, tab.RequestID())
	assert.Equal(t, "https://{{HOST}}/orders", tab.Draft().URL, "the template form is restored")
}

// One pass through the whole workspace: environment, resolution, save,
// send, and the independence of history from the tree.
func TestManager_WorkspaceScenario(t *testing.T) {
	f := newFixture(t)

	env, err := f.envs.Create("dev", "")
	require.NoError(t, err)
	require.NoError(t, f.envs.SetVariable(env.ID(), core.Variable{Key: "BASE_URL", Value: "http://x", Enabled: true}))
	require.NoError(t, f.envs.Activate(env.ID()))

	tab := f.manager.Tabs()[0]
	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{Method: "GET", URL: "{{BASE_URL}}/users"}))

	c, err := f.tree.CreateCollection("A")
	require.NoError(t, err)
	_, err = f.manager.SaveToCollection(tab.ID(), c.ID(), "", "list users")
	require.NoError(t, err)

	saved, ok := f.tree.FindCollection(c.ID())
	require.True(t, ok)
	require.Len(t, saved.Requests(), 1)
	assert.Equal(t, "list users", saved.Requests()[0].Name())

	_, err = f.manager.Send(context.Background(), tab.ID())
	require.NoError(t, err)
	assert.Equal(t, "http://x/users", f.sender.lastPayload(t).URL)
	require.Equal(t, 1, f.log.Len())
	assert.Equal(t, 200, f.log.Entries()[0].Response.Status)

	// History is an independent copy, not a live reference into the tree.
	require.NoError(t, f.tree.DeleteCollection(c.ID()))
	assert.Empty(t, f.tree.ReachableRequestIDs())
	assert.Equal(t, 1, f.log.Len())
	assert.Equal(t, "http://x/users", f.log.Entries()[0].ResolvedURL)
}

// The whole editing loop: open, edit, send, save, duplicate, close.
func TestManager_EditingLifecycle(t *testing.T) {
	f := newFixture(t)
	c, _ := f.tree.CreateCollection("API")

	tab := f.manager.Tabs()[0]
	require.NoError(t, f.manager.Edit(tab.ID(), core.RequestDraft{Method: "GET", URL: "https://x.test/health"}))
	require.True(t, tab.HasUnsavedChanges())

	_, err := f.manager.Send(context.Background(), tab.ID())
	require.NoError(t, err)
	require.True(t, tab.HasUnsavedChanges(), "sending does not save")

	_, err = f.manager.SaveToCollection(tab.ID(), c.ID(), "", "health")
	require.NoError(t, err)
	require.False(t, tab.HasUnsavedChanges())

	dup, err := f.manager.DuplicateTab(tab.ID())
	require.NoError(t, err)
	require.NoError(t, f.manager.CloseTab(dup.ID()))

	assert.Len(t, f.tree.ReachableRequestIDs(), 1)
	assert.Equal(t, 1, f.log.Len())
}
