// Package tabs owns the multi-tab editing session state machine and the
// send pipeline that binds resolution, execution, and history together.
package tabs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/interpolate"
	"github.com/quiverhq/quiver/internal/script"
)

// ErrLastTab is returned when closing the only remaining tab; an open
// workspace always retains at least one.
var ErrLastTab = fmt.Errorf("%w: cannot close the last tab", core.ErrInvalidArgument)

// Notifier is told which domain changed so the owner can flush it.
type Notifier func(domain string)

// Manager owns all open tabs of one workspace instance.
type Manager struct {
	mu   sync.Mutex
	tabs []*Session

	tree   *core.Tree
	envs   *core.EnvironmentSet
	log    *history.Log
	sender interfaces.Sender
	hooks  *script.Hooks

	timeout time.Duration
	logger  hclog.Logger
	notify  Notifier
}

// Option configures the Manager.
type Option func(*Manager)

// WithTimeout sets the send timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithHooks attaches script hooks to the send pipeline.
func WithHooks(h *script.Hooks) Option {
	return func(m *Manager) { m.hooks = h }
}

// WithNotifier registers the change notifier.
func WithNotifier(fn Notifier) Option {
	return func(m *Manager) { m.notify = fn }
}

// NewManager creates a manager with one fresh empty tab open.
func NewManager(tree *core.Tree, envs *core.EnvironmentSet, log *history.Log, sender interfaces.Sender, logger hclog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	m := &Manager{
		tree:    tree,
		envs:    envs,
		log:     log,
		sender:  sender,
		timeout: 30 * time.Second,
		logger:  logger.Named("tabs"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.tabs = []*Session{newSession(core.RequestDraft{}, "", false)}
	return m
}

// Tabs returns the open sessions in order.
func (m *Manager) Tabs() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Session(nil), m.tabs...)
}

// Count returns the number of open tabs.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(id)
}

func (m *Manager) find(id string) (*Session, bool) {
	for _, tab := range m.tabs {
		if tab.id == id {
			return tab, true
		}
	}
	return nil, false
}

// OpenNewTab opens a fresh empty Clean tab.
func (m *Manager) OpenNewTab() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab := newSession(core.RequestDraft{}, "", false)
	m.tabs = append(m.tabs, tab)
	return tab
}

// OpenRequest opens a persisted request in a new Clean tab mapped to it.
func (m *Manager) OpenRequest(requestID string) (*Session, error) {
	req, ok := m.tree.FindRequest(requestID)
	if !ok {
		return nil, core.NotFoundf("request %s", requestID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tab := newSession(req.Draft(), req.ID(), false)
	m.tabs = append(m.tabs, tab)
	return tab, nil
}

// DuplicateTab opens a Dirty copy of an existing tab. The copy has its
// own identity, no mapped request, and no response.
func (m *Manager) DuplicateTab(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.find(id)
	if !ok {
		return nil, core.NotFoundf("tab %s", id)
	}

	tab := newSession(src.Draft(), "", true)
	tab.saved = false
	m.tabs = append(m.tabs, tab)
	return tab, nil
}

// LoadFromHistory opens a new Dirty tab seeded from a history snapshot.
func (m *Manager) LoadFromHistory(entry history.Entry) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab := newSession(entry.Draft(), "", true)
	tab.saved = false
	m.tabs = append(m.tabs, tab)
	return tab
}

// CloseTab discards a tab with no persistence side effect. Closing the
// last remaining tab is refused and changes nothing.
func (m *Manager) CloseTab(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tabs) <= 1 {
		return ErrLastTab
	}
	for i, tab := range m.tabs {
		if tab.id == id {
			m.tabs = append(m.tabs[:i], m.tabs[i+1:]...)
			return nil
		}
	}
	return core.NotFoundf("tab %s", id)
}

// Edit replaces the tab's editable fields and marks it Dirty.
func (m *Manager) Edit(id string, draft core.RequestDraft) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tab, ok := m.find(id)
	if !ok {
		return core.NotFoundf("tab %s", id)
	}
	tab.draft = draft
	tab.dirty = true
	tab.saved = false
	return nil
}

// SaveToCollection materializes the tab into the collection tree. A tab
// already mapped to a persisted request updates it in place; otherwise
// exactly one new request is created and the tab maps to it. The tab
// returns to Clean.
func (m *Manager) SaveToCollection(id, collectionID, folderID, name string) (*core.Request, error) {
	m.mu.Lock()
	tab, ok := m.find(id)
	if !ok {
		m.mu.Unlock()
		return nil, core.NotFoundf("tab %s", id)
	}
	draft := tab.Draft()
	requestID := tab.requestID
	m.mu.Unlock()

	if name != "" {
		draft.Name = name
	}

	req, err := m.tree.UpsertRequest(collectionID, folderID, requestID, draft)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// The tab may have been closed while the tree was updating; the
	// saved request stands either way.
	if tab, ok := m.find(id); ok {
		tab.requestID = req.ID()
		tab.draft = draft
		tab.dirty = false
		tab.saved = true
	}
	m.mu.Unlock()

	m.notifyDomain("collections")
	return req, nil
}

// Send resolves the tab's draft against the active environment, hands
// the payload to the execution service, and records the outcome both on
// the tab and in the history log. Transport failures and timeouts come
// back as the status-0 sentinel; Send itself only errors when the tab
// does not exist. The tab's identity and save state are never touched.
func (m *Manager) Send(ctx context.Context, id string) (*core.Response, error) {
	m.mu.Lock()
	tab, ok := m.find(id)
	if !ok {
		m.mu.Unlock()
		return nil, core.NotFoundf("tab %s", id)
	}
	draft := tab.Draft()
	m.mu.Unlock()

	activeEnv := m.envs.Active()
	engine := interpolate.FromEnvironment(activeEnv)
	if m.hooks != nil {
		m.hooks.RunPreRequest(ctx, engine)
	}

	payload := buildPayload(draft, engine)

	sendCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	resp, err := m.sender.Send(sendCtx, payload)
	elapsed := time.Since(start)
	if err != nil {
		m.logger.Warn("send failed", "url", payload.URL, "error", err)
		resp = core.NetworkErrorResponse(err.Error(), elapsed)
	}

	var tests script.TestResult
	if m.hooks != nil {
		tests = m.hooks.RunPostResponse(ctx, resp)
	}

	envName := ""
	if activeEnv != nil {
		envName = activeEnv.Name()
	}
	entry := history.Entry{
		ID:          uuid.New().String(),
		CompletedAt: time.Now(),
		RequestName: draft.Name,
		Method:      payload.Method,
		URL:         draft.URL,
		Headers:     draft.Headers,
		Params:      draft.Params,
		Body:        draft.Body,
		BodyType:    draft.BodyType,
		Auth:        draft.Auth,
		ResolvedURL: payload.URL,
		SentHeaders: payload.Headers,
		SentBody:    payload.Body,
		Environment: envName,
		Response:    *resp,
		TestsPassed: tests.Passed,
		TestsFailed: tests.Failed,
	}
	// Entries land in completion order: concurrent sends from other
	// tabs may have finished in between.
	m.log.Append(ctx, entry)
	m.notifyDomain("history")

	m.mu.Lock()
	if tab, stillOpen := m.find(id); stillOpen {
		tab.response = resp.Clone()
	}
	// A late response for a closed tab is discarded; the history entry
	// above already captured it.
	m.mu.Unlock()

	return resp, nil
}

func (m *Manager) notifyDomain(domain string) {
	if m.notify != nil {
		m.notify(domain)
	}
}

// buildPayload produces the fully resolved execution payload: variables
// substituted, enabled params merged into the URL, and auth headers
// synthesized.
func buildPayload(draft core.RequestDraft, engine *interpolate.Engine) interfaces.Payload {
	resolvedParams := make([]core.Param, 0, len(draft.Params))
	for _, p := range draft.Params {
		if !p.Enabled || p.Key == "" {
			continue
		}
		p.Value = engine.Resolve(p.Value)
		resolvedParams = append(resolvedParams, p)
	}
	url := core.JoinParams(engine.Resolve(draft.URL), resolvedParams)

	headers := make(map[string]string)
	for _, h := range draft.Headers {
		if h.Enabled && h.Key != "" {
			headers[h.Key] = engine.Resolve(h.Value)
		}
	}

	if auth := draft.Auth.Clone(); auth.IsConfigured() {
		auth.Token = engine.Resolve(auth.Token)
		auth.Username = engine.Resolve(auth.Username)
		auth.Password = engine.Resolve(auth.Password)
		auth.Value = engine.Resolve(auth.Value)

		queryParams := auth.ApplyToHeaders(headers)
		if len(queryParams) > 0 {
			if withAuth, err := auth.ApplyToURL(url); err == nil {
				url = withAuth
			}
		}
	}

	body := ""
	if draft.BodyType != core.BodyTypeNone {
		body = engine.Resolve(draft.Body)
		if _, ok := headers["Content-Type"]; !ok && body != "" {
			switch draft.BodyType {
			case core.BodyTypeJSON:
				headers["Content-Type"] = "application/json"
			case core.BodyTypeForm:
				headers["Content-Type"] = "application/x-www-form-urlencoded"
			default:
				headers["Content-Type"] = "text/plain"
			}
		}
	}

	return interfaces.Payload{
		Method:  draft.Method,
		URL:     url,
		Headers: headers,
		Body:    body,
	}
}
