// Package app wires the workspace together: store, collection tree,
// environments, history, tabs, and the execution service. The store is
// initialized once, flushed on every mutation, and reloaded wholesale
// when an external change is detected.
package app

import (
	"context"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/quiverhq/quiver/internal/config"
	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/history"
	historysqlite "github.com/quiverhq/quiver/internal/history/sqlite"
	"github.com/quiverhq/quiver/internal/interfaces"
	"github.com/quiverhq/quiver/internal/script"
	"github.com/quiverhq/quiver/internal/storage"
	"github.com/quiverhq/quiver/internal/tabs"
)

// Workspace is the application container for one workspace instance.
type Workspace struct {
	mu sync.Mutex

	config  config.Config
	logger  hclog.Logger
	store   *storage.Store
	tree    *core.Tree
	envs    *core.EnvironmentSet
	log     *history.Log
	tabs    *tabs.Manager
	archive *historysqlite.Store

	notes []core.Note
	tasks []core.Task
}

// Option configures the Workspace.
type Option func(*options)

type options struct {
	fs afero.Fs
}

// WithFilesystem overrides the backing filesystem, letting tests run on
// an in-memory one.
func WithFilesystem(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// New loads all persisted documents and assembles a ready workspace.
func New(cfg config.Config, sender interfaces.Sender, logger hclog.Logger, opts ...Option) (*Workspace, error) {
	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:  "quiver",
			Level: hclog.LevelFromString(cfg.LogLevel),
		})
	}

	o := &options{fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(o)
	}

	store, err := storage.New(o.fs, cfg.DataDir, logger,
		storage.WithPollInterval(cfg.PollInterval()))
	if err != nil {
		return nil, err
	}

	ws := &Workspace{
		config: cfg,
		logger: logger,
		store:  store,
		tree:   core.NewTree(),
		envs:   core.NewEnvironmentSet(),
		log:    history.NewLog(logger),
	}

	if err := ws.loadAll(); err != nil {
		// A corrupt document must not take the workspace down;
		// in-memory state starts fresh and wins on the next write.
		logger.Error("failed to load persisted state", "error", err)
	}

	if cfg.ArchivePath != "" {
		archive, err := historysqlite.New(cfg.ArchivePath)
		if err != nil {
			logger.Warn("history archive unavailable", "error", err)
		} else {
			ws.archive = archive
			ws.log.SetArchiver(archive)
		}
	}

	hooks := script.NewHooks(cfg.Hooks.PreRequest, cfg.Hooks.PostResponse, logger)
	ws.tabs = tabs.NewManager(ws.tree, ws.envs, ws.log, sender, logger,
		tabs.WithTimeout(cfg.Timeout()),
		tabs.WithHooks(hooks),
		tabs.WithNotifier(ws.flushDomain),
	)

	store.OnChange(ws.reloadKey)
	return ws, nil
}

// Accessors.

func (w *Workspace) Config() config.Config          { return w.config }
func (w *Workspace) Tree() *core.Tree               { return w.tree }
func (w *Workspace) Environments() *core.EnvironmentSet { return w.envs }
func (w *Workspace) History() *history.Log          { return w.log }
func (w *Workspace) Tabs() *tabs.Manager            { return w.tabs }
func (w *Workspace) Store() *storage.Store          { return w.store }

// Watch starts external-change detection until ctx is done.
func (w *Workspace) Watch(ctx context.Context) {
	w.store.Watch(ctx)
}

// Close releases held resources.
func (w *Workspace) Close() error {
	if w.archive != nil {
		return w.archive.Close()
	}
	return nil
}

// Loading and reconciliation.

func (w *Workspace) loadAll() error {
	var collectionDocs []storage.CollectionDoc
	if err := w.store.Load(storage.KeyCollections, &collectionDocs); err != nil {
		return err
	}
	w.tree.Replace(storage.CollectionsFromDocs(collectionDocs))

	var envDocs []storage.EnvironmentDoc
	if err := w.store.Load(storage.KeyEnvironments, &envDocs); err != nil {
		return err
	}
	w.envs.Replace(storage.EnvironmentsFromDocs(envDocs))

	var entries []history.Entry
	if err := w.store.Load(storage.KeyHistory, &entries); err != nil {
		return err
	}
	w.log.Replace(entries)

	var settings storage.SettingsDoc
	if err := w.store.Load(storage.KeySettings, &settings); err != nil {
		return err
	}
	w.envs.RevealSecrets(settings.RevealSecrets)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.store.Load(storage.KeyNotes, &w.notes); err != nil {
		return err
	}
	return w.store.Load(storage.KeyTasks, &w.tasks)
}

// reloadKey replaces the in-memory state for one document family
// wholesale. Partial merges invite divergent-merge bugs; the persisted
// snapshot simply wins.
func (w *Workspace) reloadKey(key string) {
	w.logger.Info("reloading after external change", "key", key)

	switch key {
	case storage.KeyCollections:
		var docs []storage.CollectionDoc
		if err := w.store.Load(key, &docs); err == nil {
			w.tree.Replace(storage.CollectionsFromDocs(docs))
		}
	case storage.KeyEnvironments:
		var docs []storage.EnvironmentDoc
		if err := w.store.Load(key, &docs); err == nil {
			w.envs.Replace(storage.EnvironmentsFromDocs(docs))
		}
	case storage.KeyHistory:
		var entries []history.Entry
		if err := w.store.Load(key, &entries); err == nil {
			w.log.Replace(entries)
		}
	case storage.KeyNotes:
		w.mu.Lock()
		defer w.mu.Unlock()
		var notes []core.Note
		if err := w.store.Load(key, &notes); err == nil {
			w.notes = notes
		}
	case storage.KeyTasks:
		w.mu.Lock()
		defer w.mu.Unlock()
		var tasksDoc []core.Task
		if err := w.store.Load(key, &tasksDoc); err == nil {
			w.tasks = tasksDoc
		}
	}
}

// flushDomain persists one document family after a mutation. A failed
// write is logged; in-memory state stays authoritative until the next
// successful write.
func (w *Workspace) flushDomain(domain string) {
	var err error
	switch domain {
	case storage.KeyCollections:
		err = w.store.Save(storage.KeyCollections, storage.CollectionsToDocs(w.tree.Snapshot()))
	case storage.KeyEnvironments:
		err = w.store.Save(storage.KeyEnvironments, storage.EnvironmentsToDocs(w.envs.Snapshot()))
	case storage.KeyHistory:
		err = w.store.Save(storage.KeyHistory, w.log.Entries())
	case storage.KeyNotes:
		w.mu.Lock()
		notes := append([]core.Note(nil), w.notes...)
		w.mu.Unlock()
		err = w.store.Save(storage.KeyNotes, notes)
	case storage.KeyTasks:
		w.mu.Lock()
		tasksDoc := append([]core.Task(nil), w.tasks...)
		w.mu.Unlock()
		err = w.store.Save(storage.KeyTasks, tasksDoc)
	case storage.KeySettings:
		err = w.store.Save(storage.KeySettings, storage.SettingsDoc{
			RevealSecrets: w.envs.SecretsRevealed(),
		})
	}
	if err != nil {
		w.logger.Error("flush failed", "domain", domain, "error", err)
	}
}

// Mutation wrappers: apply to in-memory state, then flush the family.

// CreateCollection adds a collection and persists the tree.
func (w *Workspace) CreateCollection(name string) (*core.Collection, error) {
	c, err := w.tree.CreateCollection(name)
	if err != nil {
		return nil, err
	}
	w.flushDomain(storage.KeyCollections)
	return c, nil
}

// RenameCollection renames a collection and persists the tree.
func (w *Workspace) RenameCollection(id, name string) error {
	if err := w.tree.RenameCollection(id, name); err != nil {
		return err
	}
	w.flushDomain(storage.KeyCollections)
	return nil
}

// DeleteCollection removes a collection and everything under it.
func (w *Workspace) DeleteCollection(id string) error {
	if err := w.tree.DeleteCollection(id); err != nil {
		return err
	}
	w.flushDomain(storage.KeyCollections)
	return nil
}

// CreateFolder adds a folder and persists the tree.
func (w *Workspace) CreateFolder(collectionID, parentFolderID, name string) (*core.Folder, error) {
	f, err := w.tree.CreateFolder(collectionID, parentFolderID, name)
	if err != nil {
		return nil, err
	}
	w.flushDomain(storage.KeyCollections)
	return f, nil
}

// DeleteFolder removes a folder cascade and persists the tree.
func (w *Workspace) DeleteFolder(id string) error {
	if err := w.tree.DeleteFolder(id); err != nil {
		return err
	}
	w.flushDomain(storage.KeyCollections)
	return nil
}

// DeleteRequest removes a request and persists the tree.
func (w *Workspace) DeleteRequest(id string) error {
	if err := w.tree.DeleteRequest(id); err != nil {
		return err
	}
	w.flushDomain(storage.KeyCollections)
	return nil
}

// CreateEnvironment adds an environment and persists the set.
func (w *Workspace) CreateEnvironment(name, description string) (*core.Environment, error) {
	env, err := w.envs.Create(name, description)
	if err != nil {
		return nil, err
	}
	w.flushDomain(storage.KeyEnvironments)
	return env, nil
}

// DeleteEnvironment removes an environment and persists the set.
func (w *Workspace) DeleteEnvironment(id string) error {
	if err := w.envs.Delete(id); err != nil {
		return err
	}
	w.flushDomain(storage.KeyEnvironments)
	return nil
}

// ActivateEnvironment switches the single active environment.
func (w *Workspace) ActivateEnvironment(id string) error {
	if err := w.envs.Activate(id); err != nil {
		return err
	}
	w.flushDomain(storage.KeyEnvironments)
	return nil
}

// SetVariable upserts a variable and persists the set.
func (w *Workspace) SetVariable(envID string, v core.Variable) error {
	if err := w.envs.SetVariable(envID, v); err != nil {
		return err
	}
	w.flushDomain(storage.KeyEnvironments)
	return nil
}

// SetRevealSecrets flips the display-only secret unmasking toggle and
// persists the settings document.
func (w *Workspace) SetRevealSecrets(reveal bool) {
	w.envs.RevealSecrets(reveal)
	w.flushDomain(storage.KeySettings)
}

// ClearHistory empties the log and persists it.
func (w *Workspace) ClearHistory() {
	w.log.Clear()
	w.flushDomain(storage.KeyHistory)
}

// Notes returns the workspace notes.
func (w *Workspace) Notes() []core.Note {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.Note(nil), w.notes...)
}

// AddNote appends a note and persists the family.
func (w *Workspace) AddNote(title, content string) core.Note {
	note := core.NewNote(title, content)
	w.mu.Lock()
	w.notes = append(w.notes, note)
	w.mu.Unlock()
	w.flushDomain(storage.KeyNotes)
	return note
}

// Tasks returns the workspace tasks.
func (w *Workspace) Tasks() []core.Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]core.Task(nil), w.tasks...)
}

// AddTask appends an open task and persists the family.
func (w *Workspace) AddTask(text string) core.Task {
	task := core.NewTask(text)
	w.mu.Lock()
	w.tasks = append(w.tasks, task)
	w.mu.Unlock()
	w.flushDomain(storage.KeyTasks)
	return task
}

// ToggleTask flips a task's done flag and persists the family.
func (w *Workspace) ToggleTask(id string) error {
	w.mu.Lock()
	found := false
	for i := range w.tasks {
		if w.tasks[i].ID == id {
			w.tasks[i].Done = !w.tasks[i].Done
			found = true
			break
		}
	}
	w.mu.Unlock()
	if !found {
		return core.NotFoundf("task %s", id)
	}
	w.flushDomain(storage.KeyTasks)
	return nil
}
