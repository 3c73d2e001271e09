package core

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SecretMask is the fixed-length rendering of secret variable values in
// any read surface. Unmasking is a display toggle; stored values are
// never altered.
const SecretMask = "••••••••"

// Variable is one key/value row in an environment. Keys are unique
// within their environment. Disabled variables are kept for editing but
// ignored by the resolver.
type Variable struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
	Secret  bool   `json:"secret"`
}

// Environment is a named set of substitutable variables. At most one
// environment in a set is active at any time.
type Environment struct {
	id          string
	name        string
	description string
	active      bool
	variables   []Variable
}

// NewEnvironment creates a new inactive environment.
func NewEnvironment(name, description string) *Environment {
	return &Environment{
		id:          uuid.New().String(),
		name:        name,
		description: description,
		variables:   make([]Variable, 0),
	}
}

// NewEnvironmentWithID rebuilds an environment from storage.
func NewEnvironmentWithID(id, name, description string, active bool, variables []Variable) *Environment {
	return &Environment{id: id, name: name, description: description, active: active, variables: variables}
}

func (e *Environment) ID() string          { return e.id }
func (e *Environment) Name() string        { return e.name }
func (e *Environment) Description() string { return e.description }
func (e *Environment) Active() bool        { return e.active }

// Variables returns a copy of the ordered variable rows with stored values.
func (e *Environment) Variables() []Variable {
	return append([]Variable(nil), e.variables...)
}

// DisplayVariables returns the rows as they should be rendered: secret
// values are replaced with the fixed mask unless reveal is set.
func (e *Environment) DisplayVariables(reveal bool) []Variable {
	rows := append([]Variable(nil), e.variables...)
	if reveal {
		return rows
	}
	for i := range rows {
		if rows[i].Secret {
			rows[i].Value = SecretMask
		}
	}
	return rows
}

// Lookup returns the variable with the given key.
func (e *Environment) Lookup(key string) (Variable, bool) {
	for _, v := range e.variables {
		if v.Key == key {
			return v, true
		}
	}
	return Variable{}, false
}

// EnabledValue returns the value for key when the variable exists and is
// enabled.
func (e *Environment) EnabledValue(key string) (string, bool) {
	v, ok := e.Lookup(key)
	if !ok || !v.Enabled {
		return "", false
	}
	return v.Value, true
}

func (e *Environment) clone() *Environment {
	return &Environment{
		id:          e.id,
		name:        e.name,
		description: e.description,
		active:      e.active,
		variables:   append([]Variable(nil), e.variables...),
	}
}

// EnvironmentSet owns all environments of a workspace and enforces the
// single-active invariant. Mutations publish a fresh slice so rendered
// views holding Snapshot() stay consistent.
type EnvironmentSet struct {
	mu            sync.RWMutex
	environments  []*Environment
	revealSecrets bool
}

// NewEnvironmentSet creates an empty set.
func NewEnvironmentSet() *EnvironmentSet {
	return &EnvironmentSet{environments: make([]*Environment, 0)}
}

// Snapshot returns the current environments. Treated as immutable.
func (s *EnvironmentSet) Snapshot() []*Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.environments
}

// Replace swaps the whole set, used for external-change reconciliation.
func (s *EnvironmentSet) Replace(environments []*Environment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if environments == nil {
		environments = make([]*Environment, 0)
	}
	s.environments = environments
}

// Create adds a new inactive environment.
func (s *EnvironmentSet) Create(name, description string) (*Environment, error) {
	if strings.TrimSpace(name) == "" {
		return nil, InvalidArgumentf("environment name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env := NewEnvironment(name, description)
	next := append(append([]*Environment(nil), s.environments...), env)
	s.environments = next
	return env, nil
}

// Delete removes an environment.
func (s *EnvironmentSet) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, env := range s.environments {
		if env.id == id {
			next := append([]*Environment(nil), s.environments[:i]...)
			next = append(next, s.environments[i+1:]...)
			s.environments = next
			return nil
		}
	}
	return NotFoundf("environment %s", id)
}

// Activate marks one environment active and deactivates all others
// atomically. An unknown id fails with no partial activation.
func (s *EnvironmentSet) Activate(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for _, env := range s.environments {
		if env.id == id {
			found = true
			break
		}
	}
	if !found {
		return NotFoundf("environment %s", id)
	}

	next := make([]*Environment, len(s.environments))
	for i, env := range s.environments {
		if env.active == (env.id == id) {
			next[i] = env
			continue
		}
		clone := env.clone()
		clone.active = env.id == id
		next[i] = clone
	}
	s.environments = next
	return nil
}

// Deactivate clears the active flag everywhere.
func (s *EnvironmentSet) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]*Environment, len(s.environments))
	for i, env := range s.environments {
		if !env.active {
			next[i] = env
			continue
		}
		clone := env.clone()
		clone.active = false
		next[i] = clone
	}
	s.environments = next
}

// Active returns the active environment, or nil when none is active.
func (s *EnvironmentSet) Active() *Environment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, env := range s.environments {
		if env.active {
			return env
		}
	}
	return nil
}

// Find returns an environment by id.
func (s *EnvironmentSet) Find(id string) (*Environment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, env := range s.environments {
		if env.id == id {
			return env, true
		}
	}
	return nil, false
}

// FindByName returns an environment by name.
func (s *EnvironmentSet) FindByName(name string) (*Environment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, env := range s.environments {
		if env.name == name {
			return env, true
		}
	}
	return nil, false
}

// SetVariable upserts a variable row by key, keeping keys unique.
func (s *EnvironmentSet) SetVariable(envID string, v Variable) error {
	if strings.TrimSpace(v.Key) == "" {
		return InvalidArgumentf("variable key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateEnvironment(envID, func(env *Environment) {
		for i := range env.variables {
			if env.variables[i].Key == v.Key {
				env.variables[i] = v
				return
			}
		}
		env.variables = append(env.variables, v)
	})
}

// RemoveVariable deletes a variable row by key.
func (s *EnvironmentSet) RemoveVariable(envID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateEnvironment(envID, func(env *Environment) {
		for i := range env.variables {
			if env.variables[i].Key == key {
				env.variables = append(env.variables[:i], env.variables[i+1:]...)
				return
			}
		}
	})
}

// Rename changes an environment's name and description.
func (s *EnvironmentSet) Rename(envID, name, description string) error {
	if strings.TrimSpace(name) == "" {
		return InvalidArgumentf("environment name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateEnvironment(envID, func(env *Environment) {
		env.name = name
		env.description = description
	})
}

// updateEnvironment clones the target environment, applies fn, and
// publishes a fresh slice. Caller holds the write lock.
func (s *EnvironmentSet) updateEnvironment(id string, fn func(*Environment)) error {
	for i, env := range s.environments {
		if env.id == id {
			clone := env.clone()
			fn(clone)
			next := append([]*Environment(nil), s.environments...)
			next[i] = clone
			s.environments = next
			return nil
		}
	}
	return NotFoundf("environment %s", id)
}

// RevealSecrets toggles the display-only unmasking of secret values.
func (s *EnvironmentSet) RevealSecrets(reveal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealSecrets = reveal
}

// SecretsRevealed reports the current display toggle.
func (s *EnvironmentSet) SecretsRevealed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revealSecrets
}
