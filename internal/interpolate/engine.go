// Package interpolate implements {{KEY}} template substitution against
// the active environment. Resolution is a single pass: substituted
// values are never re-scanned, unresolved placeholders are left
// verbatim, and malformed syntax passes through untouched. The engine
// never fails, so editing a half-typed template cannot break a tab.
package interpolate

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quiverhq/quiver/internal/core"
)

// BuiltinFunc generates a dynamic value for a $-prefixed placeholder.
type BuiltinFunc func() string

// variablePattern matches {{variable}} or {{ variable }} syntax.
var variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_$][a-zA-Z0-9_\-$]*)\s*\}\}`)

// Engine resolves templates against one snapshot of variables.
type Engine struct {
	mu        sync.RWMutex
	variables map[string]string
	builtins  map[string]BuiltinFunc
}

// NewEngine creates an empty engine with the default builtins.
func NewEngine() *Engine {
	e := &Engine{
		variables: make(map[string]string),
		builtins:  make(map[string]BuiltinFunc),
	}
	e.registerDefaultBuiltins()
	return e
}

// FromEnvironment builds an engine seeded with the enabled variables of
// env. A nil environment yields an engine that resolves nothing, which
// makes Resolve the identity function.
func FromEnvironment(env *core.Environment) *Engine {
	e := NewEngine()
	if env == nil {
		return e
	}
	for _, v := range env.Variables() {
		if v.Enabled {
			e.variables[v.Key] = v.Value
		}
	}
	return e
}

func (e *Engine) registerDefaultBuiltins() {
	e.builtins["$uuid"] = func() string {
		return uuid.New().String()
	}
	e.builtins["$timestamp"] = func() string {
		return fmt.Sprintf("%d", time.Now().Unix())
	}
	e.builtins["$isoTimestamp"] = func() string {
		return time.Now().Format(time.RFC3339)
	}
	e.builtins["$date"] = func() string {
		return time.Now().Format("2006-01-02")
	}
}

// SetVariable overlays a variable, shadowing any environment value.
// Pre-request hooks use this for transient values scoped to one send.
func (e *Engine) SetVariable(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = value
}

// HasVariable checks if a variable is resolvable.
func (e *Engine) HasVariable(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, exists := e.variables[name]
	return exists
}

// Variables returns a copy of all resolvable variables.
func (e *Engine) Variables() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make(map[string]string, len(e.variables))
	for k, v := range e.variables {
		result[k] = v
	}
	return result
}

// Resolve replaces every resolvable {{KEY}} occurrence in the template.
// Unknown keys stay verbatim; the result is never re-scanned.
func (e *Engine) Resolve(template string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		submatch := variablePattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		name := submatch[1]

		if strings.HasPrefix(name, "$") {
			if fn, ok := e.builtins[name]; ok {
				return fn()
			}
		}

		if value, ok := e.variables[name]; ok {
			return value
		}

		return match
	})
}

// ResolveMap resolves all values of a string map.
func (e *Engine) ResolveMap(input map[string]string) map[string]string {
	result := make(map[string]string, len(input))
	for k, v := range input {
		result[k] = e.Resolve(v)
	}
	return result
}

// ExtractVariables returns the distinct placeholder names in a template.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	seen := make(map[string]bool)
	var result []string
	for _, match := range matches {
		if len(match) >= 2 && !seen[match[1]] {
			seen[match[1]] = true
			result = append(result, match[1])
		}
	}
	return result
}
