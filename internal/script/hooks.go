// Package script runs the optional JavaScript hooks around a send: a
// pre-request hook that may set transient variables for that send only,
// and a post-response hook whose test() assertions are tallied into the
// history entry.
package script

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	"github.com/hashicorp/go-hclog"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/interpolate"
)

// TestResult tallies post-response assertions.
type TestResult struct {
	Passed int
	Failed int
}

// Hooks holds the configured hook sources. Empty sources are no-ops.
type Hooks struct {
	mu           sync.Mutex
	preRequest   string
	postResponse string
	logger       hclog.Logger
}

// NewHooks creates a hook runner with the given script sources.
func NewHooks(preRequest, postResponse string, logger hclog.Logger) *Hooks {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Hooks{
		preRequest:   preRequest,
		postResponse: postResponse,
		logger:       logger.Named("script"),
	}
}

// RunPreRequest executes the pre-request hook against the resolver.
// Script failures are logged and swallowed: a broken hook must never
// block a send.
func (h *Hooks) RunPreRequest(ctx context.Context, vars *interpolate.Engine) {
	h.mu.Lock()
	source := h.preRequest
	h.mu.Unlock()
	if strings.TrimSpace(source) == "" {
		return
	}

	runtime := h.newRuntime()

	varsObj := runtime.NewObject()
	varsObj.Set("set", func(key, value string) {
		vars.SetVariable(key, value)
	})
	varsObj.Set("get", func(key string) string {
		return vars.Variables()[key]
	})
	runtime.Set("vars", varsObj)

	if err := h.run(ctx, runtime, source); err != nil {
		h.logger.Warn("pre-request hook failed", "error", err)
	}
}

// RunPostResponse executes the post-response hook against the response
// and returns the assertion tally.
func (h *Hooks) RunPostResponse(ctx context.Context, resp *core.Response) TestResult {
	h.mu.Lock()
	source := h.postResponse
	h.mu.Unlock()

	var result TestResult
	if strings.TrimSpace(source) == "" || resp == nil {
		return result
	}

	runtime := h.newRuntime()

	respObj := runtime.NewObject()
	respObj.Set("status", resp.Status)
	respObj.Set("statusText", resp.StatusText)
	respObj.Set("body", resp.Body)
	respObj.Set("headers", resp.Headers)
	respObj.Set("responseTime", resp.ResponseTime)
	runtime.Set("response", respObj)

	runtime.Set("test", func(name string, fn goja.Callable) {
		value, err := fn(goja.Undefined())
		if err == nil && value != nil && value.ToBoolean() {
			result.Passed++
			return
		}
		result.Failed++
		if err != nil {
			h.logger.Debug("test threw", "test", name, "error", err)
		} else {
			h.logger.Debug("test failed", "test", name)
		}
	})

	if err := h.run(ctx, runtime, source); err != nil {
		h.logger.Warn("post-response hook failed", "error", err)
	}
	return result
}

func (h *Hooks) newRuntime() *goja.Runtime {
	runtime := goja.New()
	runtime.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	console := runtime.NewObject()
	logFn := func(level string) func(call goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = fmt.Sprintf("%v", arg.Export())
			}
			h.logger.Info("console."+level, "message", strings.Join(parts, " "))
			return goja.Undefined()
		}
	}
	console.Set("log", logFn("log"))
	console.Set("warn", logFn("warn"))
	console.Set("error", logFn("error"))
	runtime.Set("console", console)

	return runtime
}

// run executes the script with context-cancellation support.
func (h *Hooks) run(ctx context.Context, runtime *goja.Runtime, source string) error {
	program, err := goja.Compile("hook", source, true)
	if err != nil {
		return fmt.Errorf("syntax error: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			runtime.Interrupt("context cancelled")
		case <-done:
		}
	}()

	runtime.ClearInterrupt()
	if _, err := runtime.RunProgram(program); err != nil {
		return err
	}
	return nil
}
