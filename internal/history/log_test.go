package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quiverhq/quiver/internal/core"
)

func entry(id, method, url string, status int) Entry {
	return Entry{
		ID:          id,
		CompletedAt: time.Now(),
		Method:      method,
		URL:         url,
		ResolvedURL: url,
		Response:    core.Response{Status: status, StatusText: "OK"},
	}
}

func TestLog_AppendOrder(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	log.Append(ctx, entry("a", "GET", "https://x.test/1", 200))
	log.Append(ctx, entry("b", "GET", "https://x.test/2", 200))

	entries := log.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].ID, "newest first")
	assert.Equal(t, "a", entries[1].ID)
}

func TestLog_BoundEviction(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	for i := 0; i < Bound+1; i++ {
		log.Append(ctx, entry(fmt.Sprintf("e%d", i), "GET", "https://x.test", 200))
	}

	assert.Equal(t, Bound, log.Len())

	entries := log.Entries()
	assert.Equal(t, fmt.Sprintf("e%d", Bound), entries[0].ID, "newest entry survives")
	assert.Equal(t, "e1", entries[len(entries)-1].ID, "oldest entry was evicted")
	_, ok := log.Get("e0")
	assert.False(t, ok)
}

func TestLog_DeepCopyIsolation(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	e := entry("a", "POST", "https://x.test", 201)
	e.Headers = []core.Header{{Key: "Accept", Value: "application/json", Enabled: true}}
	log.Append(ctx, e)

	// Mutating the caller's copy after Append must not reach the log.
	e.Headers[0].Value = "text/html"
	e.Response.Status = 500

	stored, ok := log.Get("a")
	require.True(t, ok)
	assert.Equal(t, "application/json", stored.Headers[0].Value)
	assert.Equal(t, 201, stored.Response.Status)

	// Same for copies handed out by the log.
	stored.Headers[0].Value = "mutated"
	again, _ := log.Get("a")
	assert.Equal(t, "application/json", again.Headers[0].Value)
}

func TestLog_Filter(t *testing.T) {
	log := NewLog(nil)
	ctx := context.Background()

	log.Append(ctx, entry("ok-get", "GET", "https://x.test/users", 200))
	log.Append(ctx, entry("ok-post", "POST", "https://x.test/users", 201))
	log.Append(ctx, entry("missing", "GET", "https://x.test/ghosts", 404))
	netErr := entry("down", "GET", "https://unreachable.test", 0)
	netErr.Response = *core.NetworkErrorResponse("connection refused", time.Second)
	log.Append(ctx, netErr)

	t.Run("by method", func(t *testing.T) {
		got := log.Filter(FilterOptions{Method: "post"})
		require.Len(t, got, 1)
		assert.Equal(t, "ok-post", got[0].ID)
	})

	t.Run("by status class", func(t *testing.T) {
		got := log.Filter(FilterOptions{StatusClass: "4xx"})
		require.Len(t, got, 1)
		assert.Equal(t, "missing", got[0].ID)
	})

	t.Run("network errors are their own class", func(t *testing.T) {
		got := log.Filter(FilterOptions{StatusClass: "network"})
		require.Len(t, got, 1)
		assert.Equal(t, "down", got[0].ID)
	})

	t.Run("free text over URL", func(t *testing.T) {
		got := log.Filter(FilterOptions{Query: "ghosts"})
		require.Len(t, got, 1)
		assert.Equal(t, "missing", got[0].ID)
	})

	t.Run("filters are conjunctive", func(t *testing.T) {
		got := log.Filter(FilterOptions{Method: "GET", StatusClass: "2xx"})
		require.Len(t, got, 1)
		assert.Equal(t, "ok-get", got[0].ID)
	})

	t.Run("empty options return everything", func(t *testing.T) {
		assert.Len(t, log.Filter(FilterOptions{}), 4)
	})
}

func TestLog_Clear(t *testing.T) {
	log := NewLog(nil)
	log.Append(context.Background(), entry("a", "GET", "https://x.test", 200))

	log.Clear()
	assert.Zero(t, log.Len())
	assert.Empty(t, log.Entries())
}

func TestLog_ReplaceHonorsBound(t *testing.T) {
	log := NewLog(nil)

	over := make([]Entry, Bound+10)
	for i := range over {
		over[i] = entry(fmt.Sprintf("e%d", i), "GET", "https://x.test", 200)
	}
	log.Replace(over)

	assert.Equal(t, Bound, log.Len())
	assert.Equal(t, "e0", log.Entries()[0].ID, "input order is preserved")
}

type recordingArchiver struct {
	entries []Entry
	fail    bool
}

func (r *recordingArchiver) Archive(_ context.Context, e Entry) error {
	if r.fail {
		return fmt.Errorf("archive unavailable")
	}
	r.entries = append(r.entries, e)
	return nil
}

func TestLog_Archiver(t *testing.T) {
	t.Run("receives every appended entry", func(t *testing.T) {
		log := NewLog(nil)
		sink := &recordingArchiver{}
		log.SetArchiver(sink)

		log.Append(context.Background(), entry("a", "GET", "https://x.test", 200))
		require.Len(t, sink.entries, 1)
		assert.Equal(t, "a", sink.entries[0].ID)
	})

	t.Run("archive failure never surfaces", func(t *testing.T) {
		log := NewLog(nil)
		log.SetArchiver(&recordingArchiver{fail: true})

		log.Append(context.Background(), entry("a", "GET", "https://x.test", 200))
		assert.Equal(t, 1, log.Len(), "entry is retained despite the failed archive")
	})
}
