package history

import (
	"time"

	"github.com/quiverhq/quiver/internal/core"
	"github.com/quiverhq/quiver/internal/exporter"
)

// Entry is an immutable record of one executed request/response pair.
// It snapshots both the editable definition (so a tab can be reopened
// from it) and the payload that was actually sent.
type Entry struct {
	ID          string    `json:"id"`
	CompletedAt time.Time `json:"completedAt"`

	// Definition snapshot, as the tab looked when it was sent.
	RequestName string           `json:"requestName"`
	Method      string           `json:"method"`
	URL         string           `json:"url"` // template form, pre-resolution
	Headers     []core.Header    `json:"headers,omitempty"`
	Params      []core.Param     `json:"params,omitempty"`
	Body        string           `json:"body,omitempty"`
	BodyType    core.BodyType    `json:"bodyType,omitempty"`
	Auth        *core.AuthConfig `json:"auth,omitempty"`

	// Sent payload, post-resolution.
	ResolvedURL string            `json:"resolvedUrl"`
	SentHeaders map[string]string `json:"sentHeaders,omitempty"`
	SentBody    string            `json:"sentBody,omitempty"`

	Environment string        `json:"environment,omitempty"`
	Response    core.Response `json:"response"`

	TestsPassed int `json:"testsPassed,omitempty"`
	TestsFailed int `json:"testsFailed,omitempty"`
}

// Clone creates a deep, independent copy so later tab edits can never
// retroactively alter a stored entry.
func (e Entry) Clone() Entry {
	clone := e
	clone.Headers = append([]core.Header(nil), e.Headers...)
	clone.Params = append([]core.Param(nil), e.Params...)
	clone.Auth = e.Auth.Clone()
	if e.SentHeaders != nil {
		clone.SentHeaders = make(map[string]string, len(e.SentHeaders))
		for k, v := range e.SentHeaders {
			clone.SentHeaders[k] = v
		}
	}
	if r := e.Response.Clone(); r != nil {
		clone.Response = *r
	}
	return clone
}

// Draft rebuilds the editable request fields from the snapshot, used
// when a tab is opened from history.
func (e Entry) Draft() core.RequestDraft {
	c := e.Clone()
	return core.RequestDraft{
		Name:     c.RequestName,
		Method:   c.Method,
		URL:      c.URL,
		Headers:  c.Headers,
		Params:   c.Params,
		Body:     c.Body,
		BodyType: c.BodyType,
		Auth:     c.Auth,
	}
}

// Reproduction derives the curl command that replays this entry: the
// resolved URL, the headers that were sent (auth included), and the
// body. Computed on demand; never written back into the log.
func (e Entry) Reproduction() string {
	return exporter.Command(e.Method, e.ResolvedURL, e.SentHeaders, e.SentBody)
}
