package core

import (
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Header is one ordered request header row. Disabled rows are kept for
// editing but excluded from the resolved payload.
type Header struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Param is one ordered query parameter row.
type Param struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// BodyType identifies how the request body should be interpreted.
type BodyType string

const (
	BodyTypeNone BodyType = "none"
	BodyTypeJSON BodyType = "json"
	BodyTypeText BodyType = "text"
	BodyTypeForm BodyType = "form"
)

// Request is a persisted definition of one API call.
type Request struct {
	id       string
	name     string
	method   string
	url      string
	headers  []Header
	params   []Param
	body     string
	bodyType BodyType
	auth     *AuthConfig
}

// RequestDraft carries the editable fields used to create or update a
// Request. A draft has no identity until the tree materializes it.
type RequestDraft struct {
	Name     string
	Method   string
	URL      string
	Headers  []Header
	Params   []Param
	Body     string
	BodyType BodyType
	Auth     *AuthConfig
}

// Validate checks the structural requirements of a draft.
func (d RequestDraft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.Method, validation.Required, validation.In(
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS")),
	)
	if err != nil {
		return InvalidArgumentf("request draft: %v", err)
	}
	return nil
}

// NewRequest materializes a draft with a freshly generated id.
func NewRequest(draft RequestDraft) *Request {
	return newRequestWithID(uuid.New().String(), draft)
}

// NewRequestWithID rebuilds a request from storage under a known id.
func NewRequestWithID(id string, draft RequestDraft) *Request {
	return newRequestWithID(id, draft)
}

func newRequestWithID(id string, draft RequestDraft) *Request {
	bodyType := draft.BodyType
	if bodyType == "" {
		bodyType = BodyTypeNone
	}
	r := &Request{
		id:       id,
		name:     draft.Name,
		method:   strings.ToUpper(draft.Method),
		url:      draft.URL,
		headers:  append([]Header(nil), draft.Headers...),
		params:   append([]Param(nil), draft.Params...),
		body:     draft.Body,
		bodyType: bodyType,
	}
	if draft.Auth != nil {
		r.auth = draft.Auth.Clone()
	}
	return r
}

func (r *Request) ID() string         { return r.id }
func (r *Request) Name() string       { return r.name }
func (r *Request) Method() string     { return r.method }
func (r *Request) URL() string        { return r.url }
func (r *Request) Body() string       { return r.body }
func (r *Request) BodyType() BodyType { return r.bodyType }
func (r *Request) Auth() *AuthConfig  { return r.auth.Clone() }

// Headers returns a copy of the ordered header rows.
func (r *Request) Headers() []Header {
	return append([]Header(nil), r.headers...)
}

// Params returns a copy of the ordered query parameter rows.
func (r *Request) Params() []Param {
	return append([]Param(nil), r.params...)
}

// Draft returns the editable fields of this request.
func (r *Request) Draft() RequestDraft {
	return RequestDraft{
		Name:     r.name,
		Method:   r.method,
		URL:      r.url,
		Headers:  append([]Header(nil), r.headers...),
		Params:   append([]Param(nil), r.params...),
		Body:     r.body,
		BodyType: r.bodyType,
		Auth:     r.auth.Clone(),
	}
}

// FullURL returns the URL with enabled query parameters appended.
func (r *Request) FullURL() string {
	return JoinParams(r.url, r.params)
}

// JoinParams appends the enabled query parameters to a URL. An
// unparseable URL is returned as-is.
func JoinParams(rawURL string, params []Param) string {
	enabled := make([]Param, 0, len(params))
	for _, p := range params {
		if p.Enabled && p.Key != "" {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsed.Query()
	for _, p := range enabled {
		q.Set(p.Key, p.Value)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

// Clone creates a deep copy of the request, id included.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	clone := newRequestWithID(r.id, r.Draft())
	return clone
}
