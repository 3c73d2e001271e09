package core

import (
	"time"
)

// Response is the uniform result shape for an executed request. Transport
// failures are folded into the same shape with status 0 so tab and
// history rendering never need a parallel error path.
type Response struct {
	Status       int               `json:"status"`
	StatusText   string            `json:"statusText"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"`
	ResponseTime int64             `json:"responseTime"` // milliseconds
	Size         int64             `json:"size"`         // body bytes
}

// NetworkErrorResponse builds the status-0 sentinel for a transport or
// timeout failure.
func NetworkErrorResponse(message string, elapsed time.Duration) *Response {
	return &Response{
		Status:       0,
		StatusText:   message,
		ResponseTime: elapsed.Milliseconds(),
	}
}

// IsNetworkError reports whether the response is the transport-failure
// sentinel.
func (r *Response) IsNetworkError() bool {
	return r != nil && r.Status == 0
}

// StatusClass buckets the response into 2xx/3xx/4xx/5xx or "network".
func (r *Response) StatusClass() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Status >= 200 && r.Status < 300:
		return "2xx"
	case r.Status >= 300 && r.Status < 400:
		return "3xx"
	case r.Status >= 400 && r.Status < 500:
		return "4xx"
	case r.Status >= 500 && r.Status < 600:
		return "5xx"
	default:
		return "network"
	}
}

// Clone creates a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Headers != nil {
		clone.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			clone.Headers[k] = v
		}
	}
	return &clone
}
