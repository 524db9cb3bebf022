// Package envelope builds the uniform JSON wrapper around every response.
package envelope

import "time"

// Metadata describes the request a response answers.
type Metadata struct {
	RequestTime     time.Time `json:"request_time"`
	ResponseTime    time.Time `json:"response_time"`
	ResponseLatency float64   `json:"response_latency"` // seconds
	Query           string    `json:"query"`
}

// Response is a successful result set.
type Response[T any] struct {
	Success bool     `json:"success"`
	Context Metadata `json:"context"`
	Results []T      `json:"results"`
}

// Failure is the body of every error response.
type Failure struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Detail  *string `json:"detail,omitempty"`
}

// NewMetadata stamps a response started at start and finished at now.
// response_time never precedes request_time and latency is never negative.
func NewMetadata(start, now time.Time, query string) Metadata {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
		now = start
	}
	return Metadata{
		RequestTime:     start.UTC(),
		ResponseTime:    now.UTC(),
		ResponseLatency: elapsed.Seconds(),
		Query:           query,
	}
}

// New wraps results in a success envelope. A nil slice renders as [].
func New[T any](start, now time.Time, query string, results []T) Response[T] {
	if results == nil {
		results = []T{}
	}
	return Response[T]{
		Success: true,
		Context: NewMetadata(start, now, query),
		Results: results,
	}
}

// NewFailure builds an error body. detail is only rendered when hasDetail is set.
func NewFailure(message, detail string, hasDetail bool) Failure {
	f := Failure{Success: false, Error: message}
	if hasDetail {
		f.Detail = &detail
	}
	return f
}
