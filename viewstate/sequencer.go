package viewstate

import "sync/atomic"

// FetchSequencer enforces last-request-wins for one logical view. Every fetch
// takes a token from Begin; when the response lands, Accept tells the caller
// whether it is still the latest request or has been superseded by a newer
// fetch (filter change, page change) and must be discarded.
type FetchSequencer struct {
	latest atomic.Uint64
}

// Begin issues the token for a new fetch, superseding all earlier ones.
func (s *FetchSequencer) Begin() uint64 {
	return s.latest.Add(1)
}

// Accept reports whether a response carrying the token may be applied.
func (s *FetchSequencer) Accept(token uint64) bool {
	return s.latest.Load() == token
}
