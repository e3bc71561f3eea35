// Package resilience provides a three-state circuit breaker (closed, open,
// half-open) used to guard calls to external collaborators such as the
// history store.
//
// The breaker transitions based on failure counts:
//
//	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
//
// State changes invoke the configured OnStateChange callback so callers can
// log or export them.
package resilience
