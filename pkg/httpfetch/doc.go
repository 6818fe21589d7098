// Package httpfetch is an example fetch_fn collaborator: a generic paginated
// JSON HTTP client with a Redis-backed response cache, an error-budget
// aware rate limiter, and retry with backoff. It is deliberately outside
// pkg/scheduler's import graph - spec.md §1 excludes "the HTTP client / API
// interaction itself" from the core, leaving it to be "supplied by the
// caller as a fetch function taking a batch and returning a response
// value". httpfetch is one concrete such caller-supplied collaborator;
// cmd/pagesched's fetchPage (run.go) and tests/integration show it wired
// into a scheduler.FetchFunc.
package httpfetch
