// Package feedbin implements the client for the Feedbin REST API.
//
// # Client
//
// The client covers the read surface the sync engine needs: credential
// validation, subscriptions, taggings, icons, saved searches, and paginated
// entries. Every request carries HTTP Basic authorization and runs through
// the core/retry policy.
//
// # Error taxonomy
//
//   - HTTP 401 maps to ErrUnauthorized: terminal, never retried, and the
//     caller must evict the cached client so the next sync re-authenticates.
//   - Other non-2xx statuses map to StatusError, retriable only for 5xx and
//     429.
//   - Malformed response bodies are permanent decode errors.
//
// # Registry
//
// Registry caches one client per credential identity (username) so repeated
// sync invocations reuse connections. It is injectable and safe for
// concurrent use.
package feedbin
