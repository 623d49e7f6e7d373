// Package sync implements the per-account synchronization orchestrator.
//
// It reconciles two independently evolving data sets: the remote provider's
// state (subscriptions, taggings, entries) and the local store's state
// (feeds, groups, associations, articles).
//
// # Provider contract
//
// The Provider interface is the provider-agnostic sync contract: capability
// flags plus Sync/ValidCredentials/ClearAuthorization. One implementation
// exists per provider type (currently Feedbin); the Service dispatches on
// the account's type tag at runtime.
//
// # Sync flow
//
// One invocation executes strictly in sequence: fetch subscriptions and
// taggings, resolve remote tags into local groups (creating groups as
// needed, with a per-account default group for untagged feeds), upsert
// groups then feeds then the junction associations, then page through
// entries since the stored cursor and upsert articles. Upserting parents
// before associations keeps the junction's foreign keys satisfiable at all
// times.
//
// Concurrent invocations for the same account collapse through a
// single-flight group, so at most one reconciliation per account runs at a
// time.
//
// # Failure classification
//
// Unknown account or wrong provider type fail fast. HTTP 401 is terminal,
// evicts the cached client, and reports "unauthorized". Exhausted transport
// retries report a retriable result the trigger may reschedule.
package sync
