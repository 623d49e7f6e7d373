// Package account implements provider account management.
//
// An account identifies one configured connection to a remote feed provider.
// Its security key is an opaque blob that decodes to provider-specific
// credential fields (username and password for Feedbin); the encoding format
// is owned by the account-setup flow, never by the sync engine.
//
// # Components
//
//   - models: the Account entity and credential encoding/decoding.
//   - Service: account lookup and the per-account entries cursor.
package account
