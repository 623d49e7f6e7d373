// Package feeds implements the reconciliation store for feeds, groups, and
// their many-to-many associations.
//
// # Data model
//
// Feeds and groups are scoped per account; the feed_group junction table
// expresses feed-in-group membership with a composite primary key and
// cascading foreign keys to feed, group, and account. The legacy
// single-group field on Feed coexists with the junction: the junction is
// authoritative for "all groups of a feed" queries, the legacy field mirrors
// the canonical group for single-folder call sites.
//
// # Reconciliation semantics
//
//   - InsertOrUpdate* partitions the incoming set into new and existing
//     rows; untouched rows and fields survive.
//   - ReplaceGroupsForFeed / ReplaceFeedsForGroup are full replaces of one
//     side's membership list, atomic delete-then-insert.
//   - MoveFeed shifts a single membership, leaving other groups untouched.
//
// Every multi-step operation runs inside one transaction; partial
// application is never an acceptable end state.
package feeds
