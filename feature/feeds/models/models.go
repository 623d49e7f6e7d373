package models

import (
	"fmt"
	"time"

	account "feedsync/feature/account/models"
)

// ScopedID builds the account-scoped identity for remote entities, e.g.
// remote feed 42 of account 3 becomes "3$42". Scoping keeps ids unique when
// several accounts subscribe to the same remote feed.
func ScopedID(accountID int, remoteID string) string {
	return fmt.Sprintf("%d$%s", accountID, remoteID)
}

// DefaultGroupID returns the id of the per-account fallback group that
// collects feeds carrying no remote tag.
func DefaultGroupID(accountID int) string {
	return ScopedID(accountID, "default")
}

// Feed is a subscribed source.
type Feed struct {
	// ID is the account-scoped identity, see ScopedID.
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name"`
	URL       string `gorm:"column:url"`
	AccountID int    `gorm:"column:account_id;index"`
	// GroupID is the legacy single-group field. The feed_group junction is
	// authoritative for multi-group membership; this field mirrors the
	// canonical group for single-folder call sites.
	GroupID string  `gorm:"column:group_id"`
	Icon    *string `gorm:"column:icon"`

	Account account.Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name.
func (Feed) TableName() string {
	return "feed"
}

// Group is a folder/tag organizing feeds within one account.
type Group struct {
	ID        string `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name"`
	AccountID int    `gorm:"column:account_id;index"`

	Account account.Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name.
func (Group) TableName() string {
	return "group"
}

// FeedGroup is the junction table expressing feed-in-group membership.
// A feed may appear in zero, one, or many groups; the composite primary key
// guarantees a pair appears at most once, and the foreign keys cascade so an
// association can never outlive its feed, group, or account.
type FeedGroup struct {
	FeedID    string `gorm:"column:feed_id;primaryKey;index"`
	GroupID   string `gorm:"column:group_id;primaryKey;index"`
	AccountID int    `gorm:"column:account_id;primaryKey;index"`

	Feed    Feed            `gorm:"foreignKey:FeedID;references:ID;constraint:OnDelete:CASCADE"`
	Group   Group           `gorm:"foreignKey:GroupID;references:ID;constraint:OnDelete:CASCADE"`
	Account account.Account `gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name.
func (FeedGroup) TableName() string {
	return "feed_group"
}

// Article is one entry fetched from the remote provider. Articles are
// created and updated exclusively by the sync engine; afterwards only the
// read/starred flags change.
type Article struct {
	// ID is the account-scoped identity of the remote entry.
	ID        string `gorm:"column:id;primaryKey"`
	FeedID    string `gorm:"column:feed_id;index"`
	AccountID int    `gorm:"column:account_id;index"`
	Title     string `gorm:"column:title"`
	Author    string `gorm:"column:author"`
	Link      string `gorm:"column:link"`
	Content   string `gorm:"column:content"`
	Summary   string `gorm:"column:summary"`
	// Img is the entry's lead image URL, when the provider reports one.
	Img           string    `gorm:"column:img"`
	EnclosureURL  string    `gorm:"column:enclosure_url"`
	EnclosureType string    `gorm:"column:enclosure_type"`
	PublishedAt   time.Time `gorm:"column:published_at"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	IsUnread      bool      `gorm:"column:is_unread"`
	IsStarred     bool      `gorm:"column:is_starred"`

	Feed Feed `gorm:"foreignKey:FeedID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name.
func (Article) TableName() string {
	return "article"
}

// FeedWithGroups pairs a feed with every group it belongs to via the
// junction table.
type FeedWithGroups struct {
	Feed   Feed
	Groups []Group
}

// GroupWithFeeds pairs a group with every feed it contains via the junction
// table. This is the many-to-many counterpart of the legacy single-group
// query on Feed.GroupID.
type GroupWithFeeds struct {
	Group Group
	Feeds []Feed
}
