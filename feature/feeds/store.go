package feeds

import (
	"context"
	"fmt"

	"feedsync/core/database"
	account "feedsync/feature/account/models"
	"feedsync/feature/feeds/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store translates desired end-state into minimal local mutations.
// Every multi-step operation runs inside a single transaction so partial
// application is never an observable end state.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a reconciliation store over the given connection.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate applies the store schema and sanity-checks the result. Parents
// migrate before the junction table so its foreign keys can be created.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&account.Account{},
		&models.Group{},
		&models.Feed{},
		&models.FeedGroup{},
		&models.Article{},
	)
	if err != nil {
		return err
	}

	if err := database.RequireTables(db,
		account.Account{}.TableName(),
		models.Group{}.TableName(),
		models.Feed{}.TableName(),
		models.FeedGroup{}.TableName(),
		models.Article{}.TableName(),
	); err != nil {
		return err
	}

	// The junction's composite key columns must all exist before any
	// association write; a clear error here beats a constraint failure in
	// the middle of a sync.
	columns, err := database.GetTableColumns(db, models.FeedGroup{}.TableName())
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col.Field] = struct{}{}
	}
	for _, name := range []string{"feed_id", "group_id", "account_id"} {
		if _, ok := present[name]; !ok {
			return fmt.Errorf("feed_group table is missing column %q", name)
		}
	}
	return nil
}

// InsertOrUpdateFeeds partitions the incoming set into new and existing
// feeds by id, inserting the former and updating the latter. Rows not
// mentioned survive untouched.
func (s *Store) InsertOrUpdateFeeds(ctx context.Context, feeds []models.Feed) error {
	if len(feeds) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(feeds))
		for _, f := range feeds {
			ids = append(ids, f.ID)
		}

		var existing []string
		if err := tx.Model(&models.Feed{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return fmt.Errorf("failed to query existing feeds: %w", err)
		}
		known := toSet(existing)

		var toInsert []models.Feed
		for _, f := range feeds {
			if _, ok := known[f.ID]; ok {
				if err := tx.Omit(clause.Associations).Save(&f).Error; err != nil {
					return fmt.Errorf("failed to update feed %s: %w", f.ID, err)
				}
				continue
			}
			toInsert = append(toInsert, f)
		}

		if len(toInsert) > 0 {
			if err := tx.Omit(clause.Associations).Create(&toInsert).Error; err != nil {
				return fmt.Errorf("failed to insert feeds: %w", err)
			}
		}
		return nil
	})
}

// InsertOrUpdateGroups has the same partition semantics as
// InsertOrUpdateFeeds.
func (s *Store) InsertOrUpdateGroups(ctx context.Context, groups []models.Group) error {
	if len(groups) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(groups))
		for _, g := range groups {
			ids = append(ids, g.ID)
		}

		var existing []string
		if err := tx.Model(&models.Group{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return fmt.Errorf("failed to query existing groups: %w", err)
		}
		known := toSet(existing)

		var toInsert []models.Group
		for _, g := range groups {
			if _, ok := known[g.ID]; ok {
				if err := tx.Omit(clause.Associations).Save(&g).Error; err != nil {
					return fmt.Errorf("failed to update group %s: %w", g.ID, err)
				}
				continue
			}
			toInsert = append(toInsert, g)
		}

		if len(toInsert) > 0 {
			if err := tx.Omit(clause.Associations).Create(&toInsert).Error; err != nil {
				return fmt.Errorf("failed to insert groups: %w", err)
			}
		}
		return nil
	})
}

// UpsertArticles inserts new articles and updates existing ones, preserving
// the locally owned read/starred flags on updates.
func (s *Store) UpsertArticles(ctx context.Context, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]string, 0, len(articles))
		for _, a := range articles {
			ids = append(ids, a.ID)
		}

		var existing []string
		if err := tx.Model(&models.Article{}).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
			return fmt.Errorf("failed to query existing articles: %w", err)
		}
		known := toSet(existing)

		var toInsert []models.Article
		for _, a := range articles {
			if _, ok := known[a.ID]; ok {
				// Remote content may change; the read/starred flags are
				// local state and must not be clobbered by a resync.
				err := tx.Model(&models.Article{}).Where("id = ?", a.ID).
					Select("title", "author", "link", "content", "summary",
						"img", "enclosure_url", "enclosure_type", "published_at").
					Updates(&a).Error
				if err != nil {
					return fmt.Errorf("failed to update article %s: %w", a.ID, err)
				}
				continue
			}
			toInsert = append(toInsert, a)
		}

		if len(toInsert) > 0 {
			if err := tx.Omit(clause.Associations).Create(&toInsert).Error; err != nil {
				return fmt.Errorf("failed to insert articles: %w", err)
			}
		}
		return nil
	})
}

// ReplaceGroupsForFeed replaces a feed's entire group membership with the
// given set. This is a full replace, only safe when the caller holds the
// complete, authoritative membership list for that feed.
func (s *Store) ReplaceGroupsForFeed(ctx context.Context, feedID string, accountID int, groupIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("feed_id = ? AND account_id = ?", feedID, accountID).
			Delete(&models.FeedGroup{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear groups for feed %s: %w", feedID, err)
		}

		if len(groupIDs) == 0 {
			return nil
		}

		rows := make([]models.FeedGroup, 0, len(groupIDs))
		for _, groupID := range groupIDs {
			rows = append(rows, models.FeedGroup{FeedID: feedID, GroupID: groupID, AccountID: accountID})
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert groups for feed %s: %w", feedID, err)
		}
		return nil
	})
}

// ReplaceFeedsForGroup is the symmetric full replace of a group's feed set.
func (s *Store) ReplaceFeedsForGroup(ctx context.Context, groupID string, accountID int, feedIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("group_id = ? AND account_id = ?", groupID, accountID).
			Delete(&models.FeedGroup{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear feeds for group %s: %w", groupID, err)
		}

		if len(feedIDs) == 0 {
			return nil
		}

		rows := make([]models.FeedGroup, 0, len(feedIDs))
		for _, feedID := range feedIDs {
			rows = append(rows, models.FeedGroup{FeedID: feedID, GroupID: groupID, AccountID: accountID})
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert feeds for group %s: %w", groupID, err)
		}
		return nil
	})
}

// MoveFeed moves a feed from one group to another. Memberships in any other
// group are untouched.
func (s *Store) MoveFeed(ctx context.Context, feedID, fromGroupID, toGroupID string, accountID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("feed_id = ? AND group_id = ? AND account_id = ?", feedID, fromGroupID, accountID).
			Delete(&models.FeedGroup{}).Error
		if err != nil {
			return fmt.Errorf("failed to remove feed %s from group %s: %w", feedID, fromGroupID, err)
		}

		row := models.FeedGroup{FeedID: feedID, GroupID: toGroupID, AccountID: accountID}
		err = tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to add feed %s to group %s: %w", feedID, toGroupID, err)
		}
		return nil
	})
}

// AddFeedToGroup adds a single membership, keeping existing ones.
func (s *Store) AddFeedToGroup(ctx context.Context, feedID, groupID string, accountID int) error {
	row := models.FeedGroup{FeedID: feedID, GroupID: groupID, AccountID: accountID}
	err := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to add feed %s to group %s: %w", feedID, groupID, err)
	}
	return nil
}

// RemoveFeedFromGroup removes a single membership.
func (s *Store) RemoveFeedFromGroup(ctx context.Context, feedID, groupID string, accountID int) error {
	err := s.db.WithContext(ctx).
		Where("feed_id = ? AND group_id = ? AND account_id = ?", feedID, groupID, accountID).
		Delete(&models.FeedGroup{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove feed %s from group %s: %w", feedID, groupID, err)
	}
	return nil
}

// DeleteFeed removes a feed. Its junction rows and articles go with it via
// the cascading foreign keys.
func (s *Store) DeleteFeed(ctx context.Context, feedID string, accountID int) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", feedID, accountID).
		Delete(&models.Feed{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete feed %s: %w", feedID, err)
	}
	return nil
}

// DeleteGroup removes a group; its junction rows cascade.
func (s *Store) DeleteGroup(ctx context.Context, groupID string, accountID int) error {
	err := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", groupID, accountID).
		Delete(&models.Group{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete group %s: %w", groupID, err)
	}
	return nil
}

// DeleteAccountData removes every feed, group, article, and association
// belonging to an account.
func (s *Store) DeleteAccountData(ctx context.Context, accountID int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Junction and article rows cascade from their parents, but feeds
		// and groups reference only the account, so both are cleared here.
		if err := tx.Where("account_id = ?", accountID).Delete(&models.Feed{}).Error; err != nil {
			return fmt.Errorf("failed to delete feeds for account %d: %w", accountID, err)
		}
		if err := tx.Where("account_id = ?", accountID).Delete(&models.Group{}).Error; err != nil {
			return fmt.Errorf("failed to delete groups for account %d: %w", accountID, err)
		}
		return nil
	})
}

// GroupIDsByFeed returns all group ids a feed belongs to, per the junction
// table. The junction is authoritative; the legacy Feed.GroupID is not
// consulted.
func (s *Store) GroupIDsByFeed(ctx context.Context, feedID string, accountID int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.FeedGroup{}).
		Where("feed_id = ? AND account_id = ?", feedID, accountID).
		Order("group_id").
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for feed %s: %w", feedID, err)
	}
	return ids, nil
}

// FeedIDsByGroup returns all feed ids contained in a group.
func (s *Store) FeedIDsByGroup(ctx context.Context, groupID string, accountID int) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.FeedGroup{}).
		Where("group_id = ? AND account_id = ?", groupID, accountID).
		Order("feed_id").
		Pluck("feed_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds for group %s: %w", groupID, err)
	}
	return ids, nil
}

// GroupsByFeed returns the full group rows a feed belongs to.
func (s *Store) GroupsByFeed(ctx context.Context, feedID string, accountID int) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN feed_group fg ON fg.group_id = `group`.id").
		Where("fg.feed_id = ? AND fg.account_id = ?", feedID, accountID).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for feed %s: %w", feedID, err)
	}
	return groups, nil
}

// FeedsByGroup returns the full feed rows contained in a group.
func (s *Store) FeedsByGroup(ctx context.Context, groupID string, accountID int) ([]models.Feed, error) {
	var feeds []models.Feed
	err := s.db.WithContext(ctx).
		Joins("INNER JOIN feed_group fg ON fg.feed_id = feed.id").
		Where("fg.group_id = ? AND fg.account_id = ?", groupID, accountID).
		Find(&feeds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds for group %s: %w", groupID, err)
	}
	return feeds, nil
}

// FeedGroupsByAccount returns every association of one account.
func (s *Store) FeedGroupsByAccount(ctx context.Context, accountID int) ([]models.FeedGroup, error) {
	var rows []models.FeedGroup
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query associations for account %d: %w", accountID, err)
	}
	return rows, nil
}

// AssociationExists reports whether a specific membership exists.
func (s *Store) AssociationExists(ctx context.Context, feedID, groupID string, accountID int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FeedGroup{}).
		Where("feed_id = ? AND group_id = ? AND account_id = ?", feedID, groupID, accountID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check association: %w", err)
	}
	return count > 0, nil
}

// CountFeedsInGroup returns the number of feeds in a group.
func (s *Store) CountFeedsInGroup(ctx context.Context, groupID string, accountID int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FeedGroup{}).
		Where("group_id = ? AND account_id = ?", groupID, accountID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count feeds in group %s: %w", groupID, err)
	}
	return count, nil
}

// CountGroupsForFeed returns the number of groups a feed belongs to.
func (s *Store) CountGroupsForFeed(ctx context.Context, feedID string, accountID int) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.FeedGroup{}).
		Where("feed_id = ? AND account_id = ?", feedID, accountID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count groups for feed %s: %w", feedID, err)
	}
	return count, nil
}

// FeedsByAccount returns every feed of one account.
func (s *Store) FeedsByAccount(ctx context.Context, accountID int) ([]models.Feed, error) {
	var feeds []models.Feed
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&feeds).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds for account %d: %w", accountID, err)
	}
	return feeds, nil
}

// GroupsByAccount returns every group of one account.
func (s *Store) GroupsByAccount(ctx context.Context, accountID int) ([]models.Group, error) {
	var groups []models.Group
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id").
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query groups for account %d: %w", accountID, err)
	}
	return groups, nil
}

// FeedByID resolves one feed.
func (s *Store) FeedByID(ctx context.Context, feedID string) (*models.Feed, error) {
	var feed models.Feed
	err := s.db.WithContext(ctx).Where("id = ?", feedID).Take(&feed).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query feed %s: %w", feedID, err)
	}
	return &feed, nil
}

// GroupByID resolves one group.
func (s *Store) GroupByID(ctx context.Context, groupID string) (*models.Group, error) {
	var group models.Group
	err := s.db.WithContext(ctx).Where("id = ?", groupID).Take(&group).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query group %s: %w", groupID, err)
	}
	return &group, nil
}

// GroupsWithFeeds returns every group of an account paired with its feeds,
// resolved through the junction table.
func (s *Store) GroupsWithFeeds(ctx context.Context, accountID int) ([]models.GroupWithFeeds, error) {
	groups, err := s.GroupsByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	result := make([]models.GroupWithFeeds, 0, len(groups))
	for _, g := range groups {
		feeds, err := s.FeedsByGroup(ctx, g.ID, accountID)
		if err != nil {
			return nil, err
		}
		result = append(result, models.GroupWithFeeds{Group: g, Feeds: feeds})
	}
	return result, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
