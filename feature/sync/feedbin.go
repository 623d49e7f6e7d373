package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"feedsync/core/logger"
	"feedsync/feature/account"
	accountmodels "feedsync/feature/account/models"
	"feedsync/feature/feedbin"
	"feedsync/feature/feeds"
	"feedsync/feature/feeds/models"

	"go.uber.org/zap"
)

// entriesPageSize matches the provider's per_page parameter; a shorter page
// means the last page was reached.
const entriesPageSize = 100

// FeedbinProvider implements the Provider contract against the Feedbin API.
type FeedbinProvider struct {
	accounts *account.Service
	store    *feeds.Store
	registry *feedbin.Registry
	cfg      feedbin.Config
	logger   *zap.Logger
}

// NewFeedbinProvider creates the Feedbin sync implementation.
func NewFeedbinProvider(
	accounts *account.Service,
	store *feeds.Store,
	registry *feedbin.Registry,
	cfg feedbin.Config,
	logger *zap.Logger,
) *FeedbinProvider {
	return &FeedbinProvider{
		accounts: accounts,
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Type returns the account type tag this provider serves.
func (p *FeedbinProvider) Type() string {
	return accountmodels.TypeFeedbin
}

// Capabilities reports Feedbin's supported mutations. Feedbin has no OPML
// import endpoint on this surface; everything else is supported.
func (p *FeedbinProvider) Capabilities() Capabilities {
	return Capabilities{
		ImportSubscription: false,
		AddSubscription:    true,
		MoveSubscription:   true,
		DeleteSubscription: true,
		UpdateSubscription: true,
	}
}

// clientFor resolves the cached client for an account's credentials,
// building one on first use.
func (p *FeedbinProvider) clientFor(acct *accountmodels.Account) (*feedbin.Client, string, error) {
	creds, err := accountmodels.DecodeCredentials(acct.SecurityKey)
	if err != nil {
		return nil, "", err
	}

	client, err := p.registry.Get(creds.Username, func() (*feedbin.Client, error) {
		return feedbin.NewClient(p.cfg, creds.Username, creds.Password, p.logger), nil
	})
	if err != nil {
		return nil, "", err
	}
	return client, creds.Username, nil
}

// ValidCredentials checks the account's credentials against the remote.
func (p *FeedbinProvider) ValidCredentials(ctx context.Context, accountID int) (bool, error) {
	acct, err := p.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return false, err
	}

	client, _, err := p.clientFor(acct)
	if err != nil {
		return false, err
	}
	return client.ValidCredentials(ctx)
}

// ClearAuthorization evicts the account's cached client so the next call
// rebuilds it with fresh credentials.
func (p *FeedbinProvider) ClearAuthorization(accountID int) {
	acct, err := p.accounts.GetAccountByID(context.Background(), accountID)
	if err != nil {
		p.registry.Clear()
		return
	}
	creds, err := accountmodels.DecodeCredentials(acct.SecurityKey)
	if err != nil {
		p.registry.Clear()
		return
	}
	p.registry.Remove(creds.Username)
}

// Sync drives one account's synchronization: fetch remote subscriptions and
// taggings, reconcile groups, feeds, and associations, then fetch entries
// incrementally from the stored cursor.
func (p *FeedbinProvider) Sync(ctx context.Context, accountID int, feedID, groupID string) Result {
	l := logger.WithAccount(p.logger, accountID)

	acct, err := p.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return Failure(err.Error())
	}
	if acct.Type != accountmodels.TypeFeedbin {
		return Failure(fmt.Sprintf("account %d is not a feedbin account", accountID))
	}

	client, username, err := p.clientFor(acct)
	if err != nil {
		return Failure(err.Error())
	}

	subscriptions, err := client.Subscriptions(ctx)
	if err != nil {
		return p.classify(err, username, "fetching subscriptions")
	}

	taggings, err := client.Taggings(ctx)
	if err != nil {
		return p.classify(err, username, "fetching taggings")
	}

	plan := buildPlan(accountID, subscriptions, taggings)
	plan.scope(feedID, groupID)

	// Groups first, then feeds, then associations: the junction's foreign
	// keys reference both parents, so this ordering can never violate them.
	if err := p.store.InsertOrUpdateGroups(ctx, plan.groups); err != nil {
		return Failure(err.Error())
	}
	if err := p.store.InsertOrUpdateFeeds(ctx, plan.feeds); err != nil {
		return Failure(err.Error())
	}
	for _, feed := range plan.feeds {
		if err := p.store.ReplaceGroupsForFeed(ctx, feed.ID, accountID, plan.membership[feed.ID]); err != nil {
			return Failure(err.Error())
		}
	}

	l.Info("Reconciled feeds and groups",
		zap.Int("feeds", len(plan.feeds)),
		zap.Int("groups", len(plan.groups)),
	)

	// Entries are skipped for group-scoped partial syncs; the provider's
	// entries filter is per feed, not per tag.
	if groupID != "" {
		return Success()
	}

	cursor, err := p.syncEntries(ctx, client, acct, plan, feedID)
	if err != nil {
		return p.classify(err, username, "fetching entries")
	}

	// A feed-scoped pass drops every other feed's entries from the fetched
	// pages, so advancing the account-wide cursor would skip them forever.
	// Only a full sync moves it.
	if feedID == "" && cursor != "" && cursor != acct.LastSyncedAt {
		if err := p.accounts.UpdateCursor(ctx, accountID, cursor); err != nil {
			return Failure(err.Error())
		}
	}

	return Success()
}

// syncEntries pages through entries since the account's cursor, upserting
// each page, and returns the newest created_at seen.
func (p *FeedbinProvider) syncEntries(
	ctx context.Context,
	client *feedbin.Client,
	acct *accountmodels.Account,
	plan *syncPlan,
	feedID string,
) (string, error) {
	cursor := acct.LastSyncedAt

	for page := 1; ; page++ {
		query := feedbin.EntriesQuery{Since: acct.LastSyncedAt}
		if page > 1 {
			query.Page = strconv.Itoa(page)
		}

		entries, err := client.Entries(ctx, query)
		if err != nil {
			return "", err
		}
		if len(entries) == 0 {
			break
		}

		articles := make([]models.Article, 0, len(entries))
		for _, entry := range entries {
			article := toArticle(acct.ID, entry)
			// Entries for feeds outside this sync's scope, or for feeds
			// the account no longer subscribes to, are skipped: an
			// article row must never reference a feed the store does not
			// hold.
			if _, known := plan.feedIDs[article.FeedID]; !known {
				continue
			}
			if feedID != "" && article.FeedID != feedID {
				continue
			}
			articles = append(articles, article)
			if entry.CreatedAt > cursor {
				cursor = entry.CreatedAt
			}
		}

		if err := p.store.UpsertArticles(ctx, articles); err != nil {
			return "", err
		}

		if len(entries) < entriesPageSize {
			break
		}
	}

	return cursor, nil
}

// MoveFeed moves a feed between groups in the local store, then mirrors the
// canonical group into the legacy single-group field.
func (p *FeedbinProvider) MoveFeed(ctx context.Context, accountID int, feedID, fromGroupID, toGroupID string) error {
	if err := p.store.MoveFeed(ctx, feedID, fromGroupID, toGroupID, accountID); err != nil {
		return err
	}
	return p.refreshLegacyGroup(ctx, accountID, feedID)
}

// refreshLegacyGroup re-derives the legacy Feed.GroupID from the junction's
// canonical (first, sorted) group after the membership set changed.
func (p *FeedbinProvider) refreshLegacyGroup(ctx context.Context, accountID int, feedID string) error {
	groupIDs, err := p.store.GroupIDsByFeed(ctx, feedID, accountID)
	if err != nil {
		return err
	}

	legacy := models.DefaultGroupID(accountID)
	if len(groupIDs) > 0 {
		legacy = groupIDs[0]
	}

	feed, err := p.store.FeedByID(ctx, feedID)
	if err != nil {
		return err
	}
	if feed.GroupID == legacy {
		return nil
	}
	feed.GroupID = legacy
	return p.store.InsertOrUpdateFeeds(ctx, []models.Feed{*feed})
}

// classify maps a provider error to a sync result. Unauthorized evicts the
// cached client so the next attempt re-authenticates.
func (p *FeedbinProvider) classify(err error, username, during string) Result {
	if errors.Is(err, feedbin.ErrUnauthorized) {
		p.registry.Remove(username)
		return Failure("unauthorized")
	}

	var statusErr *feedbin.StatusError
	if errors.As(err, &statusErr) && !statusErr.Retriable() {
		return Failure(fmt.Sprintf("%s: %s", during, err))
	}

	// Transport errors and exhausted 5xx retries are worth another sync.
	return Retry(fmt.Sprintf("%s: %s", during, err))
}

// syncPlan is the desired end-state computed from one remote snapshot.
type syncPlan struct {
	feeds  []models.Feed
	groups []models.Group
	// membership maps local feed id to its complete group id set.
	membership map[string][]string
	// feedIDs indexes the plan's feeds for entry filtering.
	feedIDs map[string]struct{}
}

// buildPlan resolves remote subscriptions and taggings into local feeds,
// groups, and the authoritative membership list per feed. Feeds carrying no
// tag fall into the per-account default group.
func buildPlan(accountID int, subscriptions []feedbin.Subscription, taggings []feedbin.Tagging) *syncPlan {
	// Remote tag name -> local group, deduplicated by name.
	groupsByName := make(map[string]models.Group)
	tagsByFeed := make(map[int64][]string)
	for _, tagging := range taggings {
		if tagging.Name == "" {
			continue
		}
		if _, ok := groupsByName[tagging.Name]; !ok {
			groupsByName[tagging.Name] = models.Group{
				ID:        models.ScopedID(accountID, tagging.Name),
				Name:      tagging.Name,
				AccountID: accountID,
			}
		}
		tagsByFeed[tagging.FeedID] = append(tagsByFeed[tagging.FeedID], tagging.Name)
	}

	defaultGroup := models.Group{
		ID:        models.DefaultGroupID(accountID),
		Name:      "Default",
		AccountID: accountID,
	}

	plan := &syncPlan{
		membership: make(map[string][]string),
		feedIDs:    make(map[string]struct{}),
	}
	needDefault := false

	for _, sub := range subscriptions {
		localID := models.ScopedID(accountID, strconv.FormatInt(sub.FeedID, 10))

		var groupIDs []string
		tags := tagsByFeed[sub.FeedID]
		if len(tags) == 0 {
			needDefault = true
			groupIDs = []string{defaultGroup.ID}
		} else {
			sort.Strings(tags)
			seen := make(map[string]struct{}, len(tags))
			for _, tag := range tags {
				if _, dup := seen[tag]; dup {
					continue
				}
				seen[tag] = struct{}{}
				groupIDs = append(groupIDs, groupsByName[tag].ID)
			}
		}

		plan.feeds = append(plan.feeds, models.Feed{
			ID:        localID,
			Name:      sub.Title,
			URL:       sub.FeedURL,
			AccountID: accountID,
			// The junction is authoritative; the legacy field mirrors the
			// canonical (first) group for single-folder call sites.
			GroupID: groupIDs[0],
		})
		plan.membership[localID] = groupIDs
		plan.feedIDs[localID] = struct{}{}
	}

	if needDefault {
		plan.groups = append(plan.groups, defaultGroup)
	}
	names := make([]string, 0, len(groupsByName))
	for name := range groupsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		plan.groups = append(plan.groups, groupsByName[name])
	}

	return plan
}

// scope narrows the plan to one feed or one group for a partial resync.
func (plan *syncPlan) scope(feedID, groupID string) {
	if feedID == "" && groupID == "" {
		return
	}

	keep := func(f models.Feed) bool {
		if feedID != "" && f.ID != feedID {
			return false
		}
		if groupID != "" {
			for _, id := range plan.membership[f.ID] {
				if id == groupID {
					return true
				}
			}
			return false
		}
		return true
	}

	scoped := plan.feeds[:0]
	scopedIDs := make(map[string]struct{})
	for _, f := range plan.feeds {
		if keep(f) {
			scoped = append(scoped, f)
			scopedIDs[f.ID] = struct{}{}
		}
	}
	plan.feeds = scoped
	plan.feedIDs = scopedIDs

	for id := range plan.membership {
		if _, ok := scopedIDs[id]; !ok {
			delete(plan.membership, id)
		}
	}
}

// toArticle converts one remote entry into a local article row.
func toArticle(accountID int, entry feedbin.Entry) models.Article {
	article := models.Article{
		ID:        models.ScopedID(accountID, strconv.FormatInt(entry.ID, 10)),
		FeedID:    models.ScopedID(accountID, strconv.FormatInt(entry.FeedID, 10)),
		AccountID: accountID,
		IsUnread:  true,
	}

	if entry.Title != nil {
		article.Title = *entry.Title
	}
	if entry.URL != nil {
		article.Link = *entry.URL
	}
	if entry.Author != nil {
		article.Author = *entry.Author
	}
	if entry.Content != nil {
		article.Content = *entry.Content
	}
	if entry.Summary != nil {
		article.Summary = *entry.Summary
	}
	if entry.Images != nil {
		article.Img = entry.Images.OriginalURL
	}
	if entry.Enclosure != nil {
		article.EnclosureURL = entry.Enclosure.EnclosureURL
		if entry.Enclosure.EnclosureType != nil {
			article.EnclosureType = *entry.Enclosure.EnclosureType
		}
	}

	if published, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		article.PublishedAt = published
	}
	if created, err := time.Parse(time.RFC3339, entry.CreatedAt); err == nil {
		article.CreatedAt = created
	}

	return article
}
