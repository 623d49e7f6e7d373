package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"testing"

	"feedsync/feature/account"
	accountmodels "feedsync/feature/account/models"
	"feedsync/feature/feeds"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubProvider records invocations and answers with canned results.
type stubProvider struct {
	accountType string
	caps        Capabilities
	result      Result
	moveErr     error

	syncCalls int32
	moveCalls int32
	inFlight  int32
	overlaps  int32
	// release, when set, blocks Sync until closed.
	release chan struct{}
}

func (p *stubProvider) Type() string               { return p.accountType }
func (p *stubProvider) Capabilities() Capabilities { return p.caps }
func (p *stubProvider) ValidCredentials(ctx context.Context, accountID int) (bool, error) {
	return true, nil
}
func (p *stubProvider) ClearAuthorization(accountID int) {}

func (p *stubProvider) Sync(ctx context.Context, accountID int, feedID, groupID string) Result {
	atomic.AddInt32(&p.syncCalls, 1)
	if atomic.AddInt32(&p.inFlight, 1) > 1 {
		atomic.AddInt32(&p.overlaps, 1)
	}
	defer atomic.AddInt32(&p.inFlight, -1)
	if p.release != nil {
		<-p.release
	}
	return p.result
}

func (p *stubProvider) MoveFeed(ctx context.Context, accountID int, feedID, fromGroupID, toGroupID string) error {
	atomic.AddInt32(&p.moveCalls, 1)
	return p.moveErr
}

func setupService(t *testing.T, dbName string) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, feeds.Migrate(db))

	return NewService(account.NewService(db, zap.NewNop()), zap.NewNop()), db
}

func TestServiceDispatch(t *testing.T) {
	service, db := setupService(t, "service_dispatch")
	require.NoError(t, db.Create(&accountmodels.Account{ID: 1, Name: "a", Type: "stub"}).Error)

	provider := &stubProvider{accountType: "stub", result: Success()}
	service.Register(provider)

	result := service.Sync(context.Background(), 1, "", "")
	assert.Equal(t, StatusSuccess, result.Status)
	assert.EqualValues(t, 1, atomic.LoadInt32(&provider.syncCalls))
}

func TestServiceSyncPreconditions(t *testing.T) {
	service, db := setupService(t, "service_preconditions")
	require.NoError(t, db.Create(&accountmodels.Account{ID: 1, Name: "a", Type: "unhandled"}).Error)

	t.Run("UnknownAccount", func(t *testing.T) {
		result := service.Sync(context.Background(), 404, "", "")
		assert.Equal(t, StatusFailure, result.Status)
	})

	t.Run("UnregisteredProviderType", func(t *testing.T) {
		result := service.Sync(context.Background(), 1, "", "")
		assert.Equal(t, StatusFailure, result.Status)
		assert.Contains(t, result.Reason, "no provider registered")
	})
}

func TestServiceCollapsesConcurrentSyncs(t *testing.T) {
	service, db := setupService(t, "service_singleflight")
	require.NoError(t, db.Create(&accountmodels.Account{ID: 1, Name: "a", Type: "stub"}).Error)

	provider := &stubProvider{
		accountType: "stub",
		result:      Success(),
		release:     make(chan struct{}),
	}
	service.Register(provider)

	const callers = 8
	started := make(chan struct{}, callers)
	var wg gosync.WaitGroup
	results := make([]Result, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			started <- struct{}{}
			results[i] = service.Sync(context.Background(), 1, "", "")
		}(i)
	}

	for i := 0; i < callers; i++ {
		<-started
	}
	close(provider.release)
	wg.Wait()

	for _, result := range results {
		assert.Equal(t, StatusSuccess, result.Status)
	}
	// Late callers may start a fresh flight after the first finished, but
	// two reconciliations for the same account must never overlap.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&provider.syncCalls), int32(1))
	assert.Zero(t, atomic.LoadInt32(&provider.overlaps))
}

func TestServiceSyncAll(t *testing.T) {
	service, db := setupService(t, "service_syncall")
	require.NoError(t, db.Create(&accountmodels.Account{ID: 1, Name: "a", Type: "stub"}).Error)
	require.NoError(t, db.Create(&accountmodels.Account{ID: 2, Name: "b", Type: "stub"}).Error)

	provider := &stubProvider{accountType: "stub", result: Success()}
	service.Register(provider)

	service.SyncAll(context.Background())
	assert.EqualValues(t, 2, atomic.LoadInt32(&provider.syncCalls))
}

func TestServiceMoveFeed(t *testing.T) {
	service, db := setupService(t, "service_move")
	require.NoError(t, db.Create(&accountmodels.Account{ID: 1, Name: "a", Type: "stub"}).Error)

	t.Run("Supported", func(t *testing.T) {
		provider := &stubProvider{accountType: "stub", caps: Capabilities{MoveSubscription: true}}
		service.Register(provider)

		require.NoError(t, service.MoveFeed(context.Background(), 1, "1$1", "1$a", "1$b"))
		assert.EqualValues(t, 1, atomic.LoadInt32(&provider.moveCalls))
	})

	t.Run("Unsupported", func(t *testing.T) {
		provider := &stubProvider{accountType: "stub"}
		service.Register(provider)

		err := service.MoveFeed(context.Background(), 1, "1$1", "1$a", "1$b")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not support moving")
		assert.Zero(t, atomic.LoadInt32(&provider.moveCalls))
	})
}

func TestProviderFor(t *testing.T) {
	service, _ := setupService(t, "service_providerfor")
	provider := &stubProvider{accountType: "stub"}
	service.Register(provider)

	got, err := service.ProviderFor("stub")
	require.NoError(t, err)
	assert.Same(t, provider, got)

	_, err = service.ProviderFor("missing")
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "success", StatusSuccess.String())
	assert.Equal(t, "retry", StatusRetry.String())
	assert.Equal(t, "failure", StatusFailure.String())
}
