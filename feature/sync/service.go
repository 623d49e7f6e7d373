package sync

import (
	"context"
	"fmt"
	"strconv"

	"feedsync/feature/account"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Status is the outcome class of one sync invocation, mapped by the
// trigger (scheduler or HTTP caller) to its own retry policy.
type Status int

const (
	// StatusSuccess means local state now matches remote state.
	StatusSuccess Status = iota
	// StatusRetry means a transient failure; the trigger may retry later.
	StatusRetry
	// StatusFailure means a terminal failure for this invocation.
	StatusFailure
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRetry:
		return "retry"
	default:
		return "failure"
	}
}

// Result is the outcome of one sync invocation.
type Result struct {
	Status Status
	Reason string
}

// Success returns a successful result.
func Success() Result {
	return Result{Status: StatusSuccess}
}

// Retry returns a retriable result with the failure reason.
func Retry(reason string) Result {
	return Result{Status: StatusRetry, Reason: reason}
}

// Failure returns a terminal result with the failure reason.
func Failure(reason string) Result {
	return Result{Status: StatusFailure, Reason: reason}
}

// Capabilities are the mutation operations a provider supports. Collaborators
// consult them to gate actions; the service refuses unsupported mutations.
type Capabilities struct {
	ImportSubscription bool
	AddSubscription    bool
	MoveSubscription   bool
	DeleteSubscription bool
	UpdateSubscription bool
}

// Provider is the provider-agnostic sync contract. One implementation
// exists per provider type, selected at runtime from the account's type tag.
type Provider interface {
	// Type returns the account type tag this provider serves.
	Type() string
	// Capabilities reports which mutations the provider supports.
	Capabilities() Capabilities
	// ValidCredentials checks the account's credentials against the remote.
	ValidCredentials(ctx context.Context, accountID int) (bool, error)
	// ClearAuthorization evicts any cached authorization for the account so
	// the next call re-authenticates.
	ClearAuthorization(accountID int)
	// Sync drives one account's synchronization. The optional feedID and
	// groupID scope a partial resync to one feed or one group.
	Sync(ctx context.Context, accountID int, feedID, groupID string) Result
	// MoveFeed moves a feed between groups in the local store, keeping the
	// legacy single-group field in line. Remote tag assignments are not
	// mutated.
	MoveFeed(ctx context.Context, accountID int, feedID, fromGroupID, toGroupID string) error
}

// Service dispatches sync invocations to the provider implementation
// matching the account's type. Concurrent invocations for the same account
// are collapsed through a single-flight group so at most one reconciliation
// per account runs at a time.
type Service struct {
	providers map[string]Provider
	accounts  *account.Service
	logger    *zap.Logger
	flight    singleflight.Group
}

// NewService creates a sync service with no registered providers.
func NewService(accounts *account.Service, logger *zap.Logger) *Service {
	return &Service{
		providers: make(map[string]Provider),
		accounts:  accounts,
		logger:    logger,
	}
}

// Accounts exposes the account service backing this dispatcher.
func (s *Service) Accounts() *account.Service {
	return s.accounts
}

// Register adds a provider implementation to the dispatch table.
func (s *Service) Register(p Provider) {
	s.providers[p.Type()] = p
}

// ProviderFor resolves the provider implementation for an account type.
func (s *Service) ProviderFor(accountType string) (Provider, error) {
	p, ok := s.providers[accountType]
	if !ok {
		return nil, fmt.Errorf("no provider registered for account type %q", accountType)
	}
	return p, nil
}

// Sync synchronizes one account. Precondition failures (unknown account,
// unregistered provider type) are terminal; everything else is classified
// by the provider implementation.
func (s *Service) Sync(ctx context.Context, accountID int, feedID, groupID string) Result {
	acct, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return Failure(err.Error())
	}

	provider, err := s.ProviderFor(acct.Type)
	if err != nil {
		return Failure(err.Error())
	}

	// Single-flight per account: a user-triggered partial sync arriving
	// while a scheduled full sync runs shares the running invocation's
	// result instead of reconciling concurrently.
	v, _, shared := s.flight.Do(strconv.Itoa(accountID), func() (any, error) {
		return provider.Sync(ctx, accountID, feedID, groupID), nil
	})
	result := v.(Result)

	l := s.logger.With(
		zap.Int("account_id", accountID),
		zap.String("status", result.Status.String()),
		zap.Bool("shared", shared),
	)
	if result.Status == StatusSuccess {
		l.Info("Sync finished")
	} else {
		l.Warn("Sync did not succeed", zap.String("reason", result.Reason))
	}

	return result
}

// SyncAll runs a full sync for every configured account, one goroutine per
// account. Used by the background scheduler.
func (s *Service) SyncAll(ctx context.Context) {
	accounts, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		s.logger.Error("Failed to list accounts for scheduled sync", zap.Error(err))
		return
	}

	done := make(chan struct{}, len(accounts))
	for _, acct := range accounts {
		go func(id int) {
			defer func() { done <- struct{}{} }()
			s.Sync(ctx, id, "", "")
		}(acct.ID)
	}
	for range accounts {
		<-done
	}
}

// MoveFeed moves a feed between groups, refusing when the account's
// provider reports the move capability as unsupported.
func (s *Service) MoveFeed(ctx context.Context, accountID int, feedID, fromGroupID, toGroupID string) error {
	acct, err := s.accounts.GetAccountByID(ctx, accountID)
	if err != nil {
		return err
	}

	provider, err := s.ProviderFor(acct.Type)
	if err != nil {
		return err
	}

	if !provider.Capabilities().MoveSubscription {
		return fmt.Errorf("provider %s does not support moving subscriptions", provider.Type())
	}

	return provider.MoveFeed(ctx, accountID, feedID, fromGroupID, toGroupID)
}
