package account

import (
	"context"
	"errors"
	"fmt"

	"feedsync/feature/account/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no account matches the requested id.
var ErrNotFound = errors.New("account not found")

// Service provides account lookup for the sync engine.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new account service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// GetAccountByID resolves an account by its id.
func (s *Service) GetAccountByID(ctx context.Context, id int) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account %d: %w", id, err)
	}
	return &acct, nil
}

// GetCurrentAccount returns the most recently created account. Single-user
// deployments have exactly one; the sync CLI uses this when no id is given.
func (s *Service) GetCurrentAccount(ctx context.Context) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).Order("id DESC").Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no accounts configured", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query current account: %w", err)
	}
	return &acct, nil
}

// ListAccounts returns every configured account.
func (s *Service) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	if err := s.db.WithContext(ctx).Order("id").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// CreateAccount stores a new provider account with encoded credentials.
func (s *Service) CreateAccount(ctx context.Context, name, accountType string, creds models.Credentials) (*models.Account, error) {
	key, err := models.EncodeCredentials(creds)
	if err != nil {
		return nil, err
	}

	acct := models.Account{
		Name:        name,
		Type:        accountType,
		SecurityKey: key,
	}
	if err := s.db.WithContext(ctx).Create(&acct).Error; err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.logger.Info("Account created",
		zap.Int("account_id", acct.ID),
		zap.String("type", acct.Type),
	)
	return &acct, nil
}

// UpdateCursor stores the entries cursor reached by a completed sync.
func (s *Service) UpdateCursor(ctx context.Context, accountID int, cursor string) error {
	err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("last_synced_at", cursor).Error
	if err != nil {
		return fmt.Errorf("failed to update sync cursor for account %d: %w", accountID, err)
	}
	return nil
}

// DeleteAccount removes an account. The junction table's foreign keys
// cascade, and the store's remaining per-account rows are removed by the
// feeds store in the same transaction boundary as the account row.
func (s *Service) DeleteAccount(ctx context.Context, accountID int) error {
	err := s.db.WithContext(ctx).Where("id = ?", accountID).Delete(&models.Account{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete account %d: %w", accountID, err)
	}
	return nil
}
