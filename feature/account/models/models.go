package models

import (
	"encoding/json"
	"fmt"
)

// Account types supported by the sync engine. The type tag selects which
// provider implementation drives the account's sync.
const (
	TypeFeedbin = "feedbin"
)

// Account identifies a configured connection to one remote provider.
type Account struct {
	ID   int    `gorm:"column:id;primaryKey;autoIncrement"`
	Name string `gorm:"column:name"`
	Type string `gorm:"column:type"`
	// SecurityKey is an opaque blob carrying provider-specific credentials.
	// The sync engine only ever consumes the decoded fields.
	SecurityKey string `gorm:"column:security_key"`
	// LastSyncedAt is the entries cursor: the `since` value handed to the
	// provider on the next incremental fetch. Stored as the provider's own
	// timestamp string so no precision is lost round-tripping it.
	LastSyncedAt string `gorm:"column:last_synced_at"`
}

// TableName overrides the table name.
func (Account) TableName() string {
	return "account"
}

// Credentials are the provider-specific fields decoded from an account's
// security key blob.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// DecodeCredentials decodes an account's security key blob.
func DecodeCredentials(securityKey string) (Credentials, error) {
	var c Credentials
	if securityKey == "" {
		return c, fmt.Errorf("account has no credentials")
	}
	if err := json.Unmarshal([]byte(securityKey), &c); err != nil {
		return c, fmt.Errorf("failed to decode security key: %w", err)
	}
	if c.Username == "" {
		return c, fmt.Errorf("security key is missing a username")
	}
	return c, nil
}

// EncodeCredentials encodes provider credentials into a security key blob.
func EncodeCredentials(c Credentials) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to encode security key: %w", err)
	}
	return string(data), nil
}
