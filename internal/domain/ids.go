// Package domain contains the business types and rules of the auction
// platform's OTP and reporting core. Adapters depend on it, never the reverse.
package domain

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// NewSessionID returns an opaque OTP session handle. UUIDv7 combines a
// millisecond timestamp with random bits, so handles are unique and sortable.
func NewSessionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return SessionIDPrefix + id.String(), nil
}

// AuctionID identifies an auction row.
type AuctionID int64

// ParseAuctionID parses a path parameter into an AuctionID.
func ParseAuctionID(raw string) (AuctionID, error) {
	n, err := parsePositiveInt(raw)
	if err != nil {
		return 0, fmt.Errorf("auction ID %q: %w", raw, err)
	}
	return AuctionID(n), nil
}

func (id AuctionID) Int64() int64   { return int64(id) }
func (id AuctionID) String() string { return strconv.FormatInt(int64(id), 10) }

// UserID identifies a user row.
type UserID int64

// ParseUserID parses a query parameter into a UserID.
func ParseUserID(raw string) (UserID, error) {
	n, err := parsePositiveInt(raw)
	if err != nil {
		return 0, fmt.Errorf("user ID %q: %w", raw, err)
	}
	return UserID(n), nil
}

func (id UserID) Int64() int64   { return int64(id) }
func (id UserID) String() string { return strconv.FormatInt(int64(id), 10) }

func parsePositiveInt(raw string) (int64, error) {
	if raw == "" {
		return 0, ErrEmptyID
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidID
	}
	return n, nil
}
