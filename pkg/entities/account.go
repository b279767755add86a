package entities

import (
	"time"
)

// Account represents a player's arena profile and token balance
type Account struct {
	UserID      string    // Transport user ID
	Tokens      int64     // Current balance, never negative
	Rating      int       // Starts at 1000, unbounded in both directions
	Wins        int       // Decisive 1v1 wins
	Losses      int       // Decisive 1v1 losses
	CreatedAt   time.Time // When the account was first seen
	LastUpdated time.Time // When the account was last updated
}

// DefaultRating is the rating every new account starts with
const DefaultRating = 1000

// NewAccount creates an account with the given starting balance
func NewAccount(userID string, tokens int64) *Account {
	now := time.Now()
	return &Account{
		UserID:      userID,
		Tokens:      tokens,
		Rating:      DefaultRating,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// RecordDelta describes a win/loss/rating change applied atomically to an account
type RecordDelta struct {
	Wins   int
	Losses int
	Rating int
}
