package model

import (
	"time"
)

// Balance holds the spendable credit count for one account. It is mutated
// only through the ledger operations in the database layer, never read,
// modified and written back by callers.
type Balance struct {
	ID        int64     `json:"-"`
	AccountID string    `json:"account_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
