/*
Copyright 2025 Vidforge Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package vidforge

import (
	"context"
	"fmt"

	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

// GetOrCreateBalance returns the account's balance, provisioning it with the
// configured signup bonus on first contact.
func (l *Vidforge) GetOrCreateBalance(ctx context.Context, accountID string) (*model.Balance, error) {
	balance, err := l.datasource.GetBalance(ctx, accountID)
	if err == nil {
		return balance, nil
	}
	apiErr, ok := err.(apierror.APIError)
	if !ok || apiErr.Code != apierror.ErrNotFound {
		return nil, err
	}

	var bonus int64
	if cnf, cfgErr := config.Fetch(); cfgErr == nil {
		bonus = cnf.Ledger.SignupBonus
	}
	balance, err = l.datasource.CreateBalance(ctx, accountID, bonus)
	if err != nil {
		// Lost a provisioning race: another request created the row first.
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrConflict {
			return l.datasource.GetBalance(ctx, accountID)
		}
		return nil, err
	}
	return balance, nil
}

// Balance returns the current credit count for an account.
func (l *Vidforge) Balance(ctx context.Context, accountID string) (int64, error) {
	balance, err := l.GetOrCreateBalance(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return balance.Balance, nil
}

// CreditAccount is the generic top-up path for purchases and bonuses. It is
// not used by the orchestration flow itself but shares the same atomic
// update contract as reserve and refund.
func (l *Vidforge) CreditAccount(ctx context.Context, accountID string, amount int64, entryType, description, externalRef string) (int64, error) {
	switch entryType {
	case model.EntryTypePurchase, model.EntryTypeBonus, model.EntryTypeRefund:
	default:
		return 0, apierror.NewAPIError(apierror.ErrInvalidInput, "unsupported credit entry type", entryType)
	}
	if _, err := l.GetOrCreateBalance(ctx, accountID); err != nil {
		return 0, err
	}
	if externalRef != "" {
		description = fmt.Sprintf("%s (ref %s)", description, externalRef)
	}
	return l.datasource.AddCredits(ctx, accountID, amount, entryType, description, "", "")
}

// LedgerHistory returns the account's entries newest first.
func (l *Vidforge) LedgerHistory(ctx context.Context, accountID string, limit, offset int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return l.datasource.GetLedgerEntries(ctx, accountID, limit, offset)
}
