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

package model

import "time"

// Entry types. Usage entries carry negative amounts, every other type is
// positive. Corrections are made by appending a compensating entry, never by
// mutating or deleting an existing one.
const (
	EntryTypeUsage    = "usage"
	EntryTypeRefund   = "refund"
	EntryTypePurchase = "purchase"
	EntryTypeBonus    = "bonus"
)

// LedgerEntry is one immutable audit record of a balance change. TaskID and
// AssetID are optional back-references for debugging; the owning Task never
// links the other way.
type LedgerEntry struct {
	ID          int64     `json:"-"`
	EntryID     string    `json:"entry_id"`
	AccountID   string    `json:"account_id"`
	Amount      int64     `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	TaskID      string    `json:"task_id,omitempty"`
	AssetID     string    `json:"asset_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
