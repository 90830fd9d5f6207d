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

package database

import (
	"context"
	"time"

	"github.com/vidforge/vidforge/model"
)

// IDataSource defines the interface for data source operations, grouping related functionalities.
type IDataSource interface {
	ledger
	task
	asset
}

// ledger defines the atomic balance mutations and the append-only entry log.
type ledger interface {
	CreateBalance(ctx context.Context, accountID string, initial int64) (*model.Balance, error)
	GetBalance(ctx context.Context, accountID string) (*model.Balance, error)
	ReserveCredits(ctx context.Context, accountID string, amount int64, description, taskID string) (int64, error)
	AddCredits(ctx context.Context, accountID string, amount int64, entryType, description, taskID, assetID string) (int64, error)
	GetLedgerEntries(ctx context.Context, accountID string, limit, offset int) ([]model.LedgerEntry, error)
}

// task defines the durable task registry and its idempotent state machine.
type task interface {
	CreateTask(ctx context.Context, task *model.Task) (*model.Task, error)
	GetTaskByID(ctx context.Context, taskID string) (*model.Task, error)
	GetTaskByCorrelationID(ctx context.Context, correlationID string) (*model.Task, error)
	GetTasksByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Task, error)
	SetTaskCorrelationID(ctx context.Context, taskID, correlationID string) error
	TransitionToReady(ctx context.Context, taskID string, asset *model.Asset) (bool, error)
	TransitionToFailed(ctx context.Context, taskID, reason string) (bool, error)
	TouchProcessing(ctx context.Context, taskID string) error
	GetStuckTasks(ctx context.Context, olderThan time.Time) ([]model.Task, error)
}

// asset defines read access to materialized assets; writes happen inside
// TransitionToReady so the asset row and the terminal status commit together.
type asset interface {
	GetAssetByTaskID(ctx context.Context, taskID string) (*model.Asset, error)
}
