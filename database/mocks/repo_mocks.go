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
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vidforge/vidforge/model"
)

// MockDataSource is a mock implementation of the IDataSource interface
type MockDataSource struct {
	mock.Mock
}

// Ledger methods

func (m *MockDataSource) CreateBalance(ctx context.Context, accountID string, initial int64) (*model.Balance, error) {
	args := m.Called(ctx, accountID, initial)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Balance), args.Error(1)
}

func (m *MockDataSource) GetBalance(ctx context.Context, accountID string) (*model.Balance, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Balance), args.Error(1)
}

func (m *MockDataSource) ReserveCredits(ctx context.Context, accountID string, amount int64, description, taskID string) (int64, error) {
	args := m.Called(ctx, accountID, amount, description, taskID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) AddCredits(ctx context.Context, accountID string, amount int64, entryType, description, taskID, assetID string) (int64, error) {
	args := m.Called(ctx, accountID, amount, entryType, description, taskID, assetID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDataSource) GetLedgerEntries(ctx context.Context, accountID string, limit, offset int) ([]model.LedgerEntry, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LedgerEntry), args.Error(1)
}

// Task methods

func (m *MockDataSource) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetTaskByID(ctx context.Context, taskID string) (*model.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetTaskByCorrelationID(ctx context.Context, correlationID string) (*model.Task, error) {
	args := m.Called(ctx, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockDataSource) GetTasksByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Task, error) {
	args := m.Called(ctx, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockDataSource) SetTaskCorrelationID(ctx context.Context, taskID, correlationID string) error {
	args := m.Called(ctx, taskID, correlationID)
	return args.Error(0)
}

func (m *MockDataSource) TransitionToReady(ctx context.Context, taskID string, asset *model.Asset) (bool, error) {
	args := m.Called(ctx, taskID, asset)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) TransitionToFailed(ctx context.Context, taskID, reason string) (bool, error) {
	args := m.Called(ctx, taskID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockDataSource) TouchProcessing(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockDataSource) GetStuckTasks(ctx context.Context, olderThan time.Time) ([]model.Task, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

// Asset methods

func (m *MockDataSource) GetAssetByTaskID(ctx context.Context, taskID string) (*model.Asset, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Asset), args.Error(1)
}
