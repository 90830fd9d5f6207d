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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/vidforge/vidforge/database/mocks"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

func TestGetOrCreateBalance_ProvisionsWithSignupBonus(t *testing.T) {
	ds := new(mocks.MockDataSource)
	engine := newTestEngine(t, ds, &fakeProvider{}, &fakeUploader{})

	ds.On("GetBalance", mock.Anything, "acc-1").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "balance not found", nil)).Once()
	ds.On("CreateBalance", mock.Anything, "acc-1", int64(100)).
		Return(&model.Balance{AccountID: "acc-1", Balance: 100}, nil).Once()

	balance, err := engine.GetOrCreateBalance(context.Background(), "acc-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(100), balance.Balance)
	ds.AssertExpectations(t)
}

func TestGetOrCreateBalance_LosesProvisioningRace(t *testing.T) {
	ds := new(mocks.MockDataSource)
	engine := newTestEngine(t, ds, &fakeProvider{}, &fakeUploader{})

	ds.On("GetBalance", mock.Anything, "acc-1").
		Return(nil, apierror.NewAPIError(apierror.ErrNotFound, "balance not found", nil)).Once()
	ds.On("CreateBalance", mock.Anything, "acc-1", int64(100)).
		Return(nil, apierror.NewAPIError(apierror.ErrConflict, "balance already exists", nil)).Once()
	ds.On("GetBalance", mock.Anything, "acc-1").
		Return(&model.Balance{AccountID: "acc-1", Balance: 42}, nil).Once()

	balance, err := engine.GetOrCreateBalance(context.Background(), "acc-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), balance.Balance)
	ds.AssertExpectations(t)
}

func TestCreditAccount_RejectsUsageType(t *testing.T) {
	ds := new(mocks.MockDataSource)
	engine := newTestEngine(t, ds, &fakeProvider{}, &fakeUploader{})

	_, err := engine.CreditAccount(context.Background(), "acc-1", 50, model.EntryTypeUsage, "top up", "")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
	ds.AssertNotCalled(t, "AddCredits", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreditAccount_Purchase(t *testing.T) {
	ds := new(mocks.MockDataSource)
	engine := newTestEngine(t, ds, &fakeProvider{}, &fakeUploader{})

	ds.On("GetBalance", mock.Anything, "acc-1").
		Return(&model.Balance{AccountID: "acc-1", Balance: 10}, nil).Once()
	ds.On("AddCredits", mock.Anything, "acc-1", int64(500), model.EntryTypePurchase,
		"starter pack (ref pay_789)", "", "").Return(int64(510), nil).Once()

	newBalance, err := engine.CreditAccount(context.Background(), "acc-1", 500, model.EntryTypePurchase, "starter pack", "pay_789")
	assert.NoError(t, err)
	assert.Equal(t, int64(510), newBalance)
	ds.AssertExpectations(t)
}

func TestLedgerHistory_ClampsPagination(t *testing.T) {
	ds := new(mocks.MockDataSource)
	engine := newTestEngine(t, ds, &fakeProvider{}, &fakeUploader{})

	ds.On("GetLedgerEntries", mock.Anything, "acc-1", 50, 0).
		Return([]model.LedgerEntry{}, nil).Once()

	_, err := engine.LedgerHistory(context.Background(), "acc-1", -5, -2)
	assert.NoError(t, err)
	ds.AssertExpectations(t)
}
