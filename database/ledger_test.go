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
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

func TestCreateBalance_WithSignupBonus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO balances").
		WithArgs("acc_1", int64(50)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(1, time.Now(), time.Now()))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", int64(50), model.EntryTypeBonus, "signup bonus").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	balance, err := ds.CreateBalance(context.Background(), "acc_1", 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance.Balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBalance_Conflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO balances").
		WithArgs("acc_1", int64(0)).
		WillReturnError(pqError("23505"))
	mock.ExpectRollback()

	_, err = ds.CreateBalance(context.Background(), "acc_1", 0)
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrConflict, apiErr.Code)
}

func TestReserveCredits_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE balances").
		WithArgs("acc_1", int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(0)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", int64(-20), model.EntryTypeUsage, "video generation", "task_abc").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	newBalance, err := ds.ReserveCredits(context.Background(), "acc_1", 20, "video generation", "task_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(0), newBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveCredits_InsufficientFunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE balances").
		WithArgs("acc_1", int64(20)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc_1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err = ds.ReserveCredits(context.Background(), "acc_1", 20, "video generation", "task_abc")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrInsufficientFunds, apiErr.Code)
}

func TestReserveCredits_AccountMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE balances").
		WithArgs("acc_missing", int64(20)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("acc_missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	_, err = ds.ReserveCredits(context.Background(), "acc_missing", 20, "video generation", "")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestReserveCredits_RejectsNonPositiveAmount(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	_, err = ds.ReserveCredits(context.Background(), "acc_1", 0, "noop", "")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrInvalidInput, apiErr.Code)
}

func TestAddCredits_Refund(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE balances").
		WithArgs("acc_1", int64(20)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(20)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WithArgs(sqlmock.AnyArg(), "acc_1", int64(20), model.EntryTypeRefund, "compensation", "task_abc", "").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	newBalance, err := ds.AddCredits(context.Background(), "acc_1", 20, model.EntryTypeRefund, "compensation", "task_abc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(20), newBalance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBalance_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT id, account_id, balance").
		WithArgs("acc_ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = ds.GetBalance(context.Background(), "acc_ghost")
	require.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	require.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestGetLedgerEntries_NewestFirst(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	now := time.Now()
	mock.ExpectQuery("SELECT id, entry_id, account_id").
		WithArgs("acc_1", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "entry_id", "account_id", "amount", "type", "description", "task_id", "asset_id", "created_at"}).
			AddRow(2, "ent_2", "acc_1", int64(20), model.EntryTypeRefund, "compensation", "task_abc", "", now).
			AddRow(1, "ent_1", "acc_1", int64(-20), model.EntryTypeUsage, "video generation", "task_abc", "", now.Add(-time.Minute)))

	entries, err := ds.GetLedgerEntries(context.Background(), "acc_1", 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "ent_2", entries[0].EntryID)
	// Conservation check over the returned window: refund cancels usage.
	var sum int64
	for _, e := range entries {
		sum += e.Amount
	}
	assert.Equal(t, int64(0), sum)
}
