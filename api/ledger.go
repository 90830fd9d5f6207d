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
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/vidforge/vidforge/api/model"
	"github.com/vidforge/vidforge/api/middleware"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

// GetBalance returns the account's current credit count, provisioning the
// account on first contact.
func (a Api) GetBalance(c *gin.Context) {
	accountID := c.GetHeader(middleware.AccountHeader)
	balance, err := a.vidforge.Balance(c.Request.Context(), accountID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account_id": accountID, "balance": balance})
}

// GetLedgerHistory returns the account's ledger entries newest first.
func (a Api) GetLedgerHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := a.vidforge.LedgerHistory(c.Request.Context(), c.GetHeader(middleware.AccountHeader), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

// TopUpCredits credits the account with purchased or granted credits.
func (a Api) TopUpCredits(c *gin.Context) {
	var topUp model2.TopUpCredits
	if err := c.ShouldBindJSON(&topUp); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := topUp.ValidateTopUpCredits(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	entryType := topUp.Type
	if entryType == "" {
		entryType = model.EntryTypePurchase
	}
	accountID := c.GetHeader(middleware.AccountHeader)
	newBalance, err := a.vidforge.CreditAccount(c.Request.Context(), accountID,
		topUp.Amount, entryType, topUp.Description, topUp.Reference)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account_id": accountID, "balance": newBalance})
}
