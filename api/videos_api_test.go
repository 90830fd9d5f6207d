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
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/vidforge/vidforge"
	"github.com/vidforge/vidforge/api/middleware"
	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/database/mocks"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

func insufficientFundsErr() error {
	return apierror.NewAPIError(apierror.ErrInsufficientFunds, "insufficient credits", nil)
}

func notFoundErr() error {
	return apierror.NewAPIError(apierror.ErrNotFound, "not found", nil)
}

type TestRequest struct {
	Payload io.Reader
	Router  *gin.Engine
	Method  string
	Route   string
	Header  map[string]string
}

func SetUpTestRequest(s TestRequest) *httptest.ResponseRecorder {
	req := httptest.NewRequest(s.Method, s.Route, s.Payload)
	for key, value := range s.Header {
		req.Header.Set(key, value)
	}
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	s.Router.ServeHTTP(resp, req)
	return resp
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.MockDataSource) {
	t.Helper()
	config.MockConfig(&config.Configuration{
		Redis:      config.RedisConfig{Dns: "localhost:6379"},
		DataSource: config.DataSourceConfig{Dns: "postgres://postgres:@localhost:5432/vidforge?sslmode=disable"},
		Provider:   config.ProviderConfig{BaseUrl: "https://provider.test", CallbackUrl: "https://vidforge.test/callbacks/provider"},
		Ledger:     config.LedgerConfig{SignupBonus: 100},
	})
	ds := new(mocks.MockDataSource)
	engine, err := vidforge.NewVidforge(ds)
	if err != nil {
		t.Fatalf("engine setup failed: %v", err)
	}
	router := NewAPI(engine).Router()
	return router, ds
}

func accountHeader(accountID string) map[string]string {
	return map[string]string{middleware.AccountHeader: accountID}
}

func TestCreateVideo_MissingAccountHeader(t *testing.T) {
	router, _ := setupRouter(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"prompt": "a dog surfing", "duration": 5, "quality": "standard", "aspect_ratio": "16:9",
	})
	resp := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/videos",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestCreateVideo_MalformedBody(t *testing.T) {
	router, _ := setupRouter(t)

	resp := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBufferString(`{"prompt":`),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/videos",
		Header:  accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateVideo_MissingFields(t *testing.T) {
	router, _ := setupRouter(t)

	payload, _ := json.Marshal(map[string]interface{}{"prompt": "a dog surfing"})
	resp := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/videos",
		Header:  accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateVideo_InsufficientFunds(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetBalance", mock.Anything, "acc-1").
		Return(&model.Balance{AccountID: "acc-1", Balance: 3}, nil).Once()
	ds.On("ReserveCredits", mock.Anything, "acc-1", int64(10), mock.Anything, mock.Anything).
		Return(int64(0), insufficientFundsErr()).Once()

	payload, _ := json.Marshal(map[string]interface{}{
		"prompt": "a dog surfing", "duration": 5, "quality": "standard", "aspect_ratio": "16:9",
	})
	resp := SetUpTestRequest(TestRequest{
		Payload: bytes.NewBuffer(payload),
		Router:  router,
		Method:  http.MethodPost,
		Route:   "/videos",
		Header:  accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.Code)
	ds.AssertExpectations(t)
}

func TestGetVideo_OtherAccountLooksLikeMissing(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetTaskByID", mock.Anything, "task_abc").Return(&model.Task{
		TaskID:    "task_abc",
		AccountID: "acc-2",
		Status:    model.StatusProcessing,
	}, nil).Once()

	resp := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/videos/task_abc",
		Header: accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	ds.AssertExpectations(t)
}

func TestGetVideoStatus_TerminalServedWithoutPoll(t *testing.T) {
	router, ds := setupRouter(t)

	task := &model.Task{
		TaskID:    "task_abc",
		AccountID: "acc-1",
		Status:    model.StatusReady,
		VideoURL:  "https://cdn.vidforge.test/videos/acc-1/task_abc.mp4",
	}
	ds.On("GetTaskByID", mock.Anything, "task_abc").Return(task, nil).Twice()

	resp := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/videos/task_abc/status",
		Header: accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var view map[string]interface{}
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "completed", view["status"])
	assert.Equal(t, float64(100), view["progress"])
	ds.AssertExpectations(t)
}

func TestGetAllVideos(t *testing.T) {
	router, ds := setupRouter(t)

	ds.On("GetTasksByAccount", mock.Anything, "acc-1", 50, 0).
		Return([]model.Task{{TaskID: "task_abc", AccountID: "acc-1", Status: model.StatusProcessing}}, nil).Once()

	resp := SetUpTestRequest(TestRequest{
		Router: router,
		Method: http.MethodGet,
		Route:  "/videos",
		Header: accountHeader("acc-1"),
	})
	assert.Equal(t, http.StatusOK, resp.Code)

	var tasks []model.Task
	assert.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	assert.Len(t, tasks, 1)
	ds.AssertExpectations(t)
}
