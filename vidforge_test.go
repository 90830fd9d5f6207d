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
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/database/mocks"
	"github.com/vidforge/vidforge/internal/provider"
	"github.com/vidforge/vidforge/model"
)

type fakeProvider struct {
	mu          sync.Mutex
	submitCalls int
	pollCalls   int
	submitFn    func(ctx context.Context, params model.GenerationParams) (*provider.SubmitResult, error)
	pollFn      func(ctx context.Context, correlationID string) (*provider.PollResult, error)
}

func (f *fakeProvider) Submit(ctx context.Context, params model.GenerationParams) (*provider.SubmitResult, error) {
	f.mu.Lock()
	f.submitCalls++
	f.mu.Unlock()
	if f.submitFn == nil {
		return &provider.SubmitResult{CorrelationID: "prov-123", ProviderStatus: "queued"}, nil
	}
	return f.submitFn(ctx, params)
}

func (f *fakeProvider) PollStatus(ctx context.Context, correlationID string) (*provider.PollResult, error) {
	f.mu.Lock()
	f.pollCalls++
	f.mu.Unlock()
	if f.pollFn == nil {
		return &provider.PollResult{Status: provider.StatusProcessing, Progress: 40}, nil
	}
	return f.pollFn(ctx, correlationID)
}

type fakeUploader struct {
	mu       sync.Mutex
	keys     []string
	uploadFn func(ctx context.Context, key, filePath, contentType string) (string, error)
}

func (f *fakeUploader) Upload(ctx context.Context, key, filePath, contentType string) (string, error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()
	if f.uploadFn == nil {
		return "https://cdn.vidforge.test/" + key, nil
	}
	return f.uploadFn(ctx, key, filePath, contentType)
}

func newTestEngine(t *testing.T, ds *mocks.MockDataSource, prov *fakeProvider, up *fakeUploader) *Vidforge {
	t.Helper()
	config.MockConfig(&config.Configuration{
		Ledger: config.LedgerConfig{SignupBonus: 100},
		Sweeper: config.SweeperConfig{
			Interval:       "10m",
			StaleAfterMin:  60,
			LockTimeoutSec: 120,
		},
	})
	return &Vidforge{
		datasource: ds,
		provider:   prov,
		uploader:   up,
		downloader: &http.Client{Timeout: 5 * time.Second},
		stagingDir: t.TempDir(),
	}
}

func validParams() model.GenerationParams {
	return model.GenerationParams{
		Prompt:      "a lighthouse in a storm",
		Duration:    10,
		Quality:     "standard",
		AspectRatio: "16:9",
	}
}

func processingTask(accountID string) *model.Task {
	task := model.NewTask(accountID, validParams(), 18)
	task.CorrelationID = "prov-123"
	return task
}
