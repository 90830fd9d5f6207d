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

// Package vidforge orchestrates video-generation tasks against an external
// provider and keeps the credit ledger consistent with task outcomes.
package vidforge

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vidforge/vidforge/config"
	"github.com/vidforge/vidforge/database"
	"github.com/vidforge/vidforge/internal/provider"
	"github.com/vidforge/vidforge/internal/storage"
	"github.com/vidforge/vidforge/model"
)

// ProviderClient is the slice of the provider API the orchestrator needs.
// Satisfied by *provider.Client; faked in tests.
type ProviderClient interface {
	Submit(ctx context.Context, params model.GenerationParams) (*provider.SubmitResult, error)
	PollStatus(ctx context.Context, correlationID string) (*provider.PollResult, error)
}

// Vidforge represents the main struct for the orchestration engine.
type Vidforge struct {
	datasource database.IDataSource
	provider   ProviderClient
	uploader   storage.Uploader
	redis      redis.UniversalClient
	downloader *http.Client
	stagingDir string
}

// NewVidforge initializes the engine from the loaded configuration: the
// provider client (with its own breaker state), the S3 uploader, the Redis
// client used by the sweeper lock, and the bounded-timeout download client.
func NewVidforge(db database.IDataSource) (*Vidforge, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	providerClient := provider.NewClient(configuration.Provider, nil)

	uploader, err := storage.NewS3Store(context.Background(), configuration.Storage)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{Addr: configuration.Redis.Dns})

	downloader := &http.Client{
		Timeout: time.Duration(configuration.Storage.DownloadTimeoutSec) * time.Second,
	}

	return &Vidforge{
		datasource: db,
		provider:   providerClient,
		uploader:   uploader,
		redis:      redisClient,
		downloader: downloader,
		stagingDir: configuration.Storage.StagingDir,
	}, nil
}
