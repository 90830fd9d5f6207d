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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5001"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"VIDFORGE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"VIDFORGE_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"VIDFORGE_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"VIDFORGE_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"VIDFORGE_REDIS_DNS"`
}

// ProviderConfig describes the external generation service and the local
// guards wrapped around it.
type ProviderConfig struct {
	BaseUrl            string `json:"base_url" envconfig:"VIDFORGE_PROVIDER_BASE_URL"`
	ApiKey             string `json:"api_key" envconfig:"VIDFORGE_PROVIDER_API_KEY"`
	CallbackUrl        string `json:"callback_url" envconfig:"VIDFORGE_PROVIDER_CALLBACK_URL"`
	TimeoutSec         int    `json:"timeout_sec" envconfig:"VIDFORGE_PROVIDER_TIMEOUT_SEC"`
	MaxRetries         int    `json:"max_retries" envconfig:"VIDFORGE_PROVIDER_MAX_RETRIES"`
	BreakerFailures    int    `json:"breaker_failures" envconfig:"VIDFORGE_PROVIDER_BREAKER_FAILURES"`
	BreakerCooldownSec int    `json:"breaker_cooldown_sec" envconfig:"VIDFORGE_PROVIDER_BREAKER_COOLDOWN_SEC"`
}

type StorageConfig struct {
	AwsAccessKeyId     string `json:"aws_access_key_id" envconfig:"VIDFORGE_AWS_ACCESS_KEY_ID"`
	AwsSecretAccessKey string `json:"aws_secret_access_key" envconfig:"VIDFORGE_AWS_SECRET_ACCESS_KEY"`
	S3Endpoint         string `json:"s3_endpoint" envconfig:"VIDFORGE_S3_ENDPOINT"`
	S3BucketName       string `json:"s3_bucket_name" envconfig:"VIDFORGE_S3_BUCKET_NAME"`
	S3Region           string `json:"s3_region" envconfig:"VIDFORGE_S3_REGION"`
	StagingDir         string `json:"staging_dir" envconfig:"VIDFORGE_STAGING_DIR"`
	DownloadTimeoutSec int    `json:"download_timeout_sec" envconfig:"VIDFORGE_DOWNLOAD_TIMEOUT_SEC"`
}

// SweeperConfig controls the orphan sweeper. Interval is a cron "@every"
// duration string; StaleAfterMin is how long a task may stay in processing
// before it is compensated.
type SweeperConfig struct {
	Interval       string `json:"interval" envconfig:"VIDFORGE_SWEEPER_INTERVAL"`
	StaleAfterMin  int    `json:"stale_after_min" envconfig:"VIDFORGE_SWEEPER_STALE_AFTER_MIN"`
	LockTimeoutSec int    `json:"lock_timeout_sec" envconfig:"VIDFORGE_SWEEPER_LOCK_TIMEOUT_SEC"`
}

type LedgerConfig struct {
	SignupBonus int64 `json:"signup_bonus" envconfig:"VIDFORGE_LEDGER_SIGNUP_BONUS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"VIDFORGE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"VIDFORGE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"VIDFORGE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"VIDFORGE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Provider     ProviderConfig   `json:"provider"`
	Storage      StorageConfig    `json:"storage"`
	Sweeper      SweeperConfig    `json:"sweeper"`
	Ledger       LedgerConfig     `json:"ledger"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("vidforge", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called vidforge.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Vidforge Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Provider.BaseUrl == "" {
		log.Println("Error: Provider base URL is empty. It's a required field.")
		return errors.New("provider base URL is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Provider.BaseUrl = strings.TrimSpace(cnf.Provider.BaseUrl)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Provider.TimeoutSec <= 0 {
		cnf.Provider.TimeoutSec = 30
	}
	// MaxRetries is converted to uint64 for the backoff policy, so a
	// negative value must not survive defaulting.
	if cnf.Provider.MaxRetries <= 0 {
		cnf.Provider.MaxRetries = 3
	}
	if cnf.Provider.BreakerFailures <= 0 {
		cnf.Provider.BreakerFailures = 3
	}
	if cnf.Provider.BreakerCooldownSec <= 0 {
		cnf.Provider.BreakerCooldownSec = 30
	}

	if cnf.Storage.StagingDir == "" {
		cnf.Storage.StagingDir = os.TempDir()
	}
	if cnf.Storage.DownloadTimeoutSec == 0 {
		cnf.Storage.DownloadTimeoutSec = 300
	}

	if cnf.Sweeper.Interval == "" {
		cnf.Sweeper.Interval = "10m"
	}
	if cnf.Sweeper.StaleAfterMin == 0 {
		cnf.Sweeper.StaleAfterMin = 60
	}
	if cnf.Sweeper.LockTimeoutSec == 0 {
		cnf.Sweeper.LockTimeoutSec = 120
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
