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

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Task lifecycle states. A task is created in StatusProcessing before the
// provider has confirmed anything, so in-flight spend is never untracked.
// StatusReady and StatusFailed are terminal; no transition leaves them.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// GenerationParams are the caller-supplied parameters for one video
// generation request.
type GenerationParams struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspect_ratio"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Validate checks the parameter combination locally, before any credit is
// reserved or any provider call is made.
func (p GenerationParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Prompt, validation.Required, validation.Length(1, 2000)),
		validation.Field(&p.Duration, validation.Required, validation.In(5, 10, 15)),
		validation.Field(&p.Quality, validation.Required, validation.In("standard", "high")),
		validation.Field(&p.AspectRatio, validation.Required, validation.In("16:9", "9:16", "1:1")),
		validation.Field(&p.ImageURL, is.URL),
	)
}

// creditPrices maps duration seconds to the standard-quality credit cost.
// High quality doubles the standard price.
var creditPrices = map[int]int64{
	5:  10,
	10: 18,
	15: 25,
}

// CostFor computes the credit cost for a duration/quality combination. The
// result is computed exactly once, at submission, and denormalized onto the
// Task; compensation always refunds the stored amount, never a re-derived
// one.
func CostFor(duration int, quality string) (int64, error) {
	price, ok := creditPrices[duration]
	if !ok {
		return 0, fmt.Errorf("unsupported duration: %d", duration)
	}
	switch quality {
	case "standard":
		return price, nil
	case "high":
		return price * 2, nil
	default:
		return 0, fmt.Errorf("unsupported quality: %s", quality)
	}
}

// Task represents one generation request from reservation to terminal state.
// CorrelationID is empty until the provider accepts the request. CostCharged
// is fixed at creation time and is the exact amount a compensating refund
// returns.
type Task struct {
	ID            int64            `json:"-"`
	TaskID        string           `json:"task_id"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	AccountID     string           `json:"account_id"`
	Params        GenerationParams `json:"params"`
	Status        string           `json:"status"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	CostCharged   int64            `json:"cost_charged"`
	VideoURL      string           `json:"video_url,omitempty"`
	ThumbnailURL  string           `json:"thumbnail_url,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewTask builds a processing task with a fresh id. The caller persists it.
func NewTask(accountID string, params GenerationParams, cost int64) *Task {
	now := time.Now()
	return &Task{
		TaskID:      GenerateUUIDWithSuffix("task"),
		AccountID:   accountID,
		Params:      params,
		Status:      StatusProcessing,
		CostCharged: cost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTerminal reports whether the task has reached a state no transition may
// leave.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusReady || t.Status == StatusFailed
}
