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
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/vidforge/vidforge/model"
)

// CreateVideo is the request body for submitting a generation. The deep
// parameter validation lives on model.GenerationParams; this layer only
// rejects requests that are not even shaped correctly.
type CreateVideo struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	Quality     string `json:"quality"`
	AspectRatio string `json:"aspect_ratio"`
	ImageURL    string `json:"image_url,omitempty"`
}

func (v *CreateVideo) ValidateCreateVideo() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.Prompt, validation.Required),
		validation.Field(&v.Duration, validation.Required),
		validation.Field(&v.Quality, validation.Required),
		validation.Field(&v.AspectRatio, validation.Required),
	)
}

func (v *CreateVideo) ToGenerationParams() model.GenerationParams {
	return model.GenerationParams{
		Prompt:      v.Prompt,
		Duration:    v.Duration,
		Quality:     v.Quality,
		AspectRatio: v.AspectRatio,
		ImageURL:    v.ImageURL,
	}
}

// TopUpCredits is the request body for crediting an account.
type TopUpCredits struct {
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reference   string `json:"reference"`
}

func (t *TopUpCredits) ValidateTopUpCredits() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Amount, validation.Required, validation.Min(1)),
		validation.Field(&t.Type, validation.In(model.EntryTypePurchase, model.EntryTypeBonus)),
	)
}

// ProviderCallback mirrors the provider's webhook payload. The correlation id
// arrives under either "task_id" or "id" depending on the provider's event
// version.
type ProviderCallback struct {
	TaskID       string `json:"task_id"`
	ID           string `json:"id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	VideoURL     string `json:"video_url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Error        string `json:"error"`
}

func (p *ProviderCallback) CorrelationID() string {
	if p.TaskID != "" {
		return p.TaskID
	}
	return p.ID
}

func (p *ProviderCallback) ValidateProviderCallback() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Status, validation.Required),
		validation.Field(&p.VideoURL, is.URL),
		validation.Field(&p.ThumbnailURL, is.URL),
	)
}
