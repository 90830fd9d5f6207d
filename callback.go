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

	"github.com/sirupsen/logrus"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/internal/provider"
	"github.com/vidforge/vidforge/model"
)

// CallbackEvent is a provider push notification about one of our tasks,
// keyed by the provider's correlation id.
type CallbackEvent struct {
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	VideoURL      string `json:"video_url"`
	ThumbnailURL  string `json:"thumbnail_url"`
	Error         string `json:"error"`
}

// HandleCallback applies a provider callback to the matching task. Callbacks
// are acknowledged best-effort: an unknown correlation id is logged and
// dropped rather than errored, because the provider retries on failure and a
// task we never recorded will never become one we did. Duplicate deliveries
// are absorbed by the idempotent terminal transitions.
func (l *Vidforge) HandleCallback(ctx context.Context, event CallbackEvent) error {
	if event.CorrelationID == "" {
		logrus.Warn("callback without correlation id dropped")
		return nil
	}

	task, err := l.datasource.GetTaskByCorrelationID(ctx, event.CorrelationID)
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); ok && apiErr.Code == apierror.ErrNotFound {
			logrus.WithField("correlation_id", event.CorrelationID).
				Warn("callback for unknown task dropped")
			return nil
		}
		return err
	}
	if task.IsTerminal() {
		return nil
	}

	status := provider.NormalizeStatus(event.Status)
	switch status {
	case provider.StatusCompleted:
		return l.resolveTerminal(ctx, task, model.StatusReady, event.VideoURL, event.ThumbnailURL, "")
	case provider.StatusFailed:
		return l.resolveTerminal(ctx, task, model.StatusFailed, "", "", event.Error)
	default:
		// Progress update. Touch the row so the sweeper's staleness clock
		// restarts while the provider is still reporting life.
		if err := l.datasource.TouchProcessing(ctx, task.TaskID); err != nil {
			logrus.WithField("task_id", task.TaskID).Warnf("progress touch failed: %v", err)
		}
		return nil
	}
}
