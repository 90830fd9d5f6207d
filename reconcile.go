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
	"github.com/vidforge/vidforge/internal/provider"
	"github.com/vidforge/vidforge/model"
)

// StatusView is the client-facing shape of a task's current state. Status is
// one of "pending", "processing", "completed" or "failed".
type StatusView struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// TaskStatus reports the current state of a task, reconciling against the
// provider when the task is still in flight. Terminal tasks are answered
// from our own records without a provider round trip; nothing the provider
// says can reopen a settled task. A poll failure degrades to the stored
// state instead of surfacing an error, since a missed reconciliation is
// recoverable and a client-visible 5xx is not useful.
func (l *Vidforge) TaskStatus(ctx context.Context, taskID string) (*StatusView, error) {
	task, err := l.datasource.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsTerminal() {
		return viewOf(task, 0), nil
	}
	if task.CorrelationID == "" {
		// Submission never completed its handshake; only the sweeper can
		// settle this one.
		return viewOf(task, 0), nil
	}

	poll, err := l.provider.PollStatus(ctx, task.CorrelationID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"task_id":        task.TaskID,
			"correlation_id": task.CorrelationID,
		}).Warnf("status poll failed: %v", err)
		return viewOf(task, 0), nil
	}

	switch poll.Status {
	case provider.StatusCompleted:
		if err := l.resolveTerminal(ctx, task, model.StatusReady, poll.VideoURL, poll.ThumbnailURL, ""); err != nil {
			return nil, err
		}
	case provider.StatusFailed:
		if err := l.resolveTerminal(ctx, task, model.StatusFailed, "", "", poll.Error); err != nil {
			return nil, err
		}
	default:
		if err := l.datasource.TouchProcessing(ctx, task.TaskID); err != nil {
			logrus.WithField("task_id", task.TaskID).Warnf("progress touch failed: %v", err)
		}
		view := viewOf(task, poll.Progress)
		if poll.Status == provider.StatusPending {
			view.Status = "pending"
		}
		return view, nil
	}

	// Re-read so the view reflects whichever transition actually won.
	task, err = l.datasource.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return viewOf(task, 0), nil
}

func viewOf(task *model.Task, progress int) *StatusView {
	view := &StatusView{
		TaskID:       task.TaskID,
		Progress:     progress,
		VideoURL:     task.VideoURL,
		ThumbnailURL: task.ThumbnailURL,
		ErrorMessage: task.ErrorMessage,
	}
	switch task.Status {
	case model.StatusReady:
		view.Status = "completed"
		view.Progress = 100
	case model.StatusFailed:
		view.Status = "failed"
	default:
		view.Status = "processing"
	}
	return view
}
