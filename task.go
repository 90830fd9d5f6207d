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
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/internal/notification"
	"github.com/vidforge/vidforge/model"
)

// SubmitGeneration validates the request, charges the account, records the
// task and hands it to the provider. Credits are reserved before the provider
// is contacted; any failure past that point is unwound through Compensate so
// the charge never outlives the task.
func (l *Vidforge) SubmitGeneration(ctx context.Context, accountID string, params model.GenerationParams) (*model.Task, error) {
	if accountID == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "account id is required", nil)
	}
	if err := params.Validate(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}

	cost, err := model.CostFor(params.Duration, params.Quality)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), err)
	}
	if _, err := l.GetOrCreateBalance(ctx, accountID); err != nil {
		return nil, err
	}

	task := model.NewTask(accountID, params, cost)
	if _, err := l.datasource.ReserveCredits(ctx, accountID, cost,
		fmt.Sprintf("video generation %s", task.TaskID), task.TaskID); err != nil {
		return nil, err
	}

	created, err := l.datasource.CreateTask(ctx, task)
	if err != nil {
		// The reservation is already on the ledger; give it back directly
		// since there is no task row to compensate against.
		if _, refundErr := l.datasource.AddCredits(ctx, accountID, cost, model.EntryTypeRefund,
			fmt.Sprintf("refund for unrecorded task %s", task.TaskID), "", ""); refundErr != nil {
			notification.NotifyError(fmt.Errorf("refund after task create failure %s: %v", task.TaskID, refundErr))
		}
		return nil, err
	}

	result, err := l.provider.Submit(ctx, params)
	if err != nil {
		if compErr := l.Compensate(ctx, created, fmt.Sprintf("provider submission failed: %v", err)); compErr != nil {
			notification.NotifyError(compErr)
		}
		return nil, err
	}

	if err := l.datasource.SetTaskCorrelationID(ctx, created.TaskID, result.CorrelationID); err != nil {
		// The provider accepted the job, so the task stays alive. The
		// sweeper resolves it if nothing else does.
		logrus.WithFields(logrus.Fields{
			"task_id":        created.TaskID,
			"correlation_id": result.CorrelationID,
		}).Error("failed to persist provider correlation id")
		notification.NotifyError(fmt.Errorf("persist correlation id for %s: %v", created.TaskID, err))
		return created, nil
	}
	created.CorrelationID = result.CorrelationID
	return created, nil
}

// GetTask fetches a task by its internal id.
func (l *Vidforge) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	return l.datasource.GetTaskByID(ctx, taskID)
}

// ListTasks returns an account's tasks newest first.
func (l *Vidforge) ListTasks(ctx context.Context, accountID string, limit, offset int) ([]model.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return l.datasource.GetTasksByAccount(ctx, accountID, limit, offset)
}

// resolveTerminal drives a processing task to its terminal state. Success
// materializes the provider media into our storage before flipping the task
// to ready; a materialization failure is treated like a provider failure so
// the account is made whole. Both transitions are no-ops when the task has
// already settled, which makes duplicate callbacks and concurrent
// reconciliations harmless.
func (l *Vidforge) resolveTerminal(ctx context.Context, task *model.Task, status, videoURL, thumbnailURL, errMsg string) error {
	switch status {
	case model.StatusReady:
		if videoURL == "" {
			return l.Compensate(ctx, task, "provider reported success with missing media reference")
		}
		asset, err := l.materialize(ctx, task, videoURL, thumbnailURL)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"task_id": task.TaskID,
				"error":   err.Error(),
			}).Error("asset materialization failed")
			return l.Compensate(ctx, task, fmt.Sprintf("asset materialization failed: %v", err))
		}
		applied, err := l.datasource.TransitionToReady(ctx, task.TaskID, asset)
		if err != nil {
			return err
		}
		if applied {
			logrus.WithFields(logrus.Fields{
				"task_id":  task.TaskID,
				"asset_id": asset.AssetID,
			}).Info("task completed")
		}
		return nil
	case model.StatusFailed:
		if errMsg == "" {
			errMsg = "provider reported failure"
		}
		return l.Compensate(ctx, task, errMsg)
	default:
		return nil
	}
}
