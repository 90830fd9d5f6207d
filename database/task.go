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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/vidforge/vidforge/internal/apierror"
	"github.com/vidforge/vidforge/model"
)

const taskColumns = `
	t.id, t.task_id, COALESCE(t.correlation_id, ''), t.account_id,
	t.prompt, t.duration, t.quality, t.aspect_ratio, COALESCE(t.image_url, ''),
	t.status, COALESCE(t.error_message, ''), t.cost_charged,
	COALESCE(a.video_url, ''), COALESCE(a.thumbnail_url, ''),
	t.created_at, t.updated_at`

const taskFrom = `
	FROM tasks t
	LEFT JOIN assets a ON a.task_id = t.task_id`

func scanTask(row interface{ Scan(...interface{}) error }) (*model.Task, error) {
	task := &model.Task{}
	err := row.Scan(
		&task.ID, &task.TaskID, &task.CorrelationID, &task.AccountID,
		&task.Params.Prompt, &task.Params.Duration, &task.Params.Quality,
		&task.Params.AspectRatio, &task.Params.ImageURL,
		&task.Status, &task.ErrorMessage, &task.CostCharged,
		&task.VideoURL, &task.ThumbnailURL,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask persists a new task in processing state. The record exists
// before the provider has confirmed anything, so in-flight spend is tracked
// even when the submission leg fails halfway.
func (d Datasource) CreateTask(ctx context.Context, task *model.Task) (*model.Task, error) {
	if task.TaskID == "" {
		task.TaskID = model.GenerateUUIDWithSuffix("task")
	}
	task.Status = model.StatusProcessing
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO tasks (task_id, correlation_id, account_id, prompt, duration, quality,
			aspect_ratio, image_url, status, cost_charged, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11, $12)
	`, task.TaskID, task.CorrelationID, task.AccountID, task.Params.Prompt, task.Params.Duration,
		task.Params.Quality, task.Params.AspectRatio, task.Params.ImageURL, task.Status,
		task.CostCharged, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, apierror.NewAPIError(apierror.ErrConflict, "Task with this ID already exists", err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to create task", err)
	}
	return task, nil
}

func (d Datasource) GetTaskByID(ctx context.Context, taskID string) (*model.Task, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.task_id = $1`, taskID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Task not found", taskID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read task", err)
	}
	return task, nil
}

func (d Datasource) GetTaskByCorrelationID(ctx context.Context, correlationID string) (*model.Task, error) {
	row := d.Conn.QueryRowContext(ctx, `SELECT `+taskColumns+taskFrom+` WHERE t.correlation_id = $1`, correlationID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Task not found for correlation id", correlationID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read task", err)
	}
	return task, nil
}

func (d Datasource) GetTasksByAccount(ctx context.Context, accountID string, limit, offset int) ([]model.Task, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+taskColumns+taskFrom+`
		WHERE t.account_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`, accountID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list tasks", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan task", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate tasks", err)
	}
	return tasks, nil
}

// SetTaskCorrelationID records the provider-issued id once the provider
// accepts the request.
func (d Datasource) SetTaskCorrelationID(ctx context.Context, taskID, correlationID string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE tasks SET correlation_id = $2, updated_at = NOW() WHERE task_id = $1
	`, taskID, correlationID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return apierror.NewAPIError(apierror.ErrConflict, "Correlation id already assigned to another task", err)
		}
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to set correlation id", err)
	}
	return nil
}

// TransitionToReady flips a processing task to ready and writes the asset
// row in the same transaction. The status guard makes the transition
// idempotent and first-writer-wins: a task already terminal reports
// applied=false and writes nothing, so duplicate callbacks can never
// produce a second asset.
func (d Datasource) TransitionToReady(ctx context.Context, taskID string, asset *model.Asset) (bool, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to start transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = $2, error_message = NULL, updated_at = NOW()
		WHERE task_id = $1 AND status = $3
	`, taskID, model.StatusReady, model.StatusProcessing)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to transition task to ready", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read transition result", err)
	}
	if affected == 0 {
		return false, nil
	}

	if asset.AssetID == "" {
		asset.AssetID = model.GenerateUUIDWithSuffix("ast")
	}
	asset.TaskID = taskID
	asset.CreatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO assets (asset_id, task_id, video_url, thumbnail_url, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, asset.AssetID, asset.TaskID, asset.VideoURL, asset.ThumbnailURL, asset.SizeBytes, asset.CreatedAt)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to persist asset", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit ready transition", err)
	}
	return true, nil
}

// TransitionToFailed flips a processing task to failed with the given
// reason. Same idempotency contract as TransitionToReady.
func (d Datasource) TransitionToFailed(ctx context.Context, taskID, reason string) (bool, error) {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE tasks SET status = $2, error_message = $3, updated_at = NOW()
		WHERE task_id = $1 AND status = $4
	`, taskID, model.StatusFailed, reason, model.StatusProcessing)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to transition task to failed", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read transition result", err)
	}
	return affected > 0, nil
}

// TouchProcessing re-asserts the processing state for ambiguous callback
// statuses, pushing the task's staleness window forward.
func (d Datasource) TouchProcessing(ctx context.Context, taskID string) error {
	_, err := d.Conn.ExecContext(ctx, `
		UPDATE tasks SET updated_at = NOW() WHERE task_id = $1 AND status = $2
	`, taskID, model.StatusProcessing)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "Failed to touch task", err)
	}
	return nil
}

// GetStuckTasks returns processing tasks whose last update is older than the
// cutoff. Used exclusively by the orphan sweeper.
func (d Datasource) GetStuckTasks(ctx context.Context, olderThan time.Time) ([]model.Task, error) {
	rows, err := d.Conn.QueryContext(ctx, `SELECT `+taskColumns+taskFrom+`
		WHERE t.status = $1 AND t.updated_at < $2
		ORDER BY t.updated_at ASC`, model.StatusProcessing, olderThan)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to list stuck tasks", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan stuck task", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate stuck tasks", err)
	}
	return tasks, nil
}

func (d Datasource) GetAssetByTaskID(ctx context.Context, taskID string) (*model.Asset, error) {
	asset := &model.Asset{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, asset_id, task_id, video_url, thumbnail_url, size_bytes, created_at
		FROM assets WHERE task_id = $1
	`, taskID).Scan(&asset.ID, &asset.AssetID, &asset.TaskID, &asset.VideoURL, &asset.ThumbnailURL, &asset.SizeBytes, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, "Asset not found for task", taskID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read asset", err)
	}
	return asset, nil
}
