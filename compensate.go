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
	"github.com/vidforge/vidforge/internal/notification"
	"github.com/vidforge/vidforge/model"
)

// Compensate marks the task failed and refunds its charge. The transition is
// the idempotency gate: only the caller that actually flips the task to
// failed issues the refund, so concurrent compensations of the same task
// produce a single ledger entry. If the transition result is unknown because
// the database errored, the refund is still attempted; the ledger layer
// records the entry against the task id so a duplicate can be audited rather
// than silently lost.
func (l *Vidforge) Compensate(ctx context.Context, task *model.Task, reason string) error {
	applied, err := l.datasource.TransitionToFailed(ctx, task.TaskID, reason)
	if err == nil && !applied {
		// Already terminal, whether failed or ready. Nothing to refund.
		return nil
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"task_id": task.TaskID,
			"error":   err.Error(),
		}).Error("failed task transition errored, attempting refund anyway")
	}

	description := fmt.Sprintf("refund for failed task %s", task.TaskID)
	if task.CorrelationID != "" {
		description = fmt.Sprintf("refund for failed task %s (provider %s)", task.TaskID, task.CorrelationID)
	}
	if _, refundErr := l.datasource.AddCredits(ctx, task.AccountID, task.CostCharged,
		model.EntryTypeRefund, description, task.TaskID, ""); refundErr != nil {
		refundErr = fmt.Errorf("refund of %d credits for task %s failed: %v",
			task.CostCharged, task.TaskID, refundErr)
		logrus.WithFields(logrus.Fields{
			"task_id":    task.TaskID,
			"account_id": task.AccountID,
			"amount":     task.CostCharged,
		}).Error(refundErr.Error())
		notification.NotifyError(refundErr)
		if err != nil {
			return err
		}
		return refundErr
	}

	logrus.WithFields(logrus.Fields{
		"task_id": task.TaskID,
		"amount":  task.CostCharged,
		"reason":  reason,
	}).Info("task compensated")
	return err
}
