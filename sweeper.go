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
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/vidforge/vidforge/config"
	redlock "github.com/vidforge/vidforge/internal/lock"
	"github.com/vidforge/vidforge/internal/notification"
	"github.com/vidforge/vidforge/internal/provider"
	"github.com/vidforge/vidforge/model"
)

const stuckTaskReason = "stuck in processing - automatic cleanup"

// SweepOnce finds tasks that have sat in processing past the staleness
// threshold and settles them. Each stuck task gets one last poll against the
// provider in case a callback was simply lost; a task the provider cannot
// vouch for is failed and refunded. A Redis lock keeps concurrent deployments
// from sweeping the same batch twice, though the terminal transitions would
// absorb that too.
func (l *Vidforge) SweepOnce(ctx context.Context) error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	locker := redlock.NewLocker(l.redis, "vidforge:sweeper", uuid.New().String())
	if err := locker.Lock(ctx, time.Duration(cnf.Sweeper.LockTimeoutSec)*time.Second); err != nil {
		logrus.Infof("skipping sweep: %v", err)
		return nil
	}
	defer func() {
		if err := locker.Unlock(ctx); err != nil {
			logrus.Warnf("sweeper unlock failed: %v", err)
		}
	}()

	cutoff := time.Now().Add(-time.Duration(cnf.Sweeper.StaleAfterMin) * time.Minute)
	stuck, err := l.datasource.GetStuckTasks(ctx, cutoff)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}
	logrus.WithField("count", len(stuck)).Info("sweeping stuck tasks")

	for _, task := range stuck {
		if err := l.sweepTask(ctx, &task); err != nil {
			logrus.WithField("task_id", task.TaskID).Errorf("sweep failed: %v", err)
			notification.NotifyError(fmt.Errorf("sweep of task %s: %v", task.TaskID, err))
		}
	}
	return nil
}

func (l *Vidforge) sweepTask(ctx context.Context, task *model.Task) error {
	if task.CorrelationID != "" {
		poll, err := l.provider.PollStatus(ctx, task.CorrelationID)
		if err == nil {
			switch poll.Status {
			case provider.StatusCompleted:
				return l.resolveTerminal(ctx, task, model.StatusReady, poll.VideoURL, poll.ThumbnailURL, "")
			case provider.StatusFailed:
				return l.resolveTerminal(ctx, task, model.StatusFailed, "", "", poll.Error)
			}
		}
	}
	return l.Compensate(ctx, task, stuckTaskReason)
}

// StartSweeper runs the sweeper on the configured interval until the context
// is cancelled. It blocks; callers run it in its own goroutine.
func (l *Vidforge) StartSweeper(ctx context.Context) error {
	cnf, err := config.Fetch()
	if err != nil {
		return err
	}

	c := cron.New()
	if _, err := c.AddFunc("@every "+cnf.Sweeper.Interval, func() {
		if err := l.SweepOnce(ctx); err != nil {
			logrus.Errorf("sweep run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweeper interval %q: %w", cnf.Sweeper.Interval, err)
	}

	c.Start()
	logrus.WithField("interval", cnf.Sweeper.Interval).Info("orphan sweeper started")
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}
