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
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/vidforge/vidforge/model"
	"golang.org/x/sync/errgroup"
)

// materialize copies the provider's output into our own storage so the asset
// survives the provider's retention window. A partial asset is not a valid
// terminal shape: if the provider offered a thumbnail, failing to fetch or
// store it fails the whole materialization so the caller compensates. Files
// are staged on local disk first so a partial download never reaches the
// bucket, and the staging directory is removed on every exit path.
func (l *Vidforge) materialize(ctx context.Context, task *model.Task, videoURL, thumbnailURL string) (*model.Asset, error) {
	staging, err := os.MkdirTemp(l.stagingDir, task.TaskID)
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			logrus.WithField("task_id", task.TaskID).Warnf("staging cleanup failed: %v", rmErr)
		}
	}()

	videoPath := filepath.Join(staging, "video.mp4")
	videoSize, err := l.download(ctx, videoURL, videoPath)
	if err != nil {
		return nil, fmt.Errorf("video download failed: %w", err)
	}

	thumbPath := ""
	if thumbnailURL != "" {
		thumbPath = filepath.Join(staging, "thumbnail.jpg")
		if _, err := l.download(ctx, thumbnailURL, thumbPath); err != nil {
			return nil, fmt.Errorf("thumbnail download failed: %w", err)
		}
	}

	asset := &model.Asset{
		AssetID:   model.GenerateUUIDWithSuffix("ast"),
		TaskID:    task.TaskID,
		SizeBytes: videoSize,
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		url, err := l.uploader.Upload(grpCtx,
			fmt.Sprintf("videos/%s/%s.mp4", task.AccountID, task.TaskID), videoPath, "video/mp4")
		if err != nil {
			return fmt.Errorf("video upload: %w", err)
		}
		asset.VideoURL = url
		return nil
	})
	if thumbPath != "" {
		grp.Go(func() error {
			url, err := l.uploader.Upload(grpCtx,
				fmt.Sprintf("thumbnails/%s/%s.jpg", task.AccountID, task.TaskID), thumbPath, "image/jpeg")
			if err != nil {
				return fmt.Errorf("thumbnail upload: %w", err)
			}
			asset.ThumbnailURL = url
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return asset, nil
}

// download streams a remote file to disk through the bounded-timeout client
// and returns the byte count written.
func (l *Vidforge) download(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("download request for %s: %w", url, err)
	}
	resp, err := l.downloader.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("stage download to %s: %w", dest, err)
	}
	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	return written, nil
}
