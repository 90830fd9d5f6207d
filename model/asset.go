package model

import "time"

// Asset is the durable pointer to materialized media. It is written exactly
// once, when its owning task transitions to ready, and is immutable after
// that.
type Asset struct {
	ID           int64     `json:"-"`
	AssetID      string    `json:"asset_id"`
	TaskID       string    `json:"task_id"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
}
