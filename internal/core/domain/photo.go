package domain

import "time"

// Photo is an archived capture in a user's album.
type Photo struct {
	ID           int64           `json:"id"`
	UserID       string          `json:"user_id"`
	ImageURL     string          `json:"image"`
	ThumbnailURL string          `json:"thumbnail,omitempty"`
	StoragePath  string          `json:"storage_path"`
	PlaceName    string          `json:"place_name,omitempty"`
	Metadata     CaptureMetadata `json:"metadata"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CaptureEvent is published after a photo has been archived.
type CaptureEvent struct {
	PhotoID     int64     `json:"photo_id"`
	UserID      string    `json:"user_id"`
	StoragePath string    `json:"storage_path"`
	MimeType    string    `json:"mime_type"`
	CapturedAt  time.Time `json:"captured_at"`
}

// Preview is a short-lived, revocable handle to a captured image.
type Preview struct {
	Handle    string          `json:"handle"`
	ExpiresAt time.Time       `json:"expires_at"`
	Metadata  CaptureMetadata `json:"metadata"`
}
