package models

import "time"

// UploadResponse is returned by POST /upload. The share link is just the id;
// the frontend builds the full URL.
type UploadResponse struct {
	Message   string    `json:"message"`
	ShareLink string    `json:"share_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AccessResponse is returned by GET /access/:id on a grant.
type AccessResponse struct {
	FileURL   string `json:"file_url"`
	Filename  string `json:"filename"`
	ViewsLeft int    `json:"views_left"`
}

// StatsResponse is the dashboard aggregate. ActivityGraph always covers the
// trailing 24 hours, one bucket per hour, oldest first.
type StatsResponse struct {
	TotalUploads   int     `json:"total_uploads"`
	ActiveLinks    int     `json:"active_links"`
	ThreatsBlocked int     `json:"threats_blocked"`
	ActivityGraph  [24]int `json:"activity_graph"`
}
