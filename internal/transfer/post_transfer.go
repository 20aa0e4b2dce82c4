package transfer

// PostCreation is the multipart form payload for scheduling a post.
// TargetAccounts is a JSON array of platform account IDs.
type PostCreation struct {
	Caption        string `form:"caption"`
	Title          string `form:"title"`
	ScheduledTime  string `form:"scheduled_time"`
	TargetAccounts string `form:"target_accounts"`
}

// BlueskyConnect carries the app-password credentials for a direct connect.
type BlueskyConnect struct {
	SiteID      int64  `json:"site_id"`
	Handle      string `json:"handle"`
	AppPassword string `json:"app_password"`
}

// PostStatusResponse is the per-target breakdown returned alongside a post.
type PostStatusResponse struct {
	PostID  int64              `json:"post_id"`
	Status  string             `json:"status"`
	Targets []PostTargetStatus `json:"targets"`
}

type PostTargetStatus struct {
	AccountID         int64  `json:"account_id"`
	Status            string `json:"status"`
	AttemptCount      int    `json:"attempt_count"`
	PlatformContentID string `json:"platform_content_id,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}
