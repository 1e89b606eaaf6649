package models

// User is the public profile record returned by the user endpoints.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	IsFollowing bool   `json:"isFollowing"`
}

// Session is the authenticated identity for the lifetime of a client run.
type Session struct {
	UserID        string
	DisplayName   string
	Authenticated bool
}
