package models

import "time"

// Session identifies one monitoring run of a site
type Session struct {
	ID        string       `json:"session_id"`
	Location  string       `json:"location"`
	CreatedAt time.Time    `json:"created_at"`
	Roles     []CameraRole `json:"roles"`
}
