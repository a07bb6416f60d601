package model

import "time"

type Session struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	LoginAt     time.Time  `json:"login_at"`
	LoggedOutAt *time.Time `json:"logged_out_at,omitempty"`
}
