package model

import "time"

// Task represents a single item in a user's list.
type Task struct {
	ID          string     `gorm:"primaryKey" json:"id"`
	UserID      string     `gorm:"index" json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"desc"`
	Priority    Priority   `gorm:"default:Medium" json:"priority"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Important   bool       `gorm:"default:false" json:"important"`
	Complete    bool       `gorm:"default:false" json:"complete"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
