package model

import "time"

// User owns a collection of tasks. Membership is carried by Task.UserID,
// so creating or deleting a task is a single-row write.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex" json:"username"`
	PasswordHash string    `json:"-"`
	Tasks        []Task    `gorm:"foreignKey:UserID" json:"tasks,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
