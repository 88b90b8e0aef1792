package user

import (
	"time"

	"github.com/google/uuid"
)

// Account roles in the marketplace.
const (
	RoleStudent = "STUDENT"
	RoleTutor   = "TUTOR"
	RoleAdmin   = "ADMIN"
)

// User represents the users table. The chat core only reads the directory
// fields needed for enrichment; account management lives elsewhere.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string    `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255)" json:"-"`
	Role         string    `gorm:"type:varchar(32);default:'STUDENT';not null" json:"role"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

// FullName returns the display name used in enriched DTOs.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (User) TableName() string {
	return "users"
}
