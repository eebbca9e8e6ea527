package models

import (
	"time"

	"github.com/Skotchmaster/iam/internal/domain"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:64" json:"username"`
	PasswordHash string    `gorm:"not null"                     json:"-"`
	Roles        []Role    `gorm:"many2many:user_roles;"        json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleNames returns the role names in the order they were loaded.
func (u *User) RoleNames() []string {
	out := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		out = append(out, r.Name.String())
	}
	return out
}

type Role struct {
	ID   uint            `gorm:"primaryKey;autoIncrement"     json:"id"`
	Name domain.RoleName `gorm:"uniqueIndex;not null;size:32" json:"name"`
}

// RevokedToken marks a jti as dead until ExpiresAt. Only the sha256 hex of
// the jti is stored. Rows are hard deleted by the expiry sweep.
type RevokedToken struct {
	ID        uint      `gorm:"primaryKey"                                   json:"id"`
	JTIHash   string    `gorm:"column:jti_hash;size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index"                               json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists the tables managed by AutoMigrate.
func All() []any {
	return []any{&Role{}, &User{}, &RevokedToken{}}
}
