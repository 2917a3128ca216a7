package models

type Role string

const (
	RoleAE    Role = "ae"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleAE || r == RoleAdmin
}

// User accounts are created by admins and disabled through IsActive; they
// are never deleted.
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	FirstName    string `gorm:"not null" json:"first_name"`
	LastName     string `gorm:"not null" json:"last_name"`
	Role         Role   `gorm:"type:varchar(16);not null" json:"role"`
	IsActive     bool   `gorm:"not null" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
