package profile

import "time"

type Profile struct {
	ID         string    `gorm:"primaryKey;type:text" db:"id"`
	EmployeeID string    `gorm:"column:employee_id;type:text;uniqueIndex;not null" db:"employee_id"`
	Name       string    `gorm:"column:name;not null" db:"name"`
	Department string    `gorm:"column:department;not null" db:"department"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" db:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

type UserRole struct {
	ID        string    `gorm:"primaryKey;type:text" db:"id"`
	UserID    string    `gorm:"column:user_id;type:text;uniqueIndex;not null" db:"user_id"`
	Role      string    `gorm:"column:role;type:text;not null" db:"role"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" db:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
