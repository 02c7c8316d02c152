package attendance

import (
	"time"

	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	profileDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/profile"
)

// Attendance is one row of the attendance table; (user_id, date) is unique.
type Attendance struct {
	ID           string       `gorm:"primaryKey;type:text"`
	UserID       string       `gorm:"column:user_id;type:text;not null;uniqueIndex:idx_attendance_user_date,priority:1"`
	Date         calendar.Day `gorm:"column:date;type:date;not null;uniqueIndex:idx_attendance_user_date,priority:2;index"`
	CheckInTime  *time.Time   `gorm:"column:check_in_time"`
	CheckOutTime *time.Time   `gorm:"column:check_out_time"`
	Status       string       `gorm:"column:status;type:text;not null"`
	TotalHours   float64      `gorm:"column:total_hours;not null;default:0"`
	Notes        *string      `gorm:"column:notes"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;autoUpdateTime"`

	Profile *profileDatamodel.Profile `gorm:"foreignKey:UserID;references:ID"`
}

func (Attendance) TableName() string {
	return "attendance"
}
