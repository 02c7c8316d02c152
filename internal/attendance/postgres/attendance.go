package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	attendanceDatamodel "github.com/frahmantamala/employee-attendance/internal/core/datamodel/attendance"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type AttendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository expects db to be opened with TranslateError so
// unique violations surface as gorm.ErrDuplicatedKey.
func NewAttendanceRepository(db *gorm.DB) attendance.RepositoryAPI {
	return &AttendanceRepository{db: db}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func (r *AttendanceRepository) Insert(ctx context.Context, row *attendanceDatamodel.Attendance) error {
	err := r.db.WithContext(ctx).Omit("Profile").Create(row).Error
	if err != nil && isUniqueViolation(err) {
		return attendance.ErrDuplicateRecord
	}
	return err
}

// CloseSession is a conditional update; it only touches rows that are still open.
func (r *AttendanceRepository) CloseSession(ctx context.Context, id string, patch attendance.SessionPatch) (*attendanceDatamodel.Attendance, error) {
	db := r.db.WithContext(ctx)

	res := db.Model(&attendanceDatamodel.Attendance{}).
		Where("id = ? AND check_in_time IS NOT NULL AND check_out_time IS NULL", id).
		Updates(map[string]interface{}{
			"check_out_time": patch.CheckOutTime,
			"total_hours":    patch.TotalHours,
			"status":         string(patch.Status),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := db.Model(&attendanceDatamodel.Attendance{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, attendance.ErrNotFound
		}
		return nil, attendance.ErrSessionClosed
	}

	var row attendanceDatamodel.Attendance
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attendance.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *AttendanceRepository) GetByUserAndDate(ctx context.Context, userID string, date calendar.Day) (*attendanceDatamodel.Attendance, error) {
	var row attendanceDatamodel.Attendance
	err := r.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attendance.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *AttendanceRepository) ListByUserAndDateRange(ctx context.Context, userID string, from, to calendar.Day) ([]*attendanceDatamodel.Attendance, error) {
	var rows []*attendanceDatamodel.Attendance
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date < ?", userID, from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AttendanceRepository) ListByDate(ctx context.Context, date calendar.Day) ([]*attendanceDatamodel.Attendance, error) {
	var rows []*attendanceDatamodel.Attendance
	err := r.db.WithContext(ctx).Where("date = ?", date).Order("check_in_time ASC").Find(&rows).Error
	return rows, err
}

func (r *AttendanceRepository) ListByDateRange(ctx context.Context, from, to calendar.Day) ([]*attendanceDatamodel.Attendance, error) {
	var rows []*attendanceDatamodel.Attendance
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", from, to).
		Order("date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *AttendanceRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*attendanceDatamodel.Attendance, error) {
	var rows []*attendanceDatamodel.Attendance
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&rows).Error
	return rows, err
}

func (r *AttendanceRepository) ListWithProfiles(ctx context.Context) ([]*attendanceDatamodel.Attendance, error) {
	var rows []*attendanceDatamodel.Attendance
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Order("date DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}
