package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// AttendanceRepository 学生签到数据访问接口
type AttendanceRepository interface {
	Create(ctx context.Context, mark *model.AttendanceMark) error
	GetByReservationAndStudent(ctx context.Context, reservationID, studentID string) (*model.AttendanceMark, error)
	// CloseMark 签退：仅对未签退记录生效
	CloseMark(ctx context.Context, markID, timeOut string) error
	// CloseOpenByReservation 将该申请下所有未签退记录签退到 timeOut
	CloseOpenByReservation(ctx context.Context, reservationID, timeOut string) (int64, error)
	ListByReservation(ctx context.Context, reservationID string) ([]model.AttendanceMark, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Create(ctx context.Context, mark *model.AttendanceMark) error {
	return r.db.WithContext(ctx).Create(mark).Error
}

func (r *attendanceRepo) GetByReservationAndStudent(ctx context.Context, reservationID, studentID string) (*model.AttendanceMark, error) {
	var mark model.AttendanceMark
	err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND student_id = ?", reservationID, studentID).
		First(&mark).Error
	if err != nil {
		return nil, err
	}
	return &mark, nil
}

func (r *attendanceRepo) CloseMark(ctx context.Context, markID, timeOut string) error {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceMark{}).
		Where("mark_id = ? AND time_out IS NULL", markID).
		Updates(map[string]interface{}{
			"time_out":   timeOut,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *attendanceRepo) CloseOpenByReservation(ctx context.Context, reservationID, timeOut string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceMark{}).
		Where("reservation_id = ? AND time_out IS NULL", reservationID).
		Updates(map[string]interface{}{
			"time_out":   timeOut,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

func (r *attendanceRepo) ListByReservation(ctx context.Context, reservationID string) ([]model.AttendanceMark, error) {
	var marks []model.AttendanceMark
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("reservation_id = ?", reservationID).
		Order("time_in ASC").
		Find(&marks).Error
	return marks, err
}
