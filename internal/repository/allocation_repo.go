package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

const dateLayout = "2006-01-02"

// AllocationRepository 排课数据访问接口
// 所有冲突查询只计入占用时间的状态（Scheduled、Completed）
type AllocationRepository interface {
	Create(ctx context.Context, a *model.Allocation) error
	GetByID(ctx context.Context, id string) (*model.Allocation, error)
	FindExact(ctx context.Context, roomID string, date time.Time, start, end string) (*model.Allocation, error)
	ListRoomOverlapping(ctx context.Context, roomID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error)
	// ListTeacherOverlapping 跨房间查询教师的重叠排课：经有效授课分配关联，或直接持有
	ListTeacherOverlapping(ctx context.Context, teacherID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error)
	ListByRoomRange(ctx context.Context, roomID string, from, to time.Time) ([]model.Allocation, error)
	ListByTeacherRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.Allocation, error)
	// ListFutureByRoom 房间内尚未开始的 Scheduled 排课（date > today，或 date = today 且 start >= now）
	ListFutureByRoom(ctx context.Context, roomID string, today time.Time, now string) ([]model.Allocation, error)
	ListFutureByAssignment(ctx context.Context, assignmentID string, today time.Time, now string) ([]model.Allocation, error)
	CountInProgressByAssignment(ctx context.Context, assignmentID string, today time.Time, now string) (int64, error)
	// UpdateScheduled 改写时段/持有人/班级，仅对 Scheduled 状态生效
	UpdateScheduled(ctx context.Context, a *model.Allocation, operatorID string) error
	// UpdateStatus 条件更新状态：仅当当前状态为 from 时生效
	UpdateStatus(ctx context.Context, id string, from, to model.AllocationStatus, operatorID string) error
	CreateChangeLog(ctx context.Context, log *model.AllocationChangeLog) error
}

type allocationRepo struct {
	db *gorm.DB
}

func NewAllocationRepo(db *gorm.DB) AllocationRepository {
	return &allocationRepo{db: db}
}

func (r *allocationRepo) Create(ctx context.Context, a *model.Allocation) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *allocationRepo) GetByID(ctx context.Context, id string) (*model.Allocation, error) {
	var a model.Allocation
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Preload("Room").
		Where("allocation_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allocationRepo) FindExact(ctx context.Context, roomID string, date time.Time, start, end string) (*model.Allocation, error) {
	var a model.Allocation
	err := r.db.WithContext(ctx).
		Preload("Assignment").
		Where("room_id = ? AND date = ? AND start_time = ? AND end_time = ?", roomID, date.Format(dateLayout), start, end).
		Where("status IN ?", model.OccupyingAllocationStatuses).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *allocationRepo) ListRoomOverlapping(ctx context.Context, roomID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error) {
	var list []model.Allocation
	db := r.db.WithContext(ctx).
		Preload("Assignment").
		Where("room_id = ? AND date = ?", roomID, date.Format(dateLayout)).
		Where("status IN ?", model.OccupyingAllocationStatuses).
		Where("NOT (end_time <= ? OR start_time >= ?)", start, end)
	if excludeID != "" {
		db = db.Where("allocation_id <> ?", excludeID)
	}
	err := db.Order("start_time ASC").Find(&list).Error
	return list, err
}

func (r *allocationRepo) ListTeacherOverlapping(ctx context.Context, teacherID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error) {
	var list []model.Allocation
	db := r.db.WithContext(ctx).
		Preload("Assignment").
		Joins("LEFT JOIN teacher_course_assignments tca ON tca.assignment_id = allocations.assignment_id AND tca.is_active = ?", true).
		Where("allocations.date = ?", date.Format(dateLayout)).
		Where("allocations.status IN ?", model.OccupyingAllocationStatuses).
		Where("NOT (allocations.end_time <= ? OR allocations.start_time >= ?)", start, end).
		Where("(tca.teacher_id = ? OR allocations.reserved_to = ?)", teacherID, teacherID)
	if excludeID != "" {
		db = db.Where("allocations.allocation_id <> ?", excludeID)
	}
	err := db.Order("allocations.start_time ASC").Find(&list).Error
	return list, err
}

func (r *allocationRepo) ListByRoomRange(ctx context.Context, roomID string, from, to time.Time) ([]model.Allocation, error) {
	var list []model.Allocation
	err := r.db.WithContext(ctx).
		Preload("Assignment").Preload("Assignment.Teacher").Preload("Assignment.Course").
		Where("room_id = ? AND date BETWEEN ? AND ?", roomID, from.Format(dateLayout), to.Format(dateLayout)).
		Where("status IN ?", model.OccupyingAllocationStatuses).
		Order("date ASC, start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) ListByTeacherRange(ctx context.Context, teacherID string, from, to time.Time) ([]model.Allocation, error) {
	var list []model.Allocation
	err := r.db.WithContext(ctx).
		Preload("Assignment").Preload("Assignment.Course").Preload("Room").
		Joins("LEFT JOIN teacher_course_assignments tca ON tca.assignment_id = allocations.assignment_id").
		Where("allocations.date BETWEEN ? AND ?", from.Format(dateLayout), to.Format(dateLayout)).
		Where("allocations.status IN ?", model.OccupyingAllocationStatuses).
		Where("(tca.teacher_id = ? OR allocations.reserved_to = ?)", teacherID, teacherID).
		Order("allocations.date ASC, allocations.start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) ListFutureByRoom(ctx context.Context, roomID string, today time.Time, now string) ([]model.Allocation, error) {
	var list []model.Allocation
	d := today.Format(dateLayout)
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND status = ?", roomID, model.AllocationScheduled).
		Where("(date > ? OR (date = ? AND start_time >= ?))", d, d, now).
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) ListFutureByAssignment(ctx context.Context, assignmentID string, today time.Time, now string) ([]model.Allocation, error) {
	var list []model.Allocation
	d := today.Format(dateLayout)
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND status = ?", assignmentID, model.AllocationScheduled).
		Where("(date > ? OR (date = ? AND start_time >= ?))", d, d, now).
		Find(&list).Error
	return list, err
}

func (r *allocationRepo) CountInProgressByAssignment(ctx context.Context, assignmentID string, today time.Time, now string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("assignment_id = ? AND status = ? AND date = ?", assignmentID, model.AllocationScheduled, today.Format(dateLayout)).
		Where("start_time <= ? AND end_time > ?", now, now).
		Count(&n).Error
	return n, err
}

func (r *allocationRepo) UpdateScheduled(ctx context.Context, a *model.Allocation, operatorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("allocation_id = ? AND status = ?", a.AllocationID, model.AllocationScheduled).
		Updates(map[string]interface{}{
			"start_time":    a.StartTime,
			"end_time":      a.EndTime,
			"assignment_id": a.AssignmentID,
			"reserved_to":   a.ReservedTo,
			"section":       a.Section,
			"updated_by":    nullableUUID(operatorID),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

func (r *allocationRepo) UpdateStatus(ctx context.Context, id string, from, to model.AllocationStatus, operatorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Allocation{}).
		Where("allocation_id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_by": nullableUUID(operatorID),
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

func (r *allocationRepo) CreateChangeLog(ctx context.Context, log *model.AllocationChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
