package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ReservationRepository 使用申请数据访问接口
type ReservationRepository interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	// FindSameSlot 查找同一教师同一时段、处于 statuses 之一的申请
	FindSameSlot(ctx context.Context, requesterID, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) (*model.Reservation, error)
	ListRoomOverlapping(ctx context.Context, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) ([]model.Reservation, error)
	// ListForTeacherOnDate 教师当天在该房间的申请（含关联排课，用于刷卡匹配）
	ListForTeacherOnDate(ctx context.Context, roomID, teacherID string, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error)
	// FindActiveCovering 房间内覆盖时刻 at 的 Active 申请
	FindActiveCovering(ctx context.Context, roomID string, date time.Time, at string) (*model.Reservation, error)
	ListActiveByRoom(ctx context.Context, roomID string, date time.Time) ([]model.Reservation, error)
	// ListOverdueActive 计划结束时间已过的 Active 申请（date < today，或 date = today 且 end < now）
	ListOverdueActive(ctx context.Context, today time.Time, now string) ([]model.Reservation, error)
	ListByAllocation(ctx context.Context, allocationID string, statuses []model.ReservationStatus) ([]model.Reservation, error)
	// ListUnlinkedByAssignment 未关联排课、挂在某授课分配下的申请
	ListUnlinkedByAssignment(ctx context.Context, assignmentID string, statuses []model.ReservationStatus) ([]model.Reservation, error)
	CountActiveByAssignment(ctx context.Context, assignmentID string) (int64, error)
	ListPendingByRooms(ctx context.Context, roomIDs []string, offset, limit int) ([]model.Reservation, int64, error)
	ListByRequester(ctx context.Context, requesterID string, offset, limit int) ([]model.Reservation, int64, error)
	// UpdateStatus 条件更新（CAS）：仅当当前状态为 from 时写入 to 与 fields，否则返回 ErrOptimisticLock
	UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus, fields map[string]interface{}) error
}

type reservationRepo struct {
	db *gorm.DB
}

func NewReservationRepo(db *gorm.DB) ReservationRepository {
	return &reservationRepo{db: db}
}

func (r *reservationRepo) Create(ctx context.Context, resv *model.Reservation) error {
	return r.db.WithContext(ctx).Create(resv).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Allocation").Preload("Allocation.Assignment").
		Where("reservation_id = ?", id).
		First(&resv).Error
	if err != nil {
		return nil, err
	}
	return &resv, nil
}

func (r *reservationRepo) FindSameSlot(ctx context.Context, requesterID, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.WithContext(ctx).
		Where("requester_id = ? AND room_id = ? AND date = ?", requesterID, roomID, date.Format(dateLayout)).
		Where("start_time = ? AND end_time = ?", start, end).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		First(&resv).Error
	if err != nil {
		return nil, err
	}
	return &resv, nil
}

func (r *reservationRepo) ListRoomOverlapping(ctx context.Context, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND date = ?", roomID, date.Format(dateLayout)).
		Where("status IN ?", statuses).
		Where("NOT (end_time <= ? OR start_time >= ?)", start, end).
		Order("start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListForTeacherOnDate(ctx context.Context, roomID, teacherID string, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Preload("Allocation").
		Where("room_id = ? AND requester_id = ? AND date = ?", roomID, teacherID, date.Format(dateLayout)).
		Where("status IN ?", statuses).
		Order("start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) FindActiveCovering(ctx context.Context, roomID string, date time.Time, at string) (*model.Reservation, error) {
	var resv model.Reservation
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND date = ? AND status = ?", roomID, date.Format(dateLayout), model.ReservationActive).
		Where("start_time <= ? AND end_time >= ?", at, at).
		Order("start_time DESC").
		First(&resv).Error
	if err != nil {
		return nil, err
	}
	return &resv, nil
}

func (r *reservationRepo) ListActiveByRoom(ctx context.Context, roomID string, date time.Time) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("room_id = ? AND date = ? AND status = ?", roomID, date.Format(dateLayout), model.ReservationActive).
		Order("start_time ASC").
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListOverdueActive(ctx context.Context, today time.Time, now string) ([]model.Reservation, error) {
	var list []model.Reservation
	d := today.Format(dateLayout)
	err := r.db.WithContext(ctx).
		Where("status = ?", model.ReservationActive).
		Where("(date < ? OR (date = ? AND end_time < ?))", d, d, now).
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListByAllocation(ctx context.Context, allocationID string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Where("allocation_id = ? AND status IN ?", allocationID, statuses).
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) ListUnlinkedByAssignment(ctx context.Context, assignmentID string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	var list []model.Reservation
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND allocation_id IS NULL AND status IN ?", assignmentID, statuses).
		Find(&list).Error
	return list, err
}

func (r *reservationRepo) CountActiveByAssignment(ctx context.Context, assignmentID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("assignment_id = ? AND status = ?", assignmentID, model.ReservationActive).
		Count(&n).Error
	return n, err
}

func (r *reservationRepo) ListPendingByRooms(ctx context.Context, roomIDs []string, offset, limit int) ([]model.Reservation, int64, error) {
	var list []model.Reservation
	var total int64
	if len(roomIDs) == 0 {
		return list, 0, nil
	}

	db := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("room_id IN ? AND status = ?", roomIDs, model.ReservationPending)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Room").Preload("Requester").
		Offset(offset).Limit(limit).
		Order("date ASC, start_time ASC").
		Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) ListByRequester(ctx context.Context, requesterID string, offset, limit int) ([]model.Reservation, int64, error) {
	var list []model.Reservation
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Reservation{}).
		Where("requester_id = ?", requesterID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("Room").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error
	return list, total, err
}

func (r *reservationRepo) UpdateStatus(ctx context.Context, id string, from, to model.ReservationStatus, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		updates[k] = v
	}
	updates["status"] = to
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("reservation_id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
