package service

import (
	"context"
	"time"

	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
)

// ConflictDetector 房间与教师时间冲突检测
//
// 只计入占用时间的排课（Scheduled、Completed），Cancelled/Rejected 不参与。
// 检测与随后的写入必须使用同一事务内的 Repository，并在此之前锁定房间/教师行。
type ConflictDetector struct {
	repo *repository.Repository
}

// NewConflictDetector 基于给定 Repository（通常为事务内实例）创建检测器
func NewConflictDetector(repo *repository.Repository) *ConflictDetector {
	return &ConflictDetector{repo: repo}
}

// HasRoomConflict 房间在 date 的 [start, end) 是否已有排课；excludeID 非空时忽略该排课
func (d *ConflictDetector) HasRoomConflict(ctx context.Context, roomID string, date time.Time, start, end, excludeID string) (bool, error) {
	list, err := d.repo.Allocation.ListRoomOverlapping(ctx, roomID, date, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// HasTeacherConflict 教师在 date 的 [start, end) 是否在任意房间持有排课
// 经有效授课分配或直接持有两条关联都计入
func (d *ConflictDetector) HasTeacherConflict(ctx context.Context, teacherID string, date time.Time, start, end, excludeID string) (bool, error) {
	list, err := d.repo.Allocation.ListTeacherOverlapping(ctx, teacherID, date, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return len(list) > 0, nil
}

// ReservationConflicts 房间内与 [start, end) 重叠、处于 statuses 之一的申请
func (d *ConflictDetector) ReservationConflicts(ctx context.Context, roomID string, date time.Time, start, end string, statuses ...model.ReservationStatus) ([]model.Reservation, error) {
	return d.repo.Reservation.ListRoomOverlapping(ctx, roomID, date, start, end, statuses)
}

// bestOverlap 选出与请求时段重叠最多的排课；重叠相同时优先完全一致，其次起止时间偏差之和最小
func bestOverlap(candidates []model.Allocation, start, end string) *model.Allocation {
	var best *model.Allocation
	bestOverlapMin, bestDistance := -1, 0

	for i := range candidates {
		a := &candidates[i]
		ov := overlapMinutes(a.StartTime, a.EndTime, start, end)
		dist := absInt(minutesOf(a.StartTime)-minutesOf(start)) + absInt(minutesOf(a.EndTime)-minutesOf(end))
		switch {
		case ov > bestOverlapMin:
		case ov == bestOverlapMin && dist < bestDistance:
		default:
			continue
		}
		best, bestOverlapMin, bestDistance = a, ov, dist
	}
	return best
}

func overlapMinutes(a, b, c, d string) int {
	lo, hi := a, b
	if c > lo {
		lo = c
	}
	if d < hi {
		hi = d
	}
	return model.MinutesBetween(lo, hi)
}

func minutesOf(hhmm string) int {
	m, _ := model.ParseHHMM(hhmm)
	return m
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
