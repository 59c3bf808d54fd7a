package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 排课管理模块业务错误 ──

var (
	ErrAllocationNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "排课不存在")
	ErrAllocationNotOwner = pkgerrors.New(pkgerrors.ErrForbidden, "仅排课持有人可执行此操作")
	ErrAllocationTerminal = pkgerrors.New(pkgerrors.ErrConflict, "排课已结束或已取消")
	ErrAllocationInPast   = pkgerrors.New(pkgerrors.ErrValidation, "不能修改已过去日期的排课")
	ErrAssignmentNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "授课分配不存在")
	ErrSessionInProgress  = pkgerrors.New(pkgerrors.ErrConflict, "该授课分配有正在进行的课程，暂不能停用")
	ErrRoomRangeTooLong   = pkgerrors.New(pkgerrors.ErrValidation, "查询范围不能超过 31 天")
)

// cascadeReservationScope 级联取消只影响尚未开始的申请
var cascadeReservationScope = []model.ReservationStatus{model.ReservationPending, model.ReservationApproved}

// heldReservationScope 仍关联排课且未结束的申请
var heldReservationScope = []model.ReservationStatus{model.ReservationPending, model.ReservationApproved, model.ReservationActive}

const maxRoomRangeDays = 31

// AllocationService 排课管理业务接口
type AllocationService interface {
	ListRoomAllocations(ctx context.Context, roomID string, req *dto.RoomAllocationsRequest) ([]dto.AllocationResponse, error)
	UpdateSection(ctx context.Context, id, section, actorID string) (*dto.AllocationResponse, error)
	Cancel(ctx context.Context, id, actorID string) (*dto.CascadeResult, error)
	// CancelFutureAllocations 取消房间内尚未开始的排课及其关联申请
	CancelFutureAllocations(ctx context.Context, roomID, actorID string) (*dto.CascadeResult, error)
	ArchiveRoom(ctx context.Context, roomID, actorID string) (*dto.CascadeResult, error)
	DeactivateAssignment(ctx context.Context, assignmentID, actorID string) (*dto.CascadeResult, error)
}

type allocationService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewAllocationService 创建 AllocationService 实例
func NewAllocationService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) AllocationService {
	return &allocationService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── ListRoomAllocations ──────────────────────

func (s *allocationService) ListRoomAllocations(ctx context.Context, roomID string, req *dto.RoomAllocationsRequest) ([]dto.AllocationResponse, error) {
	loc := s.clock.Now().Location()
	from, err := parseDate(req.From, loc)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.To, loc)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrDateRangeInvalid
	}
	if to.Sub(from).Hours() > maxRoomRangeDays*24 {
		return nil, ErrRoomRangeTooLong
	}

	if _, err := s.repo.Room.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询实验室失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	list, err := s.repo.Allocation.ListByRoomRange(ctx, roomID, from, to)
	if err != nil {
		s.logger.Error("查询房间排课失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.AllocationResponse, 0, len(list))
	for i := range list {
		result = append(result, toAllocationResponse(&list[i]))
	}
	return result, nil
}

// ────────────────────── UpdateSection ──────────────────────

func (s *allocationService) UpdateSection(ctx context.Context, id, section, actorID string) (*dto.AllocationResponse, error) {
	alloc, err := s.getEditable(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	old := alloc.Section
	alloc.Section = section

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Allocation.UpdateScheduled(ctx, alloc, actorID); err != nil {
			return err
		}
		return tx.Allocation.CreateChangeLog(ctx, &model.AllocationChangeLog{
			AllocationID: alloc.AllocationID,
			ChangeType:   model.ChangeTypeSection,
			Detail:       fmt.Sprintf("%s → %s", old, section),
			OperatorID:   actorID,
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("修改排课班级失败", zap.String("allocation_id", id), zap.Error(err))
		return nil, err
	}

	resp := toAllocationResponse(alloc)
	return &resp, nil
}

// ────────────────────── Cancel ──────────────────────

func (s *allocationService) Cancel(ctx context.Context, id, actorID string) (*dto.CascadeResult, error) {
	alloc, err := s.getEditable(ctx, id, actorID)
	if err != nil {
		return nil, err
	}

	result := &dto.CascadeResult{}
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := cancelAllocation(ctx, tx, alloc, actorID)
		if err != nil {
			return err
		}
		result.AllocationsCancelled = 1
		result.ReservationsCancelled = n
		return nil
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("取消排课失败", zap.String("allocation_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("排课已取消", zap.String("allocation_id", id), zap.String("actor", actorID))
	return result, nil
}

// ────────────────────── 房间归档级联 ──────────────────────

func (s *allocationService) CancelFutureAllocations(ctx context.Context, roomID, actorID string) (*dto.CascadeResult, error) {
	var result *dto.CascadeResult
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Room.LockByID(ctx, roomID); err != nil {
			return err
		}
		r, err := s.cancelFutureForRoom(ctx, tx, roomID, actorID)
		result = r
		return err
	})
	if err != nil {
		return nil, s.wrapRoomErr(roomID, err)
	}
	return result, nil
}

func (s *allocationService) ArchiveRoom(ctx context.Context, roomID, actorID string) (*dto.CascadeResult, error) {
	var result *dto.CascadeResult
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		room, err := tx.Room.LockByID(ctx, roomID)
		if err != nil {
			return err
		}
		if !room.IsArchived {
			if err := tx.Room.Archive(ctx, roomID, actorID); err != nil {
				return err
			}
		}
		r, err := s.cancelFutureForRoom(ctx, tx, roomID, actorID)
		result = r
		return err
	})
	if err != nil {
		return nil, s.wrapRoomErr(roomID, err)
	}

	s.logger.Info("实验室已归档",
		zap.String("room_id", roomID),
		zap.Int("allocations_cancelled", result.AllocationsCancelled),
		zap.Int("reservations_cancelled", result.ReservationsCancelled),
	)
	return result, nil
}

func (s *allocationService) cancelFutureForRoom(ctx context.Context, tx *repository.Repository, roomID, actorID string) (*dto.CascadeResult, error) {
	now := s.clock.Now()
	list, err := tx.Allocation.ListFutureByRoom(ctx, roomID, clock.DateOf(now), clock.HHMM(now))
	if err != nil {
		return nil, err
	}

	result := &dto.CascadeResult{}
	for i := range list {
		n, err := cancelAllocation(ctx, tx, &list[i], actorID)
		if err != nil {
			return nil, err
		}
		result.AllocationsCancelled++
		result.ReservationsCancelled += n
	}
	return result, nil
}

// ────────────────────── 授课分配停用级联 ──────────────────────

func (s *allocationService) DeactivateAssignment(ctx context.Context, assignmentID, actorID string) (*dto.CascadeResult, error) {
	assignment, err := s.repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询授课分配失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}
	if !assignment.IsActive {
		return &dto.CascadeResult{}, nil
	}

	now := s.clock.Now()
	today, at := clock.DateOf(now), clock.HHMM(now)

	result := &dto.CascadeResult{}
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.User.LockByID(ctx, assignment.TeacherID); err != nil {
			return err
		}

		// 1. 进行中的课程不允许停用
		active, err := tx.Reservation.CountActiveByAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		running, err := tx.Allocation.CountInProgressByAssignment(ctx, assignmentID, today, at)
		if err != nil {
			return err
		}
		if active > 0 || running > 0 {
			return ErrSessionInProgress
		}

		// 2. 取消未开始的排课及其申请
		future, err := tx.Allocation.ListFutureByAssignment(ctx, assignmentID, today, at)
		if err != nil {
			return err
		}
		for i := range future {
			n, err := cancelAllocation(ctx, tx, &future[i], actorID)
			if err != nil {
				return err
			}
			result.AllocationsCancelled++
			result.ReservationsCancelled += n
		}

		// 3. 挂在该分配下、尚未关联排课的申请
		unlinked, err := tx.Reservation.ListUnlinkedByAssignment(ctx, assignmentID, cascadeReservationScope)
		if err != nil {
			return err
		}
		for _, r := range unlinked {
			if err := cancelReservation(ctx, tx, &r, actorID); err != nil {
				return err
			}
			result.ReservationsCancelled++
		}

		return tx.Assignment.Deactivate(ctx, assignmentID, actorID)
	})
	if err != nil {
		if errors.Is(err, ErrSessionInProgress) || errors.Is(err, pkgerrors.ErrOptimisticLock) {
			return nil, err
		}
		s.logger.Error("停用授课分配失败", zap.String("assignment_id", assignmentID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("授课分配已停用",
		zap.String("assignment_id", assignmentID),
		zap.Int("allocations_cancelled", result.AllocationsCancelled),
		zap.Int("reservations_cancelled", result.ReservationsCancelled),
	)
	return result, nil
}

// ── 内部辅助方法 ──

// getEditable 持有人对未结束、非过去日期的排课可修改
func (s *allocationService) getEditable(ctx context.Context, id, actorID string) (*model.Allocation, error) {
	alloc, err := s.repo.Allocation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAllocationNotFound
		}
		s.logger.Error("查询排课失败", zap.String("allocation_id", id), zap.Error(err))
		return nil, err
	}
	if !alloc.IsOwnedBy(actorID) {
		return nil, ErrAllocationNotOwner
	}
	if alloc.Status.IsTerminal() {
		return nil, ErrAllocationTerminal
	}
	if alloc.Date.Format(dateLayout) < s.clock.Now().Format(dateLayout) {
		return nil, ErrAllocationInPast
	}
	return alloc, nil
}

func (s *allocationService) wrapRoomErr(roomID string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRoomNotFound
	}
	s.logger.Error("实验室级联取消失败", zap.String("room_id", roomID), zap.Error(err))
	return err
}

// cancelAllocation 取消排课并级联取消其 Pending/Approved 申请，返回取消的申请数
func cancelAllocation(ctx context.Context, tx *repository.Repository, alloc *model.Allocation, actorID string) (int, error) {
	if err := tx.Allocation.UpdateStatus(ctx, alloc.AllocationID, model.AllocationScheduled, model.AllocationCancelled, actorID); err != nil {
		return 0, err
	}
	alloc.Status = model.AllocationCancelled

	log := &model.AllocationChangeLog{
		AllocationID: alloc.AllocationID,
		ChangeType:   model.ChangeTypeCancel,
		Detail:       fmt.Sprintf("%s %s-%s", alloc.Date.Format(dateLayout), alloc.StartTime, alloc.EndTime),
		OperatorID:   actorID,
	}
	if err := tx.Allocation.CreateChangeLog(ctx, log); err != nil {
		return 0, err
	}

	linked, err := tx.Reservation.ListByAllocation(ctx, alloc.AllocationID, cascadeReservationScope)
	if err != nil {
		return 0, err
	}
	for i := range linked {
		if err := cancelReservation(ctx, tx, &linked[i], actorID); err != nil {
			return 0, err
		}
	}
	return len(linked), nil
}

func cancelReservation(ctx context.Context, tx *repository.Repository, r *model.Reservation, actorID string) error {
	if !model.AllowedReservationTransition(r.Status, model.ReservationCancelled) {
		return nil
	}
	return transitionReservation(ctx, tx, r.ReservationID, r.Status, model.ReservationCancelled, map[string]interface{}{
		"processed_by": nullableActor(actorID),
		"updated_by":   nullableActor(actorID),
	})
}

func nullableActor(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
