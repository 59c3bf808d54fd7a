package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/metrics"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 使用申请模块业务错误 ──

var (
	ErrReservationNotFound   = pkgerrors.New(pkgerrors.ErrNotFound, "使用申请不存在")
	ErrReservationNotPending = pkgerrors.New(pkgerrors.ErrConflict, "申请已处理，当前状态不允许此操作")
	ErrNotRoomManager        = pkgerrors.New(pkgerrors.ErrForbidden, "仅实验室负责人可审批该申请")
	ErrNotSlotOwner          = pkgerrors.New(pkgerrors.ErrForbidden, "无权接管其他教师持有的排课")
	ErrCannotReject          = pkgerrors.New(pkgerrors.ErrForbidden, "仅实验室负责人或申请人可驳回")
	ErrReservationForbidden  = pkgerrors.New(pkgerrors.ErrForbidden, "无权查看该申请")
)

// 申请冲突检测计入的状态
var (
	blockingReservationStatuses = []model.ReservationStatus{model.ReservationApproved, model.ReservationActive}
	pendingReservationStatuses  = []model.ReservationStatus{model.ReservationPending}
)

// ReservationService 使用申请业务接口
type ReservationService interface {
	Submit(ctx context.Context, req *dto.SubmitReservationRequest, requesterID string) (*dto.SubmitReservationResponse, error)
	Approve(ctx context.Context, id, actorID string) (*dto.ReservationResponse, error)
	Reject(ctx context.Context, id, actorID, reason string) (*dto.ReservationResponse, error)
	Get(ctx context.Context, id, callerID, callerRole string) (*dto.ReservationResponse, error)
	ListMine(ctx context.Context, requesterID string, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error)
	ListPending(ctx context.Context, managerID string, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error)
}

type reservationService struct {
	lab      config.LabConfig
	repo     *repository.Repository
	hours    OperatingHoursRegistry
	clock    clock.Clock
	notifier Notifier
	logger   *zap.Logger
}

// NewReservationService 创建 ReservationService 实例
func NewReservationService(
	lab config.LabConfig,
	repo *repository.Repository,
	hours OperatingHoursRegistry,
	clk clock.Clock,
	notifier Notifier,
	logger *zap.Logger,
) ReservationService {
	return &reservationService{
		lab:      lab,
		repo:     repo,
		hours:    hours,
		clock:    clk,
		notifier: notifier,
		logger:   logger,
	}
}

// ════════════════════════════════════════════════════════════
// Submit
//
// 同一教师同一时段已有 Pending 申请时直接返回该申请（幂等）；
// 已 Approved/Active 时同样返回原申请。
// 满足以下全部条件时自动批准并创建排课，否则进入 Pending：
//   - 无重叠的 Approved/Active 申请
//   - 无重叠的 Pending 申请（任何教师）
//   - 房间无占用排课，申请人无其他排课
//   - 能解析到申请人的有效授课分配
// ════════════════════════════════════════════════════════════

func (s *reservationService) Submit(ctx context.Context, req *dto.SubmitReservationRequest, requesterID string) (*dto.SubmitReservationResponse, error) {
	now := s.clock.Now()

	// 1. 参数校验
	date, err := parseDate(req.Date, now.Location())
	if err != nil {
		return nil, err
	}
	start, end, err := normalizeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := checkSessionLength(s.lab, start, end); err != nil {
		return nil, err
	}
	if isPast(now, date, start) {
		return nil, ErrDateInPast
	}

	room, err := s.getActiveRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	window, err := s.hours.WindowFor(ctx, date.Weekday())
	if err != nil {
		return nil, err
	}
	if !window.IsOpen {
		return nil, ErrDayClosed
	}
	if !window.Contains(start, end) {
		return nil, pkgerrors.NewConflict(pkgerrors.ReasonOutOfHours,
			fmt.Sprintf("申请时段须在开放时间 %s-%s 内", window.Open, window.Close))
	}

	// 2. 重复提交
	if dup, err := s.repo.Reservation.FindSameSlot(ctx, requesterID, room.RoomID, date, start, end, pendingReservationStatuses); err == nil {
		return &dto.SubmitReservationResponse{Outcome: dto.SubmitOutcomeAlreadyPending, Reservation: toReservationResponse(dup)}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询重复申请失败", zap.Error(err))
		return nil, err
	}
	if dup, err := s.repo.Reservation.FindSameSlot(ctx, requesterID, room.RoomID, date, start, end, blockingReservationStatuses); err == nil {
		return &dto.SubmitReservationResponse{Outcome: dto.SubmitOutcomeAlreadyExists, Reservation: toReservationResponse(dup)}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询重复申请失败", zap.Error(err))
		return nil, err
	}

	// 3. 授课分配（可缺省，缺省时只能进入 Pending）
	assignment, err := s.repo.Assignment.FindActiveForDate(ctx, requesterID, req.CourseID, date)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询授课分配失败", zap.Error(err))
			return nil, err
		}
		assignment = nil
	}

	resv := &model.Reservation{
		RoomID:          room.RoomID,
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: model.MinutesBetween(start, end),
		RequesterID:     requesterID,
		Section:         req.Section,
		Remark:          req.Remark,
		Status:          model.ReservationPending,
	}
	if req.CourseID != "" {
		resv.CourseID = strPtr(req.CourseID)
	}
	if assignment != nil {
		resv.AssignmentID = strPtr(assignment.AssignmentID)
	}
	resv.CreatedBy = strPtr(requesterID)
	resv.UpdatedBy = strPtr(requesterID)

	// 4. 冲突检测与写入在同一事务内
	autoApproved := false
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Room.LockByID(ctx, room.RoomID); err != nil {
			return err
		}
		if _, err := tx.User.LockByID(ctx, requesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTeacherNotFound
			}
			return err
		}

		canAuto, err := s.canAutoApprove(ctx, tx, resv, assignment)
		if err != nil {
			return err
		}

		if canAuto {
			alloc := &model.Allocation{
				RoomID:       resv.RoomID,
				Date:         date,
				StartTime:    start,
				EndTime:      end,
				AssignmentID: strPtr(assignment.AssignmentID),
				ReservedTo:   strPtr(requesterID),
				Section:      resv.Section,
				Status:       model.AllocationScheduled,
			}
			alloc.CreatedBy = strPtr(requesterID)
			alloc.UpdatedBy = strPtr(requesterID)
			// 嵌套事务（SAVEPOINT）：排他约束冲突只回滚这一步
			err := tx.Tx.Transaction(ctx, func(inner *repository.Repository) error {
				return inner.Allocation.Create(ctx, alloc)
			})
			if err != nil {
				if !errors.Is(mapAllocationWriteErr(err), ErrRoomConflict) {
					return err
				}
				// 未加锁的写入方抢占了该时段，回退为 Pending
				canAuto = false
			}
			if canAuto {
				processedAt := now
				resv.Status = model.ReservationApproved
				resv.AllocationID = strPtr(alloc.AllocationID)
				resv.ProcessedAt = &processedAt
				autoApproved = true
			}
		}

		return tx.Reservation.Create(ctx, resv)
	})
	if err != nil {
		if errors.Is(err, ErrTeacherNotFound) {
			return nil, err
		}
		s.logger.Error("提交使用申请失败", zap.String("room_id", room.RoomID), zap.Error(err))
		return nil, err
	}

	// 5. 提交后通知
	outcome := dto.SubmitOutcomePending
	if autoApproved {
		outcome = dto.SubmitOutcomeAutoApproved
		metrics.AllocationsCreated.WithLabelValues("auto_approve").Inc()
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationApproved)).Inc()
		notifySafe(ctx, s.notifier, s.logger, Message{
			RecipientID: requesterID,
			Type:        model.NotifyReservationAutoApproved,
			Title:       "实验室使用申请已自动批准",
			Content:     fmt.Sprintf("%s %s %s-%s 的使用申请无冲突，已自动批准并排课。", room.Name, req.Date, start, end),
			RelatedType: "reservation",
			RelatedID:   resv.ReservationID,
		})
	} else {
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationPending)).Inc()
		if room.ManagerID != nil {
			notifySafe(ctx, s.notifier, s.logger, Message{
				RecipientID: *room.ManagerID,
				Type:        model.NotifyReservationSubmitted,
				Title:       "新的实验室使用申请",
				Content:     fmt.Sprintf("%s %s %s-%s 有一条待审批的使用申请。", room.Name, req.Date, start, end),
				RelatedType: "reservation",
				RelatedID:   resv.ReservationID,
			})
		}
	}

	s.logger.Info("使用申请已提交",
		zap.String("reservation_id", resv.ReservationID),
		zap.String("outcome", outcome),
	)

	resv.Room = room
	return &dto.SubmitReservationResponse{Outcome: outcome, Reservation: toReservationResponse(resv)}, nil
}

// canAutoApprove 在事务内判断是否满足自动批准条件
func (s *reservationService) canAutoApprove(ctx context.Context, tx *repository.Repository, resv *model.Reservation, assignment *model.TeacherCourseAssignment) (bool, error) {
	if assignment == nil {
		return false, nil
	}
	detector := NewConflictDetector(tx)

	blocking, err := detector.ReservationConflicts(ctx, resv.RoomID, resv.Date, resv.StartTime, resv.EndTime,
		model.ReservationApproved, model.ReservationActive, model.ReservationPending)
	if err != nil {
		return false, err
	}
	if len(blocking) > 0 {
		return false, nil
	}

	if conflict, err := detector.HasRoomConflict(ctx, resv.RoomID, resv.Date, resv.StartTime, resv.EndTime, ""); err != nil || conflict {
		return false, err
	}
	if conflict, err := detector.HasTeacherConflict(ctx, resv.RequesterID, resv.Date, resv.StartTime, resv.EndTime, ""); err != nil || conflict {
		return false, err
	}
	return true, nil
}

// ════════════════════════════════════════════════════════════
// Approve
//
// 排课解析顺序：
//   1. 完全一致的排课：持有人即申请人则直接关联；否则由持有人或负责人审批并转移持有
//   2. 重叠最多的排课：由持有人或负责人审批，改期并转移持有
//   3. 无任何排课：仅负责人可审批，新建排课
// 所有分支最后以 WHERE status='Pending' 条件更新申请，落空即并发修改，事务整体回滚。
// ════════════════════════════════════════════════════════════

// displacement 审批中被转移持有的排课
type displacement struct {
	previousOwner string
	allocation    model.Allocation
	retimed       bool
	// cancelled 随排课转移而取消的原持有申请数
	cancelled int
}

func (s *reservationService) Approve(ctx context.Context, id, actorID string) (*dto.ReservationResponse, error) {
	now := s.clock.Now()

	resv, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	switch resv.Status {
	case model.ReservationApproved, model.ReservationActive:
		resp := toReservationResponse(resv)
		return &resp, nil
	case model.ReservationPending:
	default:
		return nil, ErrReservationNotPending
	}

	if isPast(now, resv.Date, resv.StartTime) {
		return nil, ErrDateInPast
	}

	room, err := s.repo.Room.GetByID(ctx, resv.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询实验室失败", zap.String("room_id", resv.RoomID), zap.Error(err))
		return nil, err
	}
	if room.IsArchived {
		return nil, ErrRoomArchived
	}

	assignment, err := s.resolveAssignment(ctx, resv)
	if err != nil {
		return nil, err
	}

	isManager := room.IsManagedBy(actorID)
	var displaced *displacement
	var createdAllocation bool

	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Room.LockByID(ctx, resv.RoomID); err != nil {
			return err
		}
		if _, err := tx.User.LockByID(ctx, resv.RequesterID); err != nil {
			return err
		}
		detector := NewConflictDetector(tx)

		var alloc *model.Allocation

		exact, err := tx.Allocation.FindExact(ctx, resv.RoomID, resv.Date, resv.StartTime, resv.EndTime)
		switch {
		case err == nil:
			// 1. 完全一致
			alloc = exact
			if exact.IsOwnedBy(resv.RequesterID) {
				if !isManager && actorID != resv.RequesterID {
					return ErrNotRoomManager
				}
				if exact.AssignmentID == nil || *exact.AssignmentID != assignment.AssignmentID {
					if exact.Status != model.AllocationScheduled {
						return ErrRoomConflict
					}
					exact.AssignmentID = strPtr(assignment.AssignmentID)
					exact.ReservedTo = strPtr(resv.RequesterID)
					if err := tx.Allocation.UpdateScheduled(ctx, exact, actorID); err != nil {
						return mapAllocationWriteErr(err)
					}
				}
				break
			}
			if !isManager && !exact.IsOwnedBy(actorID) {
				return ErrNotSlotOwner
			}
			d, err := s.takeOver(ctx, tx, detector, exact, resv, assignment, actorID, false)
			if err != nil {
				return err
			}
			displaced = d

		case errors.Is(err, gorm.ErrRecordNotFound):
			overlapping, err := tx.Allocation.ListRoomOverlapping(ctx, resv.RoomID, resv.Date, resv.StartTime, resv.EndTime, "")
			if err != nil {
				return err
			}

			if best := bestOverlap(overlapping, resv.StartTime, resv.EndTime); best != nil {
				// 2. 重叠改期
				if !isManager && !best.IsOwnedBy(actorID) {
					return ErrNotSlotOwner
				}
				alloc = best
				d, err := s.takeOver(ctx, tx, detector, best, resv, assignment, actorID, true)
				if err != nil {
					return err
				}
				displaced = d
				break
			}

			// 3. 新建排课
			if !isManager {
				return ErrNotRoomManager
			}
			if conflict, err := detector.HasTeacherConflict(ctx, resv.RequesterID, resv.Date, resv.StartTime, resv.EndTime, ""); err != nil {
				return err
			} else if conflict {
				return ErrTeacherConflict
			}
			alloc = &model.Allocation{
				RoomID:       resv.RoomID,
				Date:         resv.Date,
				StartTime:    resv.StartTime,
				EndTime:      resv.EndTime,
				AssignmentID: strPtr(assignment.AssignmentID),
				ReservedTo:   strPtr(resv.RequesterID),
				Section:      resv.Section,
				Status:       model.AllocationScheduled,
			}
			alloc.CreatedBy = strPtr(actorID)
			alloc.UpdatedBy = strPtr(actorID)
			if err := tx.Allocation.Create(ctx, alloc); err != nil {
				return mapAllocationWriteErr(err)
			}
			createdAllocation = true

		default:
			return err
		}

		// 条件更新：仅当申请仍为 Pending
		return transitionReservation(ctx, tx, resv.ReservationID, model.ReservationPending, model.ReservationApproved, map[string]interface{}{
			"allocation_id": alloc.AllocationID,
			"assignment_id": assignment.AssignmentID,
			"processed_by":  actorID,
			"processed_at":  now,
			"updated_by":    actorID,
		})
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			metrics.ConcurrentConflicts.WithLabelValues("approve").Inc()
			return nil, err
		}
		if isBusinessError(err) {
			return nil, err
		}
		s.logger.Error("审批使用申请失败", zap.String("reservation_id", id), zap.Error(err))
		return nil, err
	}

	metrics.ReservationTransitions.WithLabelValues(string(model.ReservationApproved)).Inc()
	if displaced != nil && displaced.cancelled > 0 {
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationCancelled)).Add(float64(displaced.cancelled))
	}
	if createdAllocation {
		metrics.AllocationsCreated.WithLabelValues("approve").Inc()
	}

	// 提交后通知
	notifySafe(ctx, s.notifier, s.logger, Message{
		RecipientID: resv.RequesterID,
		Type:        model.NotifyReservationApproved,
		Title:       "实验室使用申请已批准",
		Content: fmt.Sprintf("%s %s %s-%s 的使用申请已批准。",
			room.Name, resv.Date.Format(dateLayout), resv.StartTime, resv.EndTime),
		RelatedType: "reservation",
		RelatedID:   resv.ReservationID,
	})
	if displaced != nil && displaced.previousOwner != "" && displaced.previousOwner != resv.RequesterID {
		a := displaced.allocation
		content := fmt.Sprintf("您在 %s %s %s-%s 的排课已转交给其他教师。",
			room.Name, a.Date.Format(dateLayout), a.StartTime, a.EndTime)
		if displaced.retimed {
			content = fmt.Sprintf("您在 %s %s %s-%s 的排课已调整为 %s-%s 并转交给其他教师。",
				room.Name, a.Date.Format(dateLayout), a.StartTime, a.EndTime, resv.StartTime, resv.EndTime)
		}
		if displaced.cancelled > 0 {
			content += "您关联该排课的使用申请已取消。"
		}
		notifySafe(ctx, s.notifier, s.logger, Message{
			RecipientID: displaced.previousOwner,
			Type:        model.NotifyAllocationReassigned,
			Title:       "排课已被转移",
			Content:     content,
			RelatedType: "allocation",
			RelatedID:   a.AllocationID,
		})
	}

	s.logger.Info("使用申请已批准",
		zap.String("reservation_id", resv.ReservationID),
		zap.String("actor", actorID),
	)

	updated, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toReservationResponse(updated)
	return &resp, nil
}

// takeOver 把排课转给申请人；retime 时同时改为申请的时段
// 改写前重新检查房间与教师冲突（排除该排课自身）
func (s *reservationService) takeOver(
	ctx context.Context,
	tx *repository.Repository,
	detector *ConflictDetector,
	alloc *model.Allocation,
	resv *model.Reservation,
	assignment *model.TeacherCourseAssignment,
	actorID string,
	retime bool,
) (*displacement, error) {
	if alloc.Status != model.AllocationScheduled {
		return nil, ErrRoomConflict
	}

	// 原持有人已在上课时不能转移
	holders, err := tx.Reservation.ListByAllocation(ctx, alloc.AllocationID, heldReservationScope)
	if err != nil {
		return nil, err
	}
	for i := range holders {
		if holders[i].Status == model.ReservationActive {
			return nil, ErrRoomConflict
		}
	}

	if retime {
		if conflict, err := detector.HasRoomConflict(ctx, resv.RoomID, resv.Date, resv.StartTime, resv.EndTime, alloc.AllocationID); err != nil {
			return nil, err
		} else if conflict {
			return nil, ErrRoomConflict
		}
	}
	if conflict, err := detector.HasTeacherConflict(ctx, resv.RequesterID, resv.Date, resv.StartTime, resv.EndTime, alloc.AllocationID); err != nil {
		return nil, err
	} else if conflict {
		return nil, ErrTeacherConflict
	}

	d := &displacement{previousOwner: alloc.OwnerID(), allocation: *alloc, retimed: retime}

	alloc.AssignmentID = strPtr(assignment.AssignmentID)
	alloc.ReservedTo = strPtr(resv.RequesterID)
	if resv.Section != "" {
		alloc.Section = resv.Section
	}
	changeType := model.ChangeTypeReassign
	detail := fmt.Sprintf("转交给申请 %s", resv.ReservationID)
	if retime {
		changeType = model.ChangeTypeRetime
		detail = fmt.Sprintf("%s-%s 改为 %s-%s，转交给申请 %s",
			alloc.StartTime, alloc.EndTime, resv.StartTime, resv.EndTime, resv.ReservationID)
		alloc.StartTime, alloc.EndTime = resv.StartTime, resv.EndTime
	}
	if err := tx.Allocation.UpdateScheduled(ctx, alloc, actorID); err != nil {
		return nil, mapAllocationWriteErr(err)
	}

	log := &model.AllocationChangeLog{
		AllocationID: alloc.AllocationID,
		ChangeType:   changeType,
		NewOwnerID:   strPtr(resv.RequesterID),
		Detail:       detail,
		OperatorID:   actorID,
	}
	if d.previousOwner != "" {
		log.OriginalOwnerID = strPtr(d.previousOwner)
	}
	if err := tx.Allocation.CreateChangeLog(ctx, log); err != nil {
		return nil, err
	}

	// 排课只能由一条申请持有，其余 Pending/Approved 申请随转移取消
	for i := range holders {
		if holders[i].ReservationID == resv.ReservationID {
			continue
		}
		if err := cancelReservation(ctx, tx, &holders[i], actorID); err != nil {
			return nil, err
		}
		d.cancelled++
	}
	return d, nil
}

// ────────────────────── Reject ──────────────────────

func (s *reservationService) Reject(ctx context.Context, id, actorID, reason string) (*dto.ReservationResponse, error) {
	resv, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	switch resv.Status {
	case model.ReservationRejected:
		resp := toReservationResponse(resv)
		return &resp, nil
	case model.ReservationPending:
	default:
		return nil, ErrReservationNotPending
	}

	if !resv.Room.IsManagedBy(actorID) && actorID != resv.RequesterID {
		return nil, ErrCannotReject
	}

	now := s.clock.Now()
	err = transitionReservation(ctx, s.repo, resv.ReservationID, model.ReservationPending, model.ReservationRejected, map[string]interface{}{
		"processed_by": actorID,
		"processed_at": now,
		"updated_by":   actorID,
	})
	if err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			metrics.ConcurrentConflicts.WithLabelValues("reject").Inc()
			return nil, err
		}
		s.logger.Error("驳回使用申请失败", zap.String("reservation_id", id), zap.Error(err))
		return nil, err
	}
	metrics.ReservationTransitions.WithLabelValues(string(model.ReservationRejected)).Inc()

	if actorID != resv.RequesterID {
		content := fmt.Sprintf("%s %s-%s 的使用申请未获批准。", resv.Date.Format(dateLayout), resv.StartTime, resv.EndTime)
		if reason != "" {
			content += "原因：" + reason
		}
		notifySafe(ctx, s.notifier, s.logger, Message{
			RecipientID: resv.RequesterID,
			Type:        model.NotifyReservationRejected,
			Title:       "实验室使用申请被驳回",
			Content:     content,
			RelatedType: "reservation",
			RelatedID:   resv.ReservationID,
		})
	}

	s.logger.Info("使用申请已驳回", zap.String("reservation_id", id), zap.String("actor", actorID))

	resv.Status = model.ReservationRejected
	resv.ProcessedBy = strPtr(actorID)
	resv.ProcessedAt = &now
	resp := toReservationResponse(resv)
	return &resp, nil
}

// ────────────────────── 查询 ──────────────────────

func (s *reservationService) Get(ctx context.Context, id, callerID, callerRole string) (*dto.ReservationResponse, error) {
	resv, err := s.getReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if callerRole != model.RoleAdmin && resv.RequesterID != callerID && !resv.Room.IsManagedBy(callerID) {
		return nil, ErrReservationForbidden
	}
	resp := toReservationResponse(resv)
	return &resp, nil
}

func (s *reservationService) ListMine(ctx context.Context, requesterID string, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error) {
	list, total, err := s.repo.Reservation.ListByRequester(ctx, requesterID, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询我的申请失败", zap.Error(err))
		return nil, 0, err
	}
	return toReservationResponses(list), total, nil
}

func (s *reservationService) ListPending(ctx context.Context, managerID string, page *dto.PaginationRequest) ([]dto.ReservationResponse, int64, error) {
	rooms, err := s.repo.Room.ListManagedBy(ctx, managerID)
	if err != nil {
		s.logger.Error("查询负责实验室失败", zap.Error(err))
		return nil, 0, err
	}
	roomIDs := make([]string, 0, len(rooms))
	for _, r := range rooms {
		roomIDs = append(roomIDs, r.RoomID)
	}

	list, total, err := s.repo.Reservation.ListPendingByRooms(ctx, roomIDs, page.GetOffset(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询待审批申请失败", zap.Error(err))
		return nil, 0, err
	}
	return toReservationResponses(list), total, nil
}

// ── 内部辅助方法 ──

func (s *reservationService) getReservation(ctx context.Context, id string) (*model.Reservation, error) {
	resv, err := s.repo.Reservation.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		s.logger.Error("查询使用申请失败", zap.String("reservation_id", id), zap.Error(err))
		return nil, err
	}
	return resv, nil
}

func (s *reservationService) getActiveRoom(ctx context.Context, roomID string) (*model.Room, error) {
	room, err := s.repo.Room.GetByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询实验室失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}
	if room.IsArchived {
		return nil, ErrRoomArchived
	}
	return room, nil
}

// resolveAssignment 审批必须能解析到申请人的有效授课分配，不做任何回退
func (s *reservationService) resolveAssignment(ctx context.Context, resv *model.Reservation) (*model.TeacherCourseAssignment, error) {
	assignment, err := s.repo.Assignment.FindActiveForDate(ctx, resv.RequesterID, derefStr(resv.CourseID), resv.Date)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAssignment
		}
		s.logger.Error("查询授课分配失败", zap.String("reservation_id", resv.ReservationID), zap.Error(err))
		return nil, err
	}
	return assignment, nil
}

func toReservationResponses(list []model.Reservation) []dto.ReservationResponse {
	result := make([]dto.ReservationResponse, 0, len(list))
	for i := range list {
		result = append(result, toReservationResponse(&list[i]))
	}
	return result
}

// isBusinessError 已分类的业务错误无需记录为系统错误
func isBusinessError(err error) bool {
	return errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, pkgerrors.ErrConflict) ||
		errors.Is(err, pkgerrors.ErrForbidden) ||
		errors.Is(err, pkgerrors.ErrNotFound)
}
