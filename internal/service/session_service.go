package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/metrics"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	"github.com/Seanzed08/SmartLab/pkg/database"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
	"github.com/Seanzed08/SmartLab/pkg/redis"
)

// ── 刷卡会话模块业务错误 ──

var (
	ErrNoSessionNow    = pkgerrors.New(pkgerrors.ErrNotFound, "当前时段没有已批准或进行中的使用申请")
	ErrNoActiveSession = pkgerrors.New(pkgerrors.ErrNotFound, "该实验室当前没有进行中的课程")
)

// teacherTapStatuses 教师刷卡匹配的申请状态
var teacherTapStatuses = []model.ReservationStatus{
	model.ReservationApproved, model.ReservationActive, model.ReservationCompleted,
}

// SessionService 刷卡会话业务接口
type SessionService interface {
	Tap(ctx context.Context, badgeCode, readerID string) (*dto.TapResponse, error)
	SweepOverdue(ctx context.Context, now time.Time) (*dto.SweepResponse, error)
	ActiveSessions(ctx context.Context, roomID string, date string) ([]dto.ActiveSessionResponse, error)
}

type sessionService struct {
	lab       config.LabConfig
	repo      *repository.Repository
	identity  IdentityResolver
	clock     clock.Clock
	publisher Publisher
	logger    *zap.Logger
}

// NewSessionService 创建 SessionService 实例；publisher 为 nil 时不推送
func NewSessionService(
	lab config.LabConfig,
	repo *repository.Repository,
	identity IdentityResolver,
	clk clock.Clock,
	publisher Publisher,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		lab:       lab,
		repo:      repo,
		identity:  identity,
		clock:     clk,
		publisher: publisher,
		logger:    logger,
	}
}

// ════════════════════════════════════════════════════════════
// Tap
//
// 每次刷卡先执行超时清理，再解析身份：
//   教师：Approved → Active（记录实际开始时间），Active → Completed（记录实际结束时间并签退全部学生）
//   学生：进行中的课程内首次刷卡签到，再次刷卡签退，之后不再变化
// 刷卡从不创建排课或申请。
// ════════════════════════════════════════════════════════════

func (s *sessionService) Tap(ctx context.Context, badgeCode, readerID string) (*dto.TapResponse, error) {
	now := s.clock.Now()
	if _, err := s.SweepOverdue(ctx, now); err != nil {
		return nil, err
	}

	room, err := s.identity.ResolveReader(ctx, readerID)
	if err != nil {
		return nil, err
	}

	who, err := s.identity.ResolveBadge(ctx, badgeCode)
	if err != nil {
		if errors.Is(err, ErrUnknownBadge) {
			metrics.Taps.WithLabelValues("unknown", "rejected").Inc()
		}
		return nil, err
	}

	var resp *dto.TapResponse
	switch who.Kind {
	case IdentityTeacher:
		resp, err = s.teacherTap(ctx, room, who, now)
	default:
		resp, err = s.studentTap(ctx, room, who, now)
	}
	if err != nil {
		metrics.Taps.WithLabelValues(string(who.Kind), "rejected").Inc()
		return nil, err
	}

	metrics.Taps.WithLabelValues(string(who.Kind), resp.Outcome).Inc()
	s.logger.Info("刷卡",
		zap.String("room_id", room.RoomID),
		zap.String("actor", string(who.Kind)),
		zap.String("actor_id", who.ID),
		zap.String("outcome", resp.Outcome),
	)

	if resp.Outcome != dto.TapAlreadyCompleted && resp.Outcome != dto.TapAlreadyOut {
		s.publishRoom(ctx, room.RoomID, now)
	}
	return resp, nil
}

// ── 教师刷卡 ──

func (s *sessionService) teacherTap(ctx context.Context, room *model.Room, who *Identity, now time.Time) (*dto.TapResponse, error) {
	today := clock.DateOf(now)
	at := clock.HHMM(now)

	list, err := s.repo.Reservation.ListForTeacherOnDate(ctx, room.RoomID, who.ID, today, teacherTapStatuses)
	if err != nil {
		s.logger.Error("查询教师当日申请失败", zap.String("teacher_id", who.ID), zap.Error(err))
		return nil, err
	}

	resv := s.matchTeacherReservation(list, at)
	if resv == nil {
		return nil, ErrNoSessionNow
	}

	resp := &dto.TapResponse{
		Actor:         string(IdentityTeacher),
		Name:          who.Name,
		RoomID:        room.RoomID,
		ReservationID: resv.ReservationID,
		Time:          at,
	}

	switch resv.Status {
	case model.ReservationCompleted:
		resp.Outcome = dto.TapAlreadyCompleted
		resp.Message = "本次课程已结束"
		return resp, nil

	case model.ReservationApproved:
		_, scheduledEnd := resv.ScheduledWindow()
		err := transitionReservation(ctx, s.repo, resv.ReservationID, model.ReservationApproved, model.ReservationActive, map[string]interface{}{
			"start_time":       at,
			"duration_minutes": model.MinutesBetween(at, scheduledEnd),
		})
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				metrics.ConcurrentConflicts.WithLabelValues("tap_in").Inc()
				return nil, err
			}
			s.logger.Error("教师签到失败", zap.String("reservation_id", resv.ReservationID), zap.Error(err))
			return nil, err
		}
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationActive)).Inc()
		resp.Outcome = dto.TapCheckedIn
		resp.Message = fmt.Sprintf("签到成功，计划于 %s 结束", scheduledEnd)
		return resp, nil

	case model.ReservationActive:
		marks, err := s.complete(ctx, resv, at, model.MinutesBetween(resv.StartTime, at))
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				metrics.ConcurrentConflicts.WithLabelValues("tap_out").Inc()
				return nil, err
			}
			s.logger.Error("教师签退失败", zap.String("reservation_id", resv.ReservationID), zap.Error(err))
			return nil, err
		}
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationCompleted)).Inc()
		resp.Outcome = dto.TapCheckedOut
		resp.Message = fmt.Sprintf("签退成功，%d 名学生同时签退", marks)
		return resp, nil
	}

	return nil, ErrNoSessionNow
}

// matchTeacherReservation 优先级：进行中 > 时段内已批准 > 时段内已结束
// 时段取关联排课的计划时段，开始前 tap_grace_minutes 分钟起即可签到
func (s *sessionService) matchTeacherReservation(list []model.Reservation, at string) *model.Reservation {
	var approved, completed *model.Reservation
	for i := range list {
		r := &list[i]
		if r.Status == model.ReservationActive {
			return r
		}
		start, end := r.ScheduledWindow()
		opensAt := model.FormatHHMM(minutesOf(start) - s.lab.TapGraceMinutes)
		if at < opensAt || at > end {
			continue
		}
		switch r.Status {
		case model.ReservationApproved:
			if approved == nil {
				approved = r
			}
		case model.ReservationCompleted:
			if completed == nil {
				completed = r
			}
		}
	}
	if approved != nil {
		return approved
	}
	return completed
}

// complete Active → Completed：结束时间改写为 endAt，未签退学生签退到同一时刻，关联排课同时完成
func (s *sessionService) complete(ctx context.Context, resv *model.Reservation, endAt string, duration int) (int64, error) {
	var closed int64
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		err := transitionReservation(ctx, tx, resv.ReservationID, model.ReservationActive, model.ReservationCompleted, map[string]interface{}{
			"end_time":         endAt,
			"duration_minutes": duration,
		})
		if err != nil {
			return err
		}

		n, err := tx.Attendance.CloseOpenByReservation(ctx, resv.ReservationID, endAt)
		if err != nil {
			return err
		}
		closed = n

		if resv.AllocationID != nil {
			err := tx.Allocation.UpdateStatus(ctx, *resv.AllocationID, model.AllocationScheduled, model.AllocationCompleted, "")
			if err != nil && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				return err
			}
		}
		return nil
	})
	return closed, err
}

// ── 学生刷卡 ──

func (s *sessionService) studentTap(ctx context.Context, room *model.Room, who *Identity, now time.Time) (*dto.TapResponse, error) {
	today := clock.DateOf(now)
	at := clock.HHMM(now)

	resv, err := s.repo.Reservation.FindActiveCovering(ctx, room.RoomID, today, at)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveSession
		}
		s.logger.Error("查询进行中课程失败", zap.String("room_id", room.RoomID), zap.Error(err))
		return nil, err
	}

	resp := &dto.TapResponse{
		Actor:         string(IdentityStudent),
		Name:          who.Name,
		RoomID:        room.RoomID,
		ReservationID: resv.ReservationID,
		Time:          at,
	}

	mark, err := s.repo.Attendance.GetByReservationAndStudent(ctx, resv.ReservationID, who.ID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		mark = &model.AttendanceMark{
			ReservationID: resv.ReservationID,
			StudentID:     who.ID,
			TimeIn:        at,
		}
		if err := s.repo.Attendance.Create(ctx, mark); err != nil {
			if database.IsUniqueViolation(err) {
				// 同一学生并发刷卡，另一请求已签到
				resp.Outcome = dto.TapTimeIn
				resp.Message = "已签到"
				return resp, nil
			}
			s.logger.Error("学生签到失败", zap.String("student_id", who.ID), zap.Error(err))
			return nil, err
		}
		resp.Outcome = dto.TapTimeIn
		resp.Message = "签到成功"
		return resp, nil

	case err != nil:
		s.logger.Error("查询签到记录失败", zap.String("student_id", who.ID), zap.Error(err))
		return nil, err

	case mark.IsOpen():
		if err := s.repo.Attendance.CloseMark(ctx, mark.MarkID, at); err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				resp.Outcome = dto.TapAlreadyOut
				resp.Message = "已签退"
				return resp, nil
			}
			s.logger.Error("学生签退失败", zap.String("mark_id", mark.MarkID), zap.Error(err))
			return nil, err
		}
		resp.Outcome = dto.TapTimeOut
		resp.Message = "签退成功"
		return resp, nil

	default:
		resp.Outcome = dto.TapAlreadyOut
		resp.Message = "本次课程已签退"
		return resp, nil
	}
}

// ════════════════════════════════════════════════════════════
// SweepOverdue
//
// 计划结束时间已过的 Active 申请强制结束：时长按其记录的起止时间计算，
// 未签退学生签退到计划结束时间。重复执行结果不变。
// ════════════════════════════════════════════════════════════

func (s *sessionService) SweepOverdue(ctx context.Context, now time.Time) (*dto.SweepResponse, error) {
	today := clock.DateOf(now)
	overdue, err := s.repo.Reservation.ListOverdueActive(ctx, today, clock.HHMM(now))
	if err != nil {
		s.logger.Error("查询超时会话失败", zap.Error(err))
		return nil, err
	}

	result := &dto.SweepResponse{ReservationIDs: []string{}}
	rooms := make(map[string]bool)

	for i := range overdue {
		resv := &overdue[i]
		closed, err := s.complete(ctx, resv, resv.EndTime, model.MinutesBetween(resv.StartTime, resv.EndTime))
		if err != nil {
			if errors.Is(err, pkgerrors.ErrOptimisticLock) {
				// 已被并发的清理或签退处理
				continue
			}
			s.logger.Error("超时会话结束失败", zap.String("reservation_id", resv.ReservationID), zap.Error(err))
			return nil, err
		}
		result.Completed++
		result.MarksClosed += closed
		result.ReservationIDs = append(result.ReservationIDs, resv.ReservationID)
		rooms[resv.RoomID] = true
	}

	if result.Completed > 0 {
		metrics.SessionsSwept.Add(float64(result.Completed))
		metrics.ReservationTransitions.WithLabelValues(string(model.ReservationCompleted)).Add(float64(result.Completed))
		s.logger.Info("超时会话已结束", zap.Int("count", result.Completed), zap.Int64("marks_closed", result.MarksClosed))
		for roomID := range rooms {
			s.publishRoom(ctx, roomID, now)
		}
	}
	return result, nil
}

// ────────────────────── ActiveSessions ──────────────────────

func (s *sessionService) ActiveSessions(ctx context.Context, roomID string, date string) ([]dto.ActiveSessionResponse, error) {
	now := s.clock.Now()
	if _, err := s.SweepOverdue(ctx, now); err != nil {
		return nil, err
	}

	day := clock.DateOf(now)
	if date != "" {
		d, err := parseDate(date, now.Location())
		if err != nil {
			return nil, err
		}
		day = d
	}

	if _, err := s.repo.Room.GetByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询实验室失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	return s.activeSessions(ctx, roomID, day, now)
}

func (s *sessionService) activeSessions(ctx context.Context, roomID string, day, now time.Time) ([]dto.ActiveSessionResponse, error) {
	list, err := s.repo.Reservation.ListActiveByRoom(ctx, roomID, day)
	if err != nil {
		s.logger.Error("查询进行中会话失败", zap.String("room_id", roomID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ActiveSessionResponse, 0, len(list))
	for i := range list {
		r := &list[i]
		marks, err := s.repo.Attendance.ListByReservation(ctx, r.ReservationID)
		if err != nil {
			s.logger.Error("查询签到记录失败", zap.String("reservation_id", r.ReservationID), zap.Error(err))
			return nil, err
		}

		item := dto.ActiveSessionResponse{
			ReservationID: r.ReservationID,
			RoomID:        r.RoomID,
			Section:       r.Section,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			Attendees:     make([]dto.AttendeeResponse, 0, len(marks)),
		}
		if clock.SameDay(day, now) {
			item.RemainingMinutes = model.MinutesBetween(clock.HHMM(now), r.EndTime)
		}
		if r.Requester != nil {
			item.Teacher = &dto.UserBrief{ID: r.Requester.UserID, Name: r.Requester.Name}
		}
		for _, m := range marks {
			a := dto.AttendeeResponse{StudentID: m.StudentID, TimeIn: m.TimeIn, TimeOut: m.TimeOut}
			if m.Student != nil {
				a.StudentNo, a.Name = m.Student.StudentNo, m.Student.Name
			}
			item.Attendees = append(item.Attendees, a)
		}
		result = append(result, item)
	}
	return result, nil
}

// publishRoom 推送房间当前会话到 lab:<room>:sessions，失败只记录
func (s *sessionService) publishRoom(ctx context.Context, roomID string, now time.Time) {
	if s.publisher == nil {
		return
	}
	sessions, err := s.activeSessions(ctx, roomID, clock.DateOf(now), now)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, redis.SessionChannel(roomID), sessions); err != nil {
		metrics.NotificationFailures.WithLabelValues("realtime").Inc()
		s.logger.Warn("推送实验室会话失败", zap.String("room_id", roomID), zap.Error(err))
	}
}
