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
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 排课模块业务错误 ──

var (
	ErrDateRangeInvalid = pkgerrors.New(pkgerrors.ErrValidation, "结束日期不能早于开始日期")
	ErrDateRangeTooLong = pkgerrors.New(pkgerrors.ErrValidation, "日期范围不能超过 366 天")
	ErrTeacherRequired  = pkgerrors.New(pkgerrors.ErrValidation, "管理员代排时必须指定教师")
	ErrScheduleForOther = pkgerrors.New(pkgerrors.ErrForbidden, "教师只能为自己排课")
)

const maxGenerateDays = 366

// 跳过原因展示顺序与文案
var skipReasonOrder = []struct {
	reason string
	label  string
}{
	{pkgerrors.ReasonClosed, "实验室不开放"},
	{pkgerrors.ReasonOutOfHours, "超出开放时间"},
	{pkgerrors.ReasonNoAssignment, "无有效授课分配"},
	{pkgerrors.ReasonRoomConflict, "实验室时段冲突"},
	{pkgerrors.ReasonTeacherConflict, "教师时段冲突"},
}

// ScheduleService 排课生成业务接口
type ScheduleService interface {
	Generate(ctx context.Context, req *dto.GenerateScheduleRequest, callerID, callerRole string) (*dto.GenerateScheduleResponse, error)
}

type scheduleService struct {
	lab       config.LabConfig
	repo      *repository.Repository
	generator *ScheduleGenerator
	clock     clock.Clock
	logger    *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(lab config.LabConfig, repo *repository.Repository, hours OperatingHoursRegistry, clk clock.Clock, logger *zap.Logger) ScheduleService {
	return &scheduleService{
		lab:       lab,
		repo:      repo,
		generator: NewScheduleGenerator(repo, hours, logger),
		clock:     clk,
		logger:    logger,
	}
}

// ────────────────────── Generate ──────────────────────

func (s *scheduleService) Generate(ctx context.Context, req *dto.GenerateScheduleRequest, callerID, callerRole string) (*dto.GenerateScheduleResponse, error) {
	// 1. 确定教师
	teacherID := callerID
	if callerRole == model.RoleAdmin {
		if req.TeacherID == "" {
			return nil, ErrTeacherRequired
		}
		teacherID = req.TeacherID
	} else if req.TeacherID != "" && req.TeacherID != callerID {
		return nil, ErrScheduleForOther
	}

	// 2. 参数校验
	loc := s.clock.Now().Location()
	from, err := parseDate(req.DateFrom, loc)
	if err != nil {
		return nil, err
	}
	to, err := parseDate(req.DateTo, loc)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrDateRangeInvalid
	}
	if to.Sub(from) > maxGenerateDays*24*time.Hour {
		return nil, ErrDateRangeTooLong
	}

	start, end, err := normalizeWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := checkSessionLength(s.lab, start, end); err != nil {
		return nil, err
	}

	weekdays := make(map[time.Weekday]bool, len(req.Weekdays))
	for _, name := range req.Weekdays {
		day, ok := model.ParseWeekday(name)
		if !ok {
			return nil, ErrInvalidWeekday
		}
		weekdays[day] = true
	}

	// 3. 房间与教师存在性
	room, err := s.repo.Room.GetByID(ctx, req.RoomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		s.logger.Error("查询实验室失败", zap.String("room_id", req.RoomID), zap.Error(err))
		return nil, err
	}
	if room.IsArchived {
		return nil, ErrRoomArchived
	}
	if _, err := s.repo.User.GetByID(ctx, teacherID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}

	// 4. 逐日生成
	result, err := s.generator.Generate(ctx, GenerateParams{
		TeacherID:  teacherID,
		CourseID:   req.CourseID,
		RoomID:     room.RoomID,
		Section:    req.Section,
		From:       from,
		To:         to,
		Weekdays:   weekdays,
		Start:      start,
		End:        end,
		OperatorID: callerID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("排课生成完成",
		zap.String("room_id", room.RoomID),
		zap.String("teacher_id", teacherID),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)

	return buildGenerateResponse(result), nil
}

// ── 内部辅助方法 ──

func buildGenerateResponse(result *GenerateResult) *dto.GenerateScheduleResponse {
	resp := &dto.GenerateScheduleResponse{
		Success: len(result.Created) > 0 || len(result.Skipped) == 0,
		Message: fmt.Sprintf("%d slot(s) created; %d day(s) skipped", len(result.Created), len(result.Skipped)),
		Created: make([]dto.AllocationResponse, 0, len(result.Created)),
		Skipped: make([]dto.SkippedDay, 0, len(result.Skipped)),
	}
	for i := range result.Created {
		resp.Created = append(resp.Created, toAllocationResponse(&result.Created[i]))
	}
	for _, sk := range result.Skipped {
		resp.Skipped = append(resp.Skipped, dto.SkippedDay{
			Date:   sk.Date.Format(dateLayout),
			Reason: sk.Reason,
			Detail: skipDetail(sk),
		})
	}
	resp.Reasons = groupSkips(result.Skipped)
	return resp
}

// groupSkips 按原因分组，固定顺序，组内日期升序
func groupSkips(skips []Skip) []dto.SkipReasonGroup {
	if len(skips) == 0 {
		return nil
	}
	byReason := make(map[string][]Skip)
	for _, sk := range skips {
		byReason[sk.Reason] = append(byReason[sk.Reason], sk)
	}

	groups := make([]dto.SkipReasonGroup, 0, len(byReason))
	for _, r := range skipReasonOrder {
		list, ok := byReason[r.reason]
		if !ok {
			continue
		}
		g := dto.SkipReasonGroup{Reason: r.reason, Label: r.label, Dates: make([]string, 0, len(list))}
		seenWindow := make(map[string]bool)
		for _, sk := range list {
			g.Dates = append(g.Dates, sk.Date.Format(dateLayout))
			if d := skipDetail(sk); d != "" && !seenWindow[d] {
				seenWindow[d] = true
				if g.Detail != "" {
					g.Detail += "; "
				}
				g.Detail += d
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func skipDetail(sk Skip) string {
	if sk.Reason != pkgerrors.ReasonOutOfHours {
		return ""
	}
	return fmt.Sprintf("%s %s-%s", model.WeekdayName(sk.Window.Weekday), sk.Window.Open, sk.Window.Close)
}
