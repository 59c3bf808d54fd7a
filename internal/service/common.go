package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	"github.com/Seanzed08/SmartLab/pkg/database"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 跨模块业务错误 ──

var (
	ErrRoomNotFound    = pkgerrors.New(pkgerrors.ErrNotFound, "实验室不存在")
	ErrRoomArchived    = pkgerrors.New(pkgerrors.ErrValidation, "实验室已归档")
	ErrTeacherNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "教师不存在")

	ErrInvalidDate      = pkgerrors.New(pkgerrors.ErrValidation, "日期格式错误，应为 YYYY-MM-DD")
	ErrInvalidTime      = pkgerrors.New(pkgerrors.ErrValidation, "时间格式错误，应为 HH:MM")
	ErrInvalidTimeRange = pkgerrors.New(pkgerrors.ErrValidation, "开始时间必须早于结束时间")
	ErrDateInPast       = pkgerrors.New(pkgerrors.ErrValidation, "不能预约或审批已过去的时间")

	ErrDayClosed       = pkgerrors.NewConflict(pkgerrors.ReasonClosed, "实验室当天不开放")
	ErrOutOfHours      = pkgerrors.NewConflict(pkgerrors.ReasonOutOfHours, "申请时段超出实验室开放时间")
	ErrNoAssignment    = pkgerrors.NewConflict(pkgerrors.ReasonNoAssignment, "该日期不在教师任何有效授课分配的学期内")
	ErrRoomConflict    = pkgerrors.NewConflict(pkgerrors.ReasonRoomConflict, "该时段实验室已被占用")
	ErrTeacherConflict = pkgerrors.NewConflict(pkgerrors.ReasonTeacherConflict, "该教师在此时段已有其他排课")

	ErrInvalidTransition = pkgerrors.New(pkgerrors.ErrConflict, "申请当前状态不允许此迁移")
)

const dateLayout = "2006-01-02"

// transitionReservation 先查状态迁移表，再以 from 为条件写入
func transitionReservation(ctx context.Context, repo *repository.Repository, id string, from, to model.ReservationStatus, fields map[string]interface{}) error {
	if !model.AllowedReservationTransition(from, to) {
		return ErrInvalidTransition
	}
	return repo.Reservation.UpdateStatus(ctx, id, from, to, fields)
}

// parseDate 按实验室时区解析日期
func parseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// normalizeWindow 规范化起止时间并校验先后
func normalizeWindow(start, end string) (string, string, error) {
	s, err := model.NormalizeHHMM(start)
	if err != nil {
		return "", "", ErrInvalidTime
	}
	e, err := model.NormalizeHHMM(end)
	if err != nil {
		return "", "", ErrInvalidTime
	}
	if s >= e {
		return "", "", ErrInvalidTimeRange
	}
	return s, e, nil
}

// checkSessionLength 单次使用时长（含边界）
func checkSessionLength(lab config.LabConfig, start, end string) error {
	minutes := model.MinutesBetween(start, end)
	if minutes < lab.MinSessionMinutes || minutes > lab.MaxSessionMinutes {
		return pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf(
			"单次使用时长须在 %d 至 %d 分钟之间，当前为 %d 分钟",
			lab.MinSessionMinutes, lab.MaxSessionMinutes, minutes,
		))
	}
	return nil
}

// isPast 日期早于今天，或为今天且开始时间不晚于当前时刻
func isPast(now, date time.Time, start string) bool {
	today := now.Format(dateLayout)
	d := date.Format(dateLayout)
	if d != today {
		return d < today
	}
	return start <= clock.HHMM(now)
}

// mapAllocationWriteErr 排他约束冲突（并发插入/改期）转换为房间冲突
func mapAllocationWriteErr(err error) error {
	if database.IsExclusionViolation(err) {
		return ErrRoomConflict
	}
	return err
}

func strPtr(s string) *string {
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// ── 响应转换 ──

func toAllocationResponse(a *model.Allocation) dto.AllocationResponse {
	resp := dto.AllocationResponse{
		ID:           a.AllocationID,
		RoomID:       a.RoomID,
		Date:         a.Date.Format(dateLayout),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		AssignmentID: a.AssignmentID,
		OwnerID:      a.OwnerID(),
		Section:      a.Section,
		Status:       string(a.Status),
	}
	if a.Room != nil {
		resp.Room = &dto.RoomBrief{ID: a.Room.RoomID, Name: a.Room.Name, Location: a.Room.Location}
	}
	if a.Assignment != nil && a.Assignment.Course != nil {
		resp.CourseName = a.Assignment.Course.Name
	}
	return resp
}

func toReservationResponse(r *model.Reservation) dto.ReservationResponse {
	resp := dto.ReservationResponse{
		ID:              r.ReservationID,
		RoomID:          r.RoomID,
		RequesterID:     r.RequesterID,
		Date:            r.Date.Format(dateLayout),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		DurationMinutes: r.DurationMinutes,
		AllocationID:    r.AllocationID,
		AssignmentID:    r.AssignmentID,
		Section:         r.Section,
		Remark:          r.Remark,
		Status:          string(r.Status),
		ProcessedBy:     r.ProcessedBy,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.ProcessedAt != nil {
		resp.ProcessedAt = strPtr(r.ProcessedAt.Format(time.RFC3339))
	}
	if r.Room != nil {
		resp.Room = &dto.RoomBrief{ID: r.Room.RoomID, Name: r.Room.Name, Location: r.Room.Location}
	}
	if r.Requester != nil {
		resp.Requester = &dto.UserBrief{ID: r.Requester.UserID, Name: r.Requester.Name}
	}
	return resp
}
