package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

const (
	calendarDefaultDays = 120
	calendarMaxDays     = 366
	calendarProductID   = "-//SmartLab//Lab Allocations//EN"
)

// CalendarService 教师排课日历订阅
type CalendarService interface {
	// TeacherFeed 导出教师在时间范围内的排课（iCalendar 文本）
	TeacherFeed(ctx context.Context, teacherID string, req *dto.CalendarRequest) (string, error)
}

type calendarService struct {
	lab    config.LabConfig
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(lab config.LabConfig, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) CalendarService {
	return &calendarService{lab: lab, repo: repo, clock: clk, logger: logger}
}

func (s *calendarService) TeacherFeed(ctx context.Context, teacherID string, req *dto.CalendarRequest) (string, error) {
	now := s.clock.Now()
	loc := now.Location()

	from := clock.DateOf(now)
	to := from.AddDate(0, 0, calendarDefaultDays)
	var err error
	if req != nil && req.From != "" {
		if from, err = parseDate(req.From, loc); err != nil {
			return "", err
		}
	}
	if req != nil && req.To != "" {
		if to, err = parseDate(req.To, loc); err != nil {
			return "", err
		}
	}
	if to.Before(from) {
		return "", ErrDateRangeInvalid
	}
	if to.Sub(from).Hours() > calendarMaxDays*24 {
		return "", ErrDateRangeTooLong
	}

	list, err := s.repo.Allocation.ListByTeacherRange(ctx, teacherID, from, to)
	if err != nil {
		s.logger.Error("查询教师排课失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetXWRCalName("SmartLab")
	cal.SetXWRTimezone(loc.String())

	for i := range list {
		addAllocationEvent(cal, &list[i], loc, now)
	}
	return cal.Serialize(), nil
}

func addAllocationEvent(cal *ics.Calendar, a *model.Allocation, loc *time.Location, stamp time.Time) {
	event := cal.AddEvent(a.AllocationID + "@smartlab")
	event.SetDtStampTime(stamp)
	event.SetStartAt(atTimeOfDay(a.Date, a.StartTime, loc))
	event.SetEndAt(atTimeOfDay(a.Date, a.EndTime, loc))

	summary := "Lab session"
	if a.Assignment != nil && a.Assignment.Course != nil {
		summary = a.Assignment.Course.Name
	}
	if a.Section != "" {
		summary = fmt.Sprintf("%s (%s)", summary, a.Section)
	}
	event.SetSummary(summary)

	if a.Room != nil {
		where := a.Room.Name
		if a.Room.Location != "" {
			where = strings.Join([]string{a.Room.Name, a.Room.Location}, ", ")
		}
		event.SetLocation(where)
	}

	if a.Status == model.AllocationCompleted {
		event.SetDescription("completed")
	}
	event.SetStatus(ics.ObjectStatusConfirmed)
}

// atTimeOfDay 日期 + HH:MM 组合为实验室时区的时刻
func atTimeOfDay(date time.Time, hhmm string, loc *time.Location) time.Time {
	minutes, err := model.ParseHHMM(hhmm)
	if err != nil {
		minutes = 0
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
}
