package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/metrics"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// 排课生成器
//
// 按日期范围与星期集合逐日生成排课。每一天依次检查：
//   closed → out_of_hours → no_assignment → room_conflict → teacher_conflict
// 第一个失败的检查决定该日的跳过原因。
// 每一天单独提交事务，部分日期跳过是正常结果，不回滚已创建的排课。
// ════════════════════════════════════════════════════════════

// GenerateParams 排课生成参数（时长已由调用方校验）
type GenerateParams struct {
	TeacherID  string
	CourseID   string
	RoomID     string
	Section    string
	From       time.Time
	To         time.Time
	Weekdays   map[time.Weekday]bool
	Start      string
	End        string
	OperatorID string
}

// Skip 被跳过的一天
type Skip struct {
	Date   time.Time
	Reason string
	Window model.OperatingWindow // out_of_hours 时为当天开放窗口
}

// GenerateResult 生成结果
type GenerateResult struct {
	Created []model.Allocation
	Skipped []Skip
}

// ScheduleGenerator 排课生成器
type ScheduleGenerator struct {
	repo   *repository.Repository
	hours  OperatingHoursRegistry
	logger *zap.Logger
}

// NewScheduleGenerator 创建排课生成器
func NewScheduleGenerator(repo *repository.Repository, hours OperatingHoursRegistry, logger *zap.Logger) *ScheduleGenerator {
	return &ScheduleGenerator{repo: repo, hours: hours, logger: logger}
}

// Generate 逐日生成排课；只有基础设施错误才会中断并返回 error
func (g *ScheduleGenerator) Generate(ctx context.Context, p GenerateParams) (*GenerateResult, error) {
	result := &GenerateResult{Created: []model.Allocation{}, Skipped: []Skip{}}

	for date := p.From; !date.After(p.To); date = date.AddDate(0, 0, 1) {
		if !p.Weekdays[date.Weekday()] {
			continue
		}

		alloc, skip, err := g.generateDay(ctx, p, date)
		if err != nil {
			return nil, err
		}
		if skip != nil {
			metrics.DaysSkipped.WithLabelValues(skip.Reason).Inc()
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		metrics.AllocationsCreated.WithLabelValues("schedule").Inc()
		result.Created = append(result.Created, *alloc)
	}

	return result, nil
}

// generateDay 单日检查与写入，冲突检测与插入在同一事务内，房间与教师行加锁
func (g *ScheduleGenerator) generateDay(ctx context.Context, p GenerateParams, date time.Time) (*model.Allocation, *Skip, error) {
	window, err := g.hours.WindowFor(ctx, date.Weekday())
	if err != nil {
		return nil, nil, err
	}
	if !window.IsOpen {
		return nil, &Skip{Date: date, Reason: pkgerrors.ReasonClosed}, nil
	}
	if !window.Contains(p.Start, p.End) {
		return nil, &Skip{Date: date, Reason: pkgerrors.ReasonOutOfHours, Window: window}, nil
	}

	var created *model.Allocation
	var reason string

	err = g.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Room.LockByID(ctx, p.RoomID); err != nil {
			return err
		}
		if _, err := tx.User.LockByID(ctx, p.TeacherID); err != nil {
			return err
		}

		assignment, err := tx.Assignment.FindActiveForDate(ctx, p.TeacherID, p.CourseID, date)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				reason = pkgerrors.ReasonNoAssignment
				return nil
			}
			return err
		}

		detector := NewConflictDetector(tx)
		if conflict, err := detector.HasRoomConflict(ctx, p.RoomID, date, p.Start, p.End, ""); err != nil {
			return err
		} else if conflict {
			reason = pkgerrors.ReasonRoomConflict
			return nil
		}
		if conflict, err := detector.HasTeacherConflict(ctx, p.TeacherID, date, p.Start, p.End, ""); err != nil {
			return err
		} else if conflict {
			reason = pkgerrors.ReasonTeacherConflict
			return nil
		}

		alloc := &model.Allocation{
			RoomID:       p.RoomID,
			Date:         date,
			StartTime:    p.Start,
			EndTime:      p.End,
			AssignmentID: strPtr(assignment.AssignmentID),
			ReservedTo:   strPtr(p.TeacherID),
			Section:      p.Section,
			Status:       model.AllocationScheduled,
		}
		alloc.CreatedBy = strPtr(p.OperatorID)
		alloc.UpdatedBy = strPtr(p.OperatorID)
		if err := tx.Allocation.Create(ctx, alloc); err != nil {
			return mapAllocationWriteErr(err)
		}
		alloc.Assignment = assignment
		created = alloc
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomConflict) {
			return nil, &Skip{Date: date, Reason: pkgerrors.ReasonRoomConflict}, nil
		}
		g.logger.Error("生成排课失败",
			zap.String("room_id", p.RoomID),
			zap.String("date", date.Format(dateLayout)),
			zap.Error(err),
		)
		return nil, nil, err
	}
	if reason != "" {
		return nil, &Skip{Date: date, Reason: reason}, nil
	}
	return created, nil, nil
}
