package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 开放时间模块业务错误 ──

var (
	ErrInvalidWeekday    = pkgerrors.New(pkgerrors.ErrValidation, "无效的星期")
	ErrInvalidOpenWindow = pkgerrors.New(pkgerrors.ErrValidation, "开放时间必须早于关闭时间")
	ErrDuplicateWeekday  = pkgerrors.New(pkgerrors.ErrValidation, "同一星期重复设置")
)

// OperatingHoursRegistry 按星期查询开放窗口
// 无记录的日期一律视为关闭
type OperatingHoursRegistry interface {
	WindowFor(ctx context.Context, day time.Weekday) (model.OperatingWindow, error)
}

// OperatingHoursService 开放时间业务接口
type OperatingHoursService interface {
	OperatingHoursRegistry
	ListWeek(ctx context.Context) (*dto.OperatingHoursResponse, error)
	UpdateWeek(ctx context.Context, req *dto.UpdateOperatingHoursRequest, callerID string) (*dto.OperatingHoursResponse, error)
}

type operatingHoursService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOperatingHoursService 创建 OperatingHoursService 实例
func NewOperatingHoursService(repo *repository.Repository, logger *zap.Logger) OperatingHoursService {
	return &operatingHoursService{repo: repo, logger: logger}
}

func (s *operatingHoursService) WindowFor(ctx context.Context, day time.Weekday) (model.OperatingWindow, error) {
	w, err := s.repo.OperatingHour.GetWindow(ctx, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ClosedWindow(day), nil
		}
		s.logger.Error("查询开放时间失败", zap.Stringer("day", day), zap.Error(err))
		return model.OperatingWindow{}, err
	}
	return *w, nil
}

// ────────────────────── ListWeek ──────────────────────

func (s *operatingHoursService) ListWeek(ctx context.Context) (*dto.OperatingHoursResponse, error) {
	windows, err := s.repo.OperatingHour.ListWindows(ctx)
	if err != nil {
		s.logger.Error("查询开放时间失败", zap.Error(err))
		return nil, err
	}
	return toOperatingHoursResponse(windows), nil
}

// ────────────────────── UpdateWeek ──────────────────────

func (s *operatingHoursService) UpdateWeek(ctx context.Context, req *dto.UpdateOperatingHoursRequest, callerID string) (*dto.OperatingHoursResponse, error) {
	seen := make(map[time.Weekday]bool, len(req.Days))
	windows := make([]model.OperatingWindow, 0, len(req.Days))

	for _, item := range req.Days {
		day, ok := model.ParseWeekday(item.Day)
		if !ok {
			return nil, ErrInvalidWeekday
		}
		if seen[day] {
			return nil, ErrDuplicateWeekday
		}
		seen[day] = true

		w := model.ClosedWindow(day)
		if item.IsOpen {
			open, err := model.NormalizeHHMM(item.OpenTime)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("%s 开放时间格式错误", item.Day))
			}
			closeAt, err := model.NormalizeHHMM(item.CloseTime)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.ErrValidation, fmt.Sprintf("%s 关闭时间格式错误", item.Day))
			}
			if open >= closeAt {
				return nil, ErrInvalidOpenWindow
			}
			w.IsOpen, w.Open, w.Close = true, open, closeAt
		}
		windows = append(windows, w)
	}

	if err := s.repo.OperatingHour.Upsert(ctx, windows, callerID); err != nil {
		s.logger.Error("更新开放时间失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("开放时间已更新", zap.String("operator", callerID), zap.Int("days", len(windows)))
	return s.ListWeek(ctx)
}

// ── 内部辅助方法 ──

// toOperatingHoursResponse 按周一至周日输出，缺失的日期显示为关闭
func toOperatingHoursResponse(windows []model.OperatingWindow) *dto.OperatingHoursResponse {
	byDay := make(map[time.Weekday]model.OperatingWindow, len(windows))
	for _, w := range windows {
		byDay[w.Weekday] = w
	}

	resp := &dto.OperatingHoursResponse{Days: make([]dto.OperatingWindowItem, 0, 7)}
	for _, day := range model.WeekOrder {
		w, ok := byDay[day]
		if !ok {
			w = model.ClosedWindow(day)
		}
		resp.Days = append(resp.Days, dto.OperatingWindowItem{
			Day:       model.WeekdayName(day),
			IsOpen:    w.IsOpen,
			OpenTime:  w.Open,
			CloseTime: w.Close,
		})
	}
	return resp
}
