package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Seanzed08/SmartLab/internal/model"
)

// OperatingHourRepository 开放时间数据访问接口
// 存储层使用 ISO 星期编号，对外统一为 time.Weekday
type OperatingHourRepository interface {
	// GetWindow 查询某天的开放窗口，无记录时返回 gorm.ErrRecordNotFound
	GetWindow(ctx context.Context, day time.Weekday) (*model.OperatingWindow, error)
	ListWindows(ctx context.Context) ([]model.OperatingWindow, error)
	Upsert(ctx context.Context, windows []model.OperatingWindow, operatorID string) error
}

// ── 星期编号转换（仅此一处） ──

// weekdayToISO time.Weekday(0=周日) → ISO(1=周一 … 7=周日)
func weekdayToISO(day time.Weekday) int {
	if day == time.Sunday {
		return 7
	}
	return int(day)
}

// isoToWeekday ISO(1=周一 … 7=周日) → time.Weekday(0=周日)
func isoToWeekday(iso int) time.Weekday {
	return time.Weekday(iso % 7)
}

type operatingHourRepo struct {
	db *gorm.DB
}

func NewOperatingHourRepo(db *gorm.DB) OperatingHourRepository {
	return &operatingHourRepo{db: db}
}

func (r *operatingHourRepo) GetWindow(ctx context.Context, day time.Weekday) (*model.OperatingWindow, error) {
	var row model.OperatingHour
	err := r.db.WithContext(ctx).
		Where("day_of_week = ?", weekdayToISO(day)).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	w, err := toWindow(row)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *operatingHourRepo) ListWindows(ctx context.Context) ([]model.OperatingWindow, error) {
	var rows []model.OperatingHour
	if err := r.db.WithContext(ctx).Order("day_of_week ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	windows := make([]model.OperatingWindow, 0, len(rows))
	for _, row := range rows {
		w, err := toWindow(row)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func (r *operatingHourRepo) Upsert(ctx context.Context, windows []model.OperatingWindow, operatorID string) error {
	if len(windows) == 0 {
		return nil
	}
	rows := make([]model.OperatingHour, 0, len(windows))
	for _, w := range windows {
		row := model.OperatingHour{
			DayOfWeek: weekdayToISO(w.Weekday),
			IsOpen:    w.IsOpen,
		}
		if w.IsOpen {
			open, closeAt := w.Open, w.Close
			row.OpenTime = &open
			row.CloseTime = &closeAt
		}
		if operatorID != "" {
			op := operatorID
			row.UpdatedBy = &op
		}
		row.UpdatedAt = time.Now()
		rows = append(rows, row)
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day_of_week"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_open", "open_time", "close_time", "updated_by", "updated_at"}),
		}).
		Create(&rows).Error
}

func toWindow(row model.OperatingHour) (model.OperatingWindow, error) {
	w := model.OperatingWindow{Weekday: isoToWeekday(row.DayOfWeek), IsOpen: row.IsOpen}
	if !row.IsOpen || row.OpenTime == nil || row.CloseTime == nil {
		w.IsOpen = false
		return w, nil
	}
	open, err := model.NormalizeHHMM(*row.OpenTime)
	if err != nil {
		return w, fmt.Errorf("开放时间数据异常(day=%d): %w", row.DayOfWeek, err)
	}
	closeAt, err := model.NormalizeHHMM(*row.CloseTime)
	if err != nil {
		return w, fmt.Errorf("关闭时间数据异常(day=%d): %w", row.DayOfWeek, err)
	}
	w.Open, w.Close = open, closeAt
	return w, nil
}
