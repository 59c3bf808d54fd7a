package repository

import (
	"testing"
	"time"

	"github.com/Seanzed08/SmartLab/internal/model"
)

func TestWeekdayConversion_RoundTrip(t *testing.T) {
	for day := time.Sunday; day <= time.Saturday; day++ {
		iso := weekdayToISO(day)
		if iso < 1 || iso > 7 {
			t.Fatalf("weekdayToISO(%s)=%d 越界", day, iso)
		}
		if back := isoToWeekday(iso); back != day {
			t.Errorf("往返转换失败: %s → %d → %s", day, iso, back)
		}
	}
	if weekdayToISO(time.Monday) != 1 || weekdayToISO(time.Sunday) != 7 {
		t.Error("ISO 编号应为 1=周一 … 7=周日")
	}
}

func TestToWindow(t *testing.T) {
	open, closeAt := "07:00:00", "21:00:00"
	w, err := toWindow(modelRow(1, true, &open, &closeAt))
	if err != nil {
		t.Fatalf("toWindow 应成功: %v", err)
	}
	if w.Weekday != time.Monday || !w.IsOpen || w.Open != "07:00" || w.Close != "21:00" {
		t.Errorf("窗口解析错误: %+v", w)
	}

	// 标记开放但缺少时间 → 视为关闭
	w, err = toWindow(modelRow(7, true, nil, nil))
	if err != nil {
		t.Fatalf("toWindow 应成功: %v", err)
	}
	if w.IsOpen || w.Weekday != time.Sunday {
		t.Errorf("期望周日关闭，实际=%+v", w)
	}
}

func modelRow(day int, open bool, openTime, closeTime *string) model.OperatingHour {
	return model.OperatingHour{DayOfWeek: day, IsOpen: open, OpenTime: openTime, CloseTime: closeTime}
}
