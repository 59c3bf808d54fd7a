package model

import (
	"strings"
	"time"
)

// OperatingHour 开放时间表 — 对应 operating_hours
// DayOfWeek 采用 ISO 编号：1=周一 … 7=周日
type OperatingHour struct {
	DayOfWeek int     `gorm:"primaryKey;autoIncrement:false"  json:"day_of_week"`
	IsOpen    bool    `gorm:"not null;default:false"          json:"is_open"`
	OpenTime  *string `gorm:"type:time"                       json:"open_time,omitempty"`
	CloseTime *string `gorm:"type:time"                       json:"close_time,omitempty"`
	BaseModel
}

// TableName 指定表名
func (OperatingHour) TableName() string { return "operating_hours" }

// OperatingWindow 某个星期几的开放窗口（业务层统一使用 time.Weekday 编号）
type OperatingWindow struct {
	Weekday time.Weekday
	IsOpen  bool
	Open    string // HH:MM，关闭时为空
	Close   string
}

// ClosedWindow 返回指定星期几的关闭窗口
func ClosedWindow(day time.Weekday) OperatingWindow {
	return OperatingWindow{Weekday: day}
}

// Contains 判断 [start, end) 是否完全落在开放窗口内
func (w OperatingWindow) Contains(start, end string) bool {
	if !w.IsOpen {
		return false
	}
	return w.Open <= start && end <= w.Close
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday 解析英文星期名（不区分大小写，支持 mon/tue 等三字母缩写）
func ParseWeekday(name string) (time.Weekday, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if d, ok := weekdayNames[n]; ok {
		return d, true
	}
	if len(n) == 3 {
		for full, d := range weekdayNames {
			if strings.HasPrefix(full, n) {
				return d, true
			}
		}
	}
	return 0, false
}

// WeekdayName 星期名（小写英文）
func WeekdayName(d time.Weekday) string {
	return strings.ToLower(d.String())
}

// WeekOrder 周一至周日
var WeekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}
