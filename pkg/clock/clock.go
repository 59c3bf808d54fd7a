package clock

import (
	"sync"
	"time"
)

// Clock 可注入的时钟
type Clock interface {
	Now() time.Time
}

// Real 使用系统时间，并转换到实验室所在时区
type Real struct {
	Loc *time.Location
}

// Now 返回当前时间
func (r Real) Now() time.Time {
	if r.Loc == nil {
		return time.Now()
	}
	return time.Now().In(r.Loc)
}

// Fixed 固定时钟（测试用），可通过 Set 推进
type Fixed struct {
	mu sync.RWMutex
	t  time.Time
}

// NewFixed 创建固定时钟
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t}
}

// Now 返回固定时间
func (f *Fixed) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.t
}

// Set 设置当前时间
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t
	f.mu.Unlock()
}

// DateOf 截取日期部分（保留时区）
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay 判断两个时间是否为同一天（按各自日历日期比较）
func SameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// HHMM 取时刻 "HH:MM"
func HHMM(t time.Time) string {
	return t.Format("15:04")
}
