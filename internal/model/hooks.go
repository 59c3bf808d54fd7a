package model

import "gorm.io/gorm"

// PostgreSQL time 列读回为 "HH:MM:SS"，查询后统一规范化为 "HH:MM"

func normalizeField(p *string) {
	if p == nil || *p == "" {
		return
	}
	if v, err := NormalizeHHMM(*p); err == nil {
		*p = v
	}
}

// AfterFind gorm 钩子
func (a *Allocation) AfterFind(_ *gorm.DB) error {
	normalizeField(&a.StartTime)
	normalizeField(&a.EndTime)
	return nil
}

// AfterFind gorm 钩子
func (r *Reservation) AfterFind(_ *gorm.DB) error {
	normalizeField(&r.StartTime)
	normalizeField(&r.EndTime)
	return nil
}

// AfterFind gorm 钩子
func (m *AttendanceMark) AfterFind(_ *gorm.DB) error {
	normalizeField(&m.TimeIn)
	normalizeField(m.TimeOut)
	return nil
}

// AfterFind gorm 钩子
func (h *OperatingHour) AfterFind(_ *gorm.DB) error {
	normalizeField(h.OpenTime)
	normalizeField(h.CloseTime)
	return nil
}
