package dto

// ── 开放时间模块 DTO ──

// OperatingWindowItem 单日开放窗口
type OperatingWindowItem struct {
	Day       string `json:"day"        binding:"required,weekday"` // monday … sunday
	IsOpen    bool   `json:"is_open"`
	OpenTime  string `json:"open_time"  binding:"omitempty,hhmm"`
	CloseTime string `json:"close_time" binding:"omitempty,hhmm"`
}

// UpdateOperatingHoursRequest 批量更新开放时间
type UpdateOperatingHoursRequest struct {
	Days []OperatingWindowItem `json:"days" binding:"required,min=1,max=7,dive"`
}

// OperatingHoursResponse 一周开放时间（周一至周日）
type OperatingHoursResponse struct {
	Days []OperatingWindowItem `json:"days"`
}
