package dto

// ── 排课生成模块 DTO ──

// GenerateScheduleRequest 按日期范围与星期批量生成排课
type GenerateScheduleRequest struct {
	TeacherID string   `json:"teacher_id" binding:"omitempty,uuid"` // 管理员代排时必填
	CourseID  string   `json:"course_id"  binding:"required,uuid"`
	RoomID    string   `json:"room_id"    binding:"required,uuid"`
	Section   string   `json:"section"    binding:"required,max=50"`
	DateFrom  string   `json:"date_from"  binding:"required,datetime=2006-01-02"`
	DateTo    string   `json:"date_to"    binding:"required,datetime=2006-01-02"`
	Weekdays  []string `json:"weekdays"   binding:"required,min=1,max=7,dive,weekday"`
	StartTime string   `json:"start_time" binding:"required,hhmm"`
	EndTime   string   `json:"end_time"   binding:"required,hhmm"`
}

// SkippedDay 单个被跳过的日期
type SkippedDay struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// SkipReasonGroup 按原因分组的跳过日期
type SkipReasonGroup struct {
	Reason string   `json:"reason"`
	Label  string   `json:"label"`
	Dates  []string `json:"dates"`
	Detail string   `json:"detail,omitempty"` // out_of_hours 时为各日开放窗口
}

// GenerateScheduleResponse 排课生成结果
type GenerateScheduleResponse struct {
	Success bool                 `json:"success"` // 至少创建一条
	Message string               `json:"message"`
	Created []AllocationResponse `json:"created"`
	Skipped []SkippedDay         `json:"skipped"`
	Reasons []SkipReasonGroup    `json:"reasons,omitempty"`
}
