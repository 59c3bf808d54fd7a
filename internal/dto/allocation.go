package dto

// ── 排课模块 DTO ──

// AllocationResponse 排课信息
type AllocationResponse struct {
	ID           string     `json:"id"`
	Room         *RoomBrief `json:"room,omitempty"`
	RoomID       string     `json:"room_id"`
	Date         string     `json:"date"`
	StartTime    string     `json:"start_time"`
	EndTime      string     `json:"end_time"`
	AssignmentID *string    `json:"assignment_id,omitempty"`
	OwnerID      string     `json:"owner_id,omitempty"`
	CourseName   string     `json:"course_name,omitempty"`
	Section      string     `json:"section,omitempty"`
	Status       string     `json:"status"`
}

// RoomAllocationsRequest 房间排课查询（周视图）
type RoomAllocationsRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// UpdateSectionRequest 修改班级
type UpdateSectionRequest struct {
	Section string `json:"section" binding:"required,max=50"`
}

// CalendarRequest 日历订阅时间范围，缺省为今天起 120 天
type CalendarRequest struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to"   binding:"omitempty,datetime=2006-01-02"`
}

// CascadeResult 级联取消结果
type CascadeResult struct {
	AllocationsCancelled  int `json:"allocations_cancelled"`
	ReservationsCancelled int `json:"reservations_cancelled"`
}
