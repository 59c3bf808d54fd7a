package dto

// ── 使用申请模块 DTO ──

// 提交结果
const (
	SubmitOutcomePending        = "pending"
	SubmitOutcomeAutoApproved   = "auto_approved"
	SubmitOutcomeAlreadyPending = "already_pending"
	SubmitOutcomeAlreadyExists  = "already_exists"
)

// SubmitReservationRequest 提交使用申请
type SubmitReservationRequest struct {
	RoomID    string `json:"room_id"    binding:"required,uuid"`
	CourseID  string `json:"course_id"  binding:"omitempty,uuid"`
	Date      string `json:"date"       binding:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time"   binding:"required,hhmm"`
	Section   string `json:"section"    binding:"max=50"`
	Remark    string `json:"remark"     binding:"max=500"`
}

// SubmitReservationResponse 提交结果
type SubmitReservationResponse struct {
	Outcome     string              `json:"outcome"`
	Reservation ReservationResponse `json:"reservation"`
}

// RejectReservationRequest 驳回申请
type RejectReservationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ReservationListRequest 申请列表查询
type ReservationListRequest struct {
	PaginationRequest
}

// ReservationResponse 使用申请信息
type ReservationResponse struct {
	ID              string     `json:"id"`
	RoomID          string     `json:"room_id"`
	Room            *RoomBrief `json:"room,omitempty"`
	Requester       *UserBrief `json:"requester,omitempty"`
	RequesterID     string     `json:"requester_id"`
	Date            string     `json:"date"`
	StartTime       string     `json:"start_time"`
	EndTime         string     `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	AllocationID    *string    `json:"allocation_id,omitempty"`
	AssignmentID    *string    `json:"assignment_id,omitempty"`
	Section         string     `json:"section,omitempty"`
	Remark          string     `json:"remark,omitempty"`
	Status          string     `json:"status"`
	ProcessedBy     *string    `json:"processed_by,omitempty"`
	ProcessedAt     *string    `json:"processed_at,omitempty"`
	CreatedAt       string     `json:"created_at"`
}
