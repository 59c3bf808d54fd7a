package dto

// ── 刷卡会话模块 DTO ──

// 刷卡结果
const (
	TapCheckedIn        = "checked_in"
	TapCheckedOut       = "checked_out"
	TapAlreadyCompleted = "already_completed"
	TapTimeIn           = "time_in"
	TapTimeOut          = "time_out"
	TapAlreadyOut       = "already_tapped_out"
)

// TapRequest 读卡器上报刷卡
type TapRequest struct {
	BadgeCode string `json:"badge_code" binding:"required,max=64"`
}

// TapResponse 刷卡结果
type TapResponse struct {
	Outcome       string `json:"outcome"`
	Actor         string `json:"actor"` // teacher | student
	Name          string `json:"name"`
	RoomID        string `json:"room_id"`
	ReservationID string `json:"reservation_id"`
	Time          string `json:"time"`
	Message       string `json:"message"`
}

// AttendeeResponse 在场学生
type AttendeeResponse struct {
	StudentID string  `json:"student_id"`
	StudentNo string  `json:"student_no,omitempty"`
	Name      string  `json:"name,omitempty"`
	TimeIn    string  `json:"time_in"`
	TimeOut   *string `json:"time_out,omitempty"`
}

// ActiveSessionResponse 进行中的会话
type ActiveSessionResponse struct {
	ReservationID    string             `json:"reservation_id"`
	RoomID           string             `json:"room_id"`
	Teacher          *UserBrief         `json:"teacher,omitempty"`
	Section          string             `json:"section,omitempty"`
	StartTime        string             `json:"start_time"`
	EndTime          string             `json:"end_time"`
	RemainingMinutes int                `json:"remaining_minutes"`
	Attendees        []AttendeeResponse `json:"attendees"`
}

// ActiveSessionsRequest 会话查询，缺省为今天
type ActiveSessionsRequest struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// SweepResponse 超时清理结果
type SweepResponse struct {
	Completed      int      `json:"completed"`
	MarksClosed    int64    `json:"marks_closed"`
	ReservationIDs []string `json:"reservation_ids"`
}
