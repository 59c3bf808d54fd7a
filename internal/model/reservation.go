package model

import "time"

// Reservation 实验室使用申请表 — 对应 reservations
// Active 之后 StartTime 为实际刷卡时间，EndTime 在签退时改写为实际签退时间
type Reservation struct {
	ReservationID   string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"reservation_id"`
	RoomID          string            `gorm:"type:uuid;not null;index:idx_resv_room_date"   json:"room_id"`
	Date            time.Time         `gorm:"type:date;not null;index:idx_resv_room_date"   json:"date"`
	StartTime       string            `gorm:"type:time;not null"                             json:"start_time"`
	EndTime         string            `gorm:"type:time;not null"                             json:"end_time"`
	DurationMinutes int               `gorm:"not null;default:0"                             json:"duration_minutes"`
	RequesterID     string            `gorm:"type:uuid;not null;index"                       json:"requester_id"`
	CourseID        *string           `gorm:"type:uuid"                                      json:"course_id,omitempty"`
	AllocationID    *string           `gorm:"type:uuid;index"                                json:"allocation_id,omitempty"`
	AssignmentID    *string           `gorm:"type:uuid"                                      json:"assignment_id,omitempty"`
	Section         string            `gorm:"type:varchar(50)"                               json:"section,omitempty"`
	Remark          string            `gorm:"type:varchar(500)"                              json:"remark,omitempty"`
	ProcessedBy     *string           `gorm:"type:uuid"                                      json:"processed_by,omitempty"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	Status          ReservationStatus `gorm:"type:varchar(20);not null;default:'Pending'"    json:"status"`
	BaseModel

	// 关联
	Room       *Room       `gorm:"foreignKey:RoomID;references:RoomID"             json:"room,omitempty"`
	Allocation *Allocation `gorm:"foreignKey:AllocationID;references:AllocationID" json:"allocation,omitempty"`
	Requester  *User       `gorm:"foreignKey:RequesterID;references:UserID"        json:"requester,omitempty"`
}

// TableName 指定表名
func (Reservation) TableName() string { return "reservations" }

// ScheduledWindow 计划时段：优先取关联排课（不随刷卡改写），否则取自身时段
func (r *Reservation) ScheduledWindow() (start, end string) {
	if r.Allocation != nil {
		return r.Allocation.StartTime, r.Allocation.EndTime
	}
	return r.StartTime, r.EndTime
}

// AttendanceMark 学生签到记录 — 对应 attendance_marks
// 每个学生在同一次使用中只有一对签到/签退
type AttendanceMark struct {
	MarkID        string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"     json:"mark_id"`
	ReservationID string  `gorm:"type:uuid;not null;uniqueIndex:uk_mark_resv_student" json:"reservation_id"`
	StudentID     string  `gorm:"type:uuid;not null;uniqueIndex:uk_mark_resv_student" json:"student_id"`
	TimeIn        string  `gorm:"type:time;not null"                                 json:"time_in"`
	TimeOut       *string `gorm:"type:time"                                          json:"time_out,omitempty"`
	BaseModel

	// 关联
	Student *Student `gorm:"foreignKey:StudentID;references:StudentID" json:"student,omitempty"`
}

// TableName 指定表名
func (AttendanceMark) TableName() string { return "attendance_marks" }

// IsOpen 是否尚未签退
func (m *AttendanceMark) IsOpen() bool {
	return m.TimeOut == nil
}
