package model

import "time"

// Allocation 实验室排课表 — 对应 allocations
// 同一房间同一天的非终态排课时间段互不重叠（数据库排他约束兜底）
type Allocation struct {
	AllocationID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"allocation_id"`
	RoomID       string           `gorm:"type:uuid;not null;index:idx_alloc_room_date"   json:"room_id"`
	Date         time.Time        `gorm:"type:date;not null;index:idx_alloc_room_date"   json:"date"`
	StartTime    string           `gorm:"type:time;not null"                             json:"start_time"`
	EndTime      string           `gorm:"type:time;not null"                             json:"end_time"`
	AssignmentID *string          `gorm:"type:uuid;index"                                json:"assignment_id,omitempty"`
	ReservedTo   *string          `gorm:"type:uuid;index"                                json:"reserved_to,omitempty"` // 直接持有人（历史关联）
	Section      string           `gorm:"type:varchar(50)"                               json:"section,omitempty"`
	Status       AllocationStatus `gorm:"type:varchar(20);not null;default:'Scheduled'"  json:"status"`
	BaseModel

	// 关联
	Room       *Room                    `gorm:"foreignKey:RoomID;references:RoomID"             json:"room,omitempty"`
	Assignment *TeacherCourseAssignment `gorm:"foreignKey:AssignmentID;references:AssignmentID" json:"assignment,omitempty"`
}

// TableName 指定表名
func (Allocation) TableName() string { return "allocations" }

// OwnerID 解析排课持有人：优先取授课分配的教师，其次取直接持有人
func (a *Allocation) OwnerID() string {
	if a.Assignment != nil && a.Assignment.TeacherID != "" {
		return a.Assignment.TeacherID
	}
	if a.ReservedTo != nil {
		return *a.ReservedTo
	}
	return ""
}

// IsOwnedBy 判断 teacherID 是否为持有人（两条关联任一命中即可）
func (a *Allocation) IsOwnedBy(teacherID string) bool {
	if teacherID == "" {
		return false
	}
	if a.Assignment != nil && a.Assignment.TeacherID == teacherID {
		return true
	}
	return a.ReservedTo != nil && *a.ReservedTo == teacherID
}

// AllocationChangeLog 排课变更日志 — 对应 allocation_change_logs
type AllocationChangeLog struct {
	ChangeLogID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_log_id"`
	AllocationID    string    `gorm:"type:uuid;not null;index"                       json:"allocation_id"`
	ChangeType      string    `gorm:"type:varchar(20);not null"                      json:"change_type"` // reassign | retime | section | cancel
	OriginalOwnerID *string   `gorm:"type:uuid"                                      json:"original_owner_id,omitempty"`
	NewOwnerID      *string   `gorm:"type:uuid"                                      json:"new_owner_id,omitempty"`
	Detail          string    `gorm:"type:varchar(500)"                              json:"detail,omitempty"`
	OperatorID      string    `gorm:"type:uuid;not null"                             json:"operator_id"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AllocationChangeLog) TableName() string { return "allocation_change_logs" }

// 变更类型
const (
	ChangeTypeReassign = "reassign"
	ChangeTypeRetime   = "retime"
	ChangeTypeSection  = "section"
	ChangeTypeCancel   = "cancel"
)
