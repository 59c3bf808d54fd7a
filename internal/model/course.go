package model

// Course 课程表 — 对应 courses（由课程管理模块维护，本服务只读）
type Course struct {
	CourseID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Code     string `gorm:"type:varchar(30);not null"                      json:"code"`
	Name     string `gorm:"type:varchar(200);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// TeacherCourseAssignment 教师授课分配表 — 对应 teacher_course_assignments
type TeacherCourseAssignment struct {
	AssignmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"assignment_id"`
	TeacherID    string `gorm:"type:uuid;not null;index"                       json:"teacher_id"`
	CourseID     string `gorm:"type:uuid;not null"                             json:"course_id"`
	SemesterID   string `gorm:"type:uuid;not null"                             json:"semester_id"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Teacher  *User     `gorm:"foreignKey:TeacherID;references:UserID"      json:"teacher,omitempty"`
	Course   *Course   `gorm:"foreignKey:CourseID;references:CourseID"     json:"course,omitempty"`
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (TeacherCourseAssignment) TableName() string { return "teacher_course_assignments" }
