package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// AssignmentRepository 教师授课分配数据访问接口
type AssignmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.TeacherCourseAssignment, error)
	// FindActiveForDate 查找学期覆盖 date 的有效分配，多条命中时取学期开始日期最晚的一条
	// courseID 为空时不限课程
	FindActiveForDate(ctx context.Context, teacherID, courseID string, date time.Time) (*model.TeacherCourseAssignment, error)
	Deactivate(ctx context.Context, id, operatorID string) error
}

type assignmentRepo struct {
	db *gorm.DB
}

func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) GetByID(ctx context.Context, id string) (*model.TeacherCourseAssignment, error) {
	var a model.TeacherCourseAssignment
	err := r.db.WithContext(ctx).
		Preload("Semester").
		Preload("Course").
		Where("assignment_id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) FindActiveForDate(ctx context.Context, teacherID, courseID string, date time.Time) (*model.TeacherCourseAssignment, error) {
	var a model.TeacherCourseAssignment
	db := r.db.WithContext(ctx).
		Preload("Semester").
		Joins("JOIN semesters s ON s.semester_id = teacher_course_assignments.semester_id").
		Where("teacher_course_assignments.teacher_id = ?", teacherID).
		Where("teacher_course_assignments.is_active = ?", true).
		Where("? BETWEEN s.start_date AND s.end_date", date.Format("2006-01-02"))
	if courseID != "" {
		db = db.Where("teacher_course_assignments.course_id = ?", courseID)
	}
	err := db.Order("s.start_date DESC").First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) Deactivate(ctx context.Context, id, operatorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.TeacherCourseAssignment{}).
		Where("assignment_id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": nullableUUID(operatorID),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}
