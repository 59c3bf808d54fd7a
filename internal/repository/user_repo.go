package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Seanzed08/SmartLab/internal/model"
)

// UserRepository 教师/管理员数据访问接口（只读 + 行锁）
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByBadge(ctx context.Context, badgeCode string) (*model.User, error)
	// LockByID 对教师行加 FOR UPDATE 锁，串行化同一教师的排课写入
	LockByID(ctx context.Context, id string) (*model.User, error)
	ListAdmins(ctx context.Context) ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByBadge(ctx context.Context, badgeCode string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("badge_code = ? AND is_active = ?", badgeCode, true).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) LockByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) ListAdmins(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", model.RoleAdmin, true).
		Find(&users).Error
	return users, err
}

// ── Student Repository ──

// StudentRepository 学生数据访问接口
type StudentRepository interface {
	GetByBadge(ctx context.Context, badgeCode string) (*model.Student, error)
}

type studentRepo struct {
	db *gorm.DB
}

func NewStudentRepo(db *gorm.DB) StudentRepository {
	return &studentRepo{db: db}
}

func (r *studentRepo) GetByBadge(ctx context.Context, badgeCode string) (*model.Student, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("badge_code = ?", badgeCode).
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}
