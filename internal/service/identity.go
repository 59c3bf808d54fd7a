package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ── 刷卡身份解析 ──

var (
	ErrUnknownBadge  = pkgerrors.New(pkgerrors.ErrNotFound, "未登记的卡号")
	ErrUnknownReader = pkgerrors.New(pkgerrors.ErrNotFound, "未绑定实验室的读卡器")
)

// IdentityKind 刷卡身份类型
type IdentityKind string

const (
	IdentityTeacher IdentityKind = "teacher"
	IdentityStudent IdentityKind = "student"
)

// Identity 刷卡人
type Identity struct {
	Kind IdentityKind
	ID   string
	Name string
	// Student 仅 Kind=student 时非空
	Student *model.Student
}

// IdentityResolver 卡号与读卡器解析
type IdentityResolver interface {
	ResolveBadge(ctx context.Context, badgeCode string) (*Identity, error)
	ResolveReader(ctx context.Context, readerID string) (*model.Room, error)
}

type identityResolver struct {
	repo *repository.Repository
}

// NewIdentityResolver 创建基于用户表/学生表/房间表的解析器
func NewIdentityResolver(repo *repository.Repository) IdentityResolver {
	return &identityResolver{repo: repo}
}

// ResolveBadge 先查教师，再查学生
func (r *identityResolver) ResolveBadge(ctx context.Context, badgeCode string) (*Identity, error) {
	user, err := r.repo.User.GetByBadge(ctx, badgeCode)
	if err == nil {
		return &Identity{Kind: IdentityTeacher, ID: user.UserID, Name: user.Name}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	student, err := r.repo.Student.GetByBadge(ctx, badgeCode)
	if err == nil {
		return &Identity{Kind: IdentityStudent, ID: student.StudentID, Name: student.Name, Student: student}, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownBadge
	}
	return nil, err
}

func (r *identityResolver) ResolveReader(ctx context.Context, readerID string) (*model.Room, error) {
	room, err := r.repo.Room.GetByReader(ctx, readerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownReader
		}
		return nil, err
	}
	return room, nil
}
