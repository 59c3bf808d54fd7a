package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Seanzed08/SmartLab/internal/model"
)

// RoomRepository 实验室数据访问接口
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByReader(ctx context.Context, readerID string) (*model.Room, error)
	// LockByID 对房间行加 FOR UPDATE 锁，冲突检测与写入在同一锁内完成
	LockByID(ctx context.Context, id string) (*model.Room, error)
	ListManagedBy(ctx context.Context, managerID string) ([]model.Room, error)
	Archive(ctx context.Context, id, operatorID string) error
}

type roomRepo struct {
	db *gorm.DB
}

func NewRoomRepo(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) GetByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetByReader(ctx context.Context, readerID string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("reader_id = ? AND is_archived = ?", readerID, false).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) LockByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("room_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) ListManagedBy(ctx context.Context, managerID string) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("manager_id = ? AND is_archived = ?", managerID, false).
		Order("name ASC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepo) Archive(ctx context.Context, id, operatorID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("room_id = ?", id).
		Updates(map[string]interface{}{
			"is_archived": true,
			"updated_by":  nullableUUID(operatorID),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
