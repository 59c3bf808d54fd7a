package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
)

// NotificationRepository 站内通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationRepo struct {
	db *gorm.DB
}

func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ?", userID)
	if unreadOnly {
		db = db.Where("is_read = ?", false)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&list).Error
	return list, total, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"is_read":    true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
