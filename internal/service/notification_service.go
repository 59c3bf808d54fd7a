package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/repository"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

var ErrNotificationNotFound = pkgerrors.New(pkgerrors.ErrNotFound, "通知不存在")

// NotificationService 站内通知
type NotificationService interface {
	ListMine(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) ListMine(ctx context.Context, userID string, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListByUser(ctx, userID, req.UnreadOnly, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		result = append(result, dto.NotificationResponse{
			ID:          n.NotificationID,
			Type:        n.Type,
			Title:       n.Title,
			Content:     n.Content,
			IsRead:      n.IsRead,
			RelatedType: n.RelatedType,
			RelatedID:   n.RelatedID,
			CreatedAt:   n.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.Notification.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		s.logger.Error("标记通知已读失败", zap.String("notification_id", id), zap.Error(err))
		return err
	}
	return nil
}
