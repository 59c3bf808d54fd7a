package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// NotificationHandler 站内通知 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListMine 我的通知
// GET /api/v1/notifications?unread_only=true
func (h *NotificationHandler) ListMine(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, codeNotification, err)
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.notificationSvc.ListMine(c.Request.Context(), userID, &req)
	if err != nil {
		respondServiceError(c, codeNotification, err)
		return
	}
	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// MarkRead 标记已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondServiceError(c, codeNotification, err)
		return
	}
	response.OK(c, nil)
}
