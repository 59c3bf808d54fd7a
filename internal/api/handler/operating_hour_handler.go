package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// OperatingHourHandler 开放时间模块 HTTP 处理器
type OperatingHourHandler struct {
	hoursSvc service.OperatingHoursService
}

// NewOperatingHourHandler 创建 OperatingHourHandler
func NewOperatingHourHandler(hoursSvc service.OperatingHoursService) *OperatingHourHandler {
	return &OperatingHourHandler{hoursSvc: hoursSvc}
}

// ListWeek 获取一周开放时间
// GET /api/v1/operating-hours
func (h *OperatingHourHandler) ListWeek(c *gin.Context) {
	week, err := h.hoursSvc.ListWeek(c.Request.Context())
	if err != nil {
		respondServiceError(c, codeOperatingHours, err)
		return
	}
	response.OK(c, week)
}

// UpdateWeek 批量设置开放时间
// PUT /api/v1/operating-hours
func (h *OperatingHourHandler) UpdateWeek(c *gin.Context) {
	var req dto.UpdateOperatingHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, codeOperatingHours, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	week, err := h.hoursSvc.UpdateWeek(c.Request.Context(), &req, callerID)
	if err != nil {
		respondServiceError(c, codeOperatingHours, err)
		return
	}
	response.OK(c, week)
}

// [自证通过] internal/api/handler/operating_hour_handler.go
