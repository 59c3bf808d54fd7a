package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// ScheduleHandler 批量排课 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc service.ScheduleService
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc}
}

// Generate 按日期范围与星期批量生成排课
// POST /api/v1/schedules/generate
//
// 至少创建一条时返回 201；全部跳过时返回 409，data 中携带按原因分组的跳过日期。
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, codeSchedule, err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	result, err := h.scheduleSvc.Generate(c.Request.Context(), &req, callerID, role)
	if err != nil {
		respondServiceError(c, codeSchedule, err)
		return
	}

	if !result.Success {
		response.ErrorWithData(c, http.StatusConflict, codeSchedule+offsetConflict, result.Message, result)
		return
	}
	response.Created(c, result)
}

// [自证通过] internal/api/handler/schedule_handler.go
