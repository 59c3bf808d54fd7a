package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/clock"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// SessionHandler 刷卡与在场会话 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
	clock      clock.Clock
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService, clk clock.Clock) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc, clock: clk}
}

// Tap 读卡器上报一次刷卡，读卡器身份取自设备令牌
// POST /api/v1/sessions/tap
func (h *SessionHandler) Tap(c *gin.Context) {
	var req dto.TapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, codeSession, err)
		return
	}

	readerID, ok := MustGetReaderID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.Tap(c.Request.Context(), req.BadgeCode, readerID)
	if err != nil {
		respondServiceError(c, codeSession, err)
		return
	}
	response.OK(c, result)
}

// Sweep 手动结束超时会话（定时任务之外的补充入口）
// POST /api/v1/sessions/sweep
func (h *SessionHandler) Sweep(c *gin.Context) {
	result, err := h.sessionSvc.SweepOverdue(c.Request.Context(), h.clock.Now())
	if err != nil {
		respondServiceError(c, codeSession, err)
		return
	}
	response.OK(c, result)
}

// ActiveSessions 实验室当前进行中的会话
// GET /api/v1/rooms/:id/sessions
func (h *SessionHandler) ActiveSessions(c *gin.Context) {
	var req dto.ActiveSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, codeSession, err)
		return
	}

	list, err := h.sessionSvc.ActiveSessions(c.Request.Context(), c.Param("id"), req.Date)
	if err != nil {
		respondServiceError(c, codeSession, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}
