package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// 各模块错误码基数，具体码 = 基数 + 类别偏移
const (
	codeOperatingHours = 20000
	codeSchedule       = 21000
	codeReservation    = 22000
	codeSession        = 23000
	codeAllocation     = 24000
	codeNotification   = 25000
	codeCalendar       = 26000
)

// 类别偏移
const (
	offsetBadRequest     = 1
	offsetForbidden      = 3
	offsetNotFound       = 4
	offsetConflict       = 9
	offsetOptimisticLock = 10
)

// respondServiceError 按业务错误类别映射 HTTP 状态码。
// 冲突错误在 details 中携带原因码；未归类错误记入 c.Errors 由日志中间件输出。
func respondServiceError(c *gin.Context, base int, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, base+offsetBadRequest, err.Error())
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, base+offsetForbidden, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, base+offsetNotFound, err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, base+offsetOptimisticLock, err.Error())
	case errors.Is(err, pkgerrors.ErrConflict):
		response.Conflict(c, base+offsetConflict, err.Error(), pkgerrors.ReasonOf(err))
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}

// badParams 参数绑定失败
func badParams(c *gin.Context, base int, err error) {
	response.ErrorWithDetails(c, http.StatusBadRequest, base, "参数校验失败", err.Error())
}
