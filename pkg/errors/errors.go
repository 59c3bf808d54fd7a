package errors

import (
	"errors"
	"fmt"
)

// ── 错误分类 ──
//
// 业务错误统一归入以下几类，Handler 层按类别映射 HTTP 状态码。

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	ErrValidation = errors.New("参数校验失败")
	ErrConflict   = errors.New("时间冲突")
	ErrForbidden  = errors.New("无权执行此操作")
	ErrNotFound   = errors.New("记录不存在")
)

// 冲突原因码
const (
	ReasonClosed          = "closed"
	ReasonOutOfHours      = "out_of_hours"
	ReasonNoAssignment    = "no_assignment"
	ReasonRoomConflict    = "room_conflict"
	ReasonTeacherConflict = "teacher_conflict"
)

// kindError 带分类的业务错误
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// New 创建归属于 kind 的业务错误，errors.Is(err, kind) 成立
func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// ConflictError 带原因码的冲突错误
type ConflictError struct {
	Reason  string
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s", ErrConflict.Error(), e.Reason)
	}
	return e.Message
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Is 同原因码的 ConflictError 视为相等，便于声明哨兵错误
func (e *ConflictError) Is(target error) bool {
	t, ok := target.(*ConflictError)
	return ok && t.Reason == e.Reason
}

// NewConflict 创建冲突错误
func NewConflict(reason, msg string) *ConflictError {
	return &ConflictError{Reason: reason, Message: msg}
}

// ReasonOf 提取冲突原因码，非冲突错误返回空串
func ReasonOf(err error) string {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason
	}
	return ""
}
