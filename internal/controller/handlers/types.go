package handlers

import (
	"time"

	"github.com/Freeeeeet/attendance_tracker/internal/service"
	"go.uber.org/zap"
)

// Handlers holds the services every command needs.
type Handlers struct {
	directory  *service.DirectoryService
	enrollment *service.EnrollmentService
	attendance *service.AttendanceService
	statistics *service.StatisticsService
	appeals    *service.AppealService
	catalog    *service.CatalogService
	pageSize   int
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

func NewHandlers(
	directory *service.DirectoryService,
	enrollment *service.EnrollmentService,
	attendance *service.AttendanceService,
	statistics *service.StatisticsService,
	appeals *service.AppealService,
	catalog *service.CatalogService,
	pageSize int,
	loc *time.Location,
	logger *zap.Logger,
) *Handlers {
	if pageSize <= 0 {
		pageSize = service.DefaultHistoryPageSize
	}
	return &Handlers{
		directory:  directory,
		enrollment: enrollment,
		attendance: attendance,
		statistics: statistics,
		appeals:    appeals,
		catalog:    catalog,
		pageSize:   pageSize,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

func (h *Handlers) today() time.Time {
	return h.now().In(h.loc)
}
