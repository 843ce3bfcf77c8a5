package repository

import "github.com/Freeeeeet/attendance_tracker/internal/repository/base"

// Store groups the repositories bound to one handle. Services build a Store
// over the pool for plain reads and over a pgx.Tx for units of work.
type Store struct {
	Institutions *InstitutionRepository
	Users        *UserRepository
	Semesters    *SemesterRepository
	Courses      *CourseRepository
	Venues       *VenueRepository
	Classes      *ClassRepository
	Attendance   *AttendanceRepository
	Appeals      *AppealRepository
	Stats        *StatsRepository
}

func NewStore(db base.DBTX) *Store {
	return &Store{
		Institutions: NewInstitutionRepository(db),
		Users:        NewUserRepository(db),
		Semesters:    NewSemesterRepository(db),
		Courses:      NewCourseRepository(db),
		Venues:       NewVenueRepository(db),
		Classes:      NewClassRepository(db),
		Attendance:   NewAttendanceRepository(db),
		Appeals:      NewAppealRepository(db),
		Stats:        NewStatsRepository(db),
	}
}
