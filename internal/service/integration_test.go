package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/attendance_tracker/internal/apperr"
	"github.com/Freeeeeet/attendance_tracker/internal/migrations"
	"github.com/Freeeeeet/attendance_tracker/internal/model"
	"github.com/Freeeeeet/attendance_tracker/internal/repository"
	"github.com/Freeeeeet/attendance_tracker/internal/stats"
)

var testNow = time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC)

type services struct {
	attendance *AttendanceService
	stats      *StatisticsService
	appeals    *AppealService
	catalog    *CatalogService
	enrollment *EnrollmentService
	directory  *DirectoryService
}

type fixture struct {
	instA, instB   int64
	admin          model.Actor
	lecturer       model.Actor
	foreignLecture model.Actor
	students       []model.Actor
	semester       int64
	course         int64
	venue          int64
	class          *model.Class
}

// openTestPool connects to TEST_DB_DSN, migrates and empties the schema.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.UpContext(ctx, db, "."))

	_, err = pool.Exec(ctx, `TRUNCATE institutions, users, semesters, courses, venues, course_users,
		classes, attendance_records, attendance_appeals RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func newServices(pool *pgxpool.Pool) *services {
	logger := zap.NewNop()
	clock := func() time.Time { return testNow }

	s := &services{
		attendance: NewAttendanceService(pool, 10*time.Minute, time.UTC, logger),
		stats:      NewStatisticsService(pool, time.UTC, logger),
		appeals:    NewAppealService(pool, DefaultAppealWindow, logger),
		catalog:    NewCatalogService(pool, logger),
		enrollment: NewEnrollmentService(pool, time.UTC, logger),
		directory:  NewDirectoryService(pool, logger),
	}
	s.attendance.now = clock
	s.stats.now = clock
	s.appeals.now = clock
	s.enrollment.now = clock
	return s
}

func seedUser(t *testing.T, st *repository.Store, inst int64, name string, role model.Role) model.Actor {
	t.Helper()
	u := &model.User{InstitutionID: inst, Name: name, Email: name + "@example.org", Role: role}
	require.NoError(t, st.Users.Create(context.Background(), u))
	return u.Actor()
}

// seed builds institution A with an admin, a lecturer, four students and a
// class today from 09:00 to 10:30 with the first three students enrolled.
// Institution B has its own lecturer.
func seed(t *testing.T, pool *pgxpool.Pool, svc *services) *fixture {
	t.Helper()
	ctx := context.Background()
	st := repository.NewStore(pool)
	f := &fixture{}

	for _, inst := range []*int64{&f.instA, &f.instB} {
		i := &model.Institution{Name: "Institution"}
		require.NoError(t, st.Institutions.Create(ctx, i))
		*inst = i.ID
	}

	f.admin = seedUser(t, st, f.instA, "admin", model.RoleAdmin)
	f.lecturer = seedUser(t, st, f.instA, "lecturer", model.RoleLecturer)
	f.foreignLecture = seedUser(t, st, f.instB, "outsider", model.RoleLecturer)
	for _, name := range []string{"Alice", "Bob", "Carol", "Dave"} {
		f.students = append(f.students, seedUser(t, st, f.instA, name, model.RoleStudent))
	}

	semester := &model.Semester{
		InstitutionID: f.instA,
		Name:          "Fall 2026",
		StartDate:     time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, svc.catalog.CreateSemester(ctx, f.admin, semester))
	f.semester = semester.ID

	course := &model.Course{InstitutionID: f.instA, Code: "CS101", Name: "Programming", Credits: 6}
	require.NoError(t, svc.catalog.CreateCourse(ctx, f.admin, course))
	f.course = course.ID

	venue := &model.Venue{InstitutionID: f.instA, Name: "Hall 1", Capacity: 40}
	require.NoError(t, svc.catalog.CreateVenue(ctx, f.admin, venue))
	f.venue = venue.ID

	require.NoError(t, svc.catalog.Enroll(ctx, f.admin, model.CourseUser{CourseID: f.course, UserID: f.lecturer.UserID, SemesterID: f.semester}))
	for _, s := range f.students[:3] {
		require.NoError(t, svc.catalog.Enroll(ctx, f.admin, model.CourseUser{CourseID: f.course, UserID: s.UserID, SemesterID: f.semester}))
	}

	f.class = scheduleAt(t, svc, f, time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC))
	return f
}

func scheduleAt(t *testing.T, svc *services, f *fixture, start time.Time) *model.Class {
	t.Helper()
	class := &model.Class{
		CourseID:   f.course,
		SemesterID: f.semester,
		VenueID:    f.venue,
		LecturerID: f.lecturer.UserID,
		StartTime:  start,
		EndTime:    start.Add(90 * time.Minute),
	}
	require.NoError(t, svc.catalog.ScheduleClass(context.Background(), f.admin, class))
	return class
}

func statusesOf(rows []*model.ClassAttendanceRow) map[int64]model.AttendanceStatus {
	out := make(map[int64]model.AttendanceStatus, len(rows))
	for _, r := range rows {
		out[r.StudentID] = r.Status
	}
	return out
}

func TestFreshClassRoster(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	inserted, err := svc.attendance.MaterializeRoster(ctx, f.lecturer, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inserted)

	inserted, err = svc.attendance.MaterializeRoster(ctx, f.lecturer, f.class.ID)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	rows, err := svc.attendance.ReadClassAttendance(ctx, f.lecturer, f.class.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, model.AttendanceStatusUnmarked, r.Status)
		assert.Nil(t, r.RecordedAt)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, []string{rows[0].DisplayName, rows[1].DisplayName, rows[2].DisplayName})
}

func TestLecturerMarksAdminOverrides(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	s1, s2, s3 := f.students[0].UserID, f.students[1].UserID, f.students[2].UserID

	_, err := svc.attendance.OpenClassAttendance(ctx, f.lecturer, f.class.ID)
	require.NoError(t, err)

	_, err = svc.attendance.MarkBatch(ctx, f.lecturer, f.class.ID, []MarkEntry{
		{StudentID: s1, Status: model.AttendanceStatusPresent},
		{StudentID: s2, Status: model.AttendanceStatusAbsent},
	})
	require.NoError(t, err)

	rows, err := svc.attendance.ReadClassAttendance(ctx, f.lecturer, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]model.AttendanceStatus{
		s1: model.AttendanceStatusPresent,
		s2: model.AttendanceStatusAbsent,
		s3: model.AttendanceStatusUnmarked,
	}, statusesOf(rows))

	note := "doctor note"
	rec, err := svc.attendance.Mark(ctx, f.admin, f.class.ID, s2, model.AttendanceStatusExcused, &note)
	require.NoError(t, err)
	assert.Equal(t, model.MarkedByLecturer, rec.MarkedBy)
	require.NotNil(t, rec.LecturerID)
	assert.Equal(t, f.admin.UserID, *rec.LecturerID)

	rows, err = svc.attendance.ReadClassAttendance(ctx, f.admin, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusExcused, statusesOf(rows)[s2])
	assert.Equal(t, model.AttendanceStatusUnmarked, statusesOf(rows)[s3])
}

func TestMarkBatchIsAtomic(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	outsider := f.students[3].UserID // not enrolled

	results, err := svc.attendance.MarkBatch(ctx, f.lecturer, f.class.ID, []MarkEntry{
		{StudentID: f.students[0].UserID, Status: model.AttendanceStatusPresent},
		{StudentID: outsider, Status: model.AttendanceStatusPresent},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	require.Len(t, results, 2)
	assert.Nil(t, results[0].Record)
	assert.Error(t, results[1].Err)

	rec, err := svc.attendance.Get(ctx, f.lecturer, f.class.ID, f.students[0].UserID)
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = svc.attendance.Mark(ctx, f.lecturer, f.class.ID, f.students[0].UserID, "sleeping", nil)
	assert.Equal(t, apperr.ReasonInvalidStatus, apperr.ReasonOf(err))
}

func TestAppealLifecycle(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	student := f.students[1]

	rec, err := svc.attendance.Mark(ctx, f.lecturer, f.class.ID, student.UserID, model.AttendanceStatusAbsent, nil)
	require.NoError(t, err)

	require.NoError(t, svc.appeals.CanAppeal(ctx, student, student.UserID, rec.ID))

	appeal, err := svc.appeals.CreateAppeal(ctx, student, student.UserID, rec.ID, "  I was sick ")
	require.NoError(t, err)
	assert.Equal(t, model.AppealStatusPending, appeal.Status)
	assert.Equal(t, "I was sick", appeal.Reason)

	_, err = svc.appeals.CreateAppeal(ctx, student, student.UserID, rec.ID, "again")
	assert.Equal(t, apperr.ReasonDuplicate, apperr.ReasonOf(err))

	other := f.students[0]
	err = svc.appeals.RetractAppeal(ctx, other, other.UserID, appeal.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, svc.appeals.RetractAppeal(ctx, student, student.UserID, appeal.ID))
	err = svc.appeals.RetractAppeal(ctx, student, student.UserID, appeal.ID)
	assert.Equal(t, apperr.ReasonNotFound, apperr.ReasonOf(err))

	_, err = svc.appeals.CreateAppeal(ctx, student, student.UserID, rec.ID, "   ")
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))
}

func TestAppealIneligible(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	present, absent := f.students[0], f.students[1]

	rec, err := svc.attendance.Mark(ctx, f.lecturer, f.class.ID, present.UserID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)
	err = svc.appeals.CanAppeal(ctx, present, present.UserID, rec.ID)
	assert.Equal(t, apperr.ReasonIneligibleStatus, apperr.ReasonOf(err))

	old := scheduleAt(t, svc, f, testNow.AddDate(0, 0, -10))
	oldRec, err := svc.attendance.Mark(ctx, f.lecturer, old.ID, absent.UserID, model.AttendanceStatusAbsent, nil)
	require.NoError(t, err)
	err = svc.appeals.CanAppeal(ctx, absent, absent.UserID, oldRec.ID)
	assert.Equal(t, apperr.ReasonWindowClosed, apperr.ReasonOf(err))

	err = svc.appeals.CanAppeal(ctx, present, present.UserID, oldRec.ID)
	assert.Equal(t, apperr.ReasonUnauthorized, apperr.ReasonOf(err))

	err = svc.appeals.CanAppeal(ctx, absent, absent.UserID, 999999)
	assert.Equal(t, apperr.ReasonNotFound, apperr.ReasonOf(err))
}

func TestAdjudicate(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	student := f.students[2]

	rec, err := svc.attendance.Mark(ctx, f.lecturer, f.class.ID, student.UserID, model.AttendanceStatusLate, nil)
	require.NoError(t, err)
	appeal, err := svc.appeals.CreateAppeal(ctx, student, student.UserID, rec.ID, "bus broke down")
	require.NoError(t, err)

	_, err = svc.appeals.Adjudicate(ctx, f.lecturer, appeal.ID, model.AppealStatusApproved)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	pending, err := svc.appeals.ListPending(ctx, f.admin, f.instA)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	decided, err := svc.appeals.Adjudicate(ctx, f.admin, appeal.ID, model.AppealStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, model.AppealStatusApproved, decided.Status)

	_, err = svc.appeals.Adjudicate(ctx, f.admin, appeal.ID, model.AppealStatusApproved)
	assert.NoError(t, err)
	_, err = svc.appeals.Adjudicate(ctx, f.admin, appeal.ID, model.AppealStatusRejected)
	assert.Equal(t, apperr.ReasonImmutable, apperr.ReasonOf(err))

	err = svc.appeals.RetractAppeal(ctx, student, student.UserID, appeal.ID)
	assert.Equal(t, apperr.ReasonImmutable, apperr.ReasonOf(err))

	updated, err := svc.attendance.Get(ctx, f.admin, f.class.ID, student.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusExcused, updated.Status)
	require.NotNil(t, updated.Notes)
	assert.Contains(t, *updated.Notes, "approved")

	mine, err := svc.appeals.ListForStudent(ctx, student, student.UserID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestPeriodReportMixedStatuses(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	require.NoError(t, svc.catalog.Enroll(ctx, f.admin, model.CourseUser{CourseID: f.course, UserID: f.students[3].UserID, SemesterID: f.semester}))
	second := scheduleAt(t, svc, f, time.Date(2026, time.October, 16, 13, 0, 0, 0, time.UTC))
	cancelled := scheduleAt(t, svc, f, time.Date(2026, time.October, 16, 16, 0, 0, 0, time.UTC))
	require.NoError(t, svc.catalog.CancelClass(ctx, f.lecturer, cancelled.ID))

	ids := func(i int) int64 { return f.students[i].UserID }
	_, err := svc.attendance.MarkBatch(ctx, f.lecturer, f.class.ID, []MarkEntry{
		{StudentID: ids(0), Status: model.AttendanceStatusPresent},
		{StudentID: ids(1), Status: model.AttendanceStatusAbsent},
		{StudentID: ids(2), Status: model.AttendanceStatusLate},
	})
	require.NoError(t, err)
	_, err = svc.attendance.MarkBatch(ctx, f.lecturer, second.ID, []MarkEntry{
		{StudentID: ids(0), Status: model.AttendanceStatusPresent},
		{StudentID: ids(1), Status: model.AttendanceStatusAbsent},
		{StudentID: ids(2), Status: model.AttendanceStatusPresent},
	})
	require.NoError(t, err)
	for _, c := range []int64{f.class.ID, second.ID} {
		_, err := svc.attendance.MaterializeRoster(ctx, f.admin, c)
		require.NoError(t, err)
	}
	_, err = svc.attendance.Mark(ctx, f.admin, cancelled.ID, ids(0), model.AttendanceStatusAbsent, nil)
	require.NoError(t, err)

	// 8 records: 3 present, 1 late, 2 absent, 2 unmarked
	report, err := svc.stats.PeriodReport(ctx, f.admin, f.instA, stats.PeriodDay, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalClasses)
	assert.Equal(t, 4, report.TotalStudents)
	assert.Equal(t, 67, report.PresentPct)
	assert.Equal(t, 33, report.AbsentPct)
	require.Len(t, report.TrendingAbsentees, 1)
	assert.Equal(t, ids(1), report.TrendingAbsentees[0].StudentID)
	assert.Equal(t, "2 days", report.TrendingAbsentees[0].Label)

	_, err = svc.stats.PeriodReport(ctx, f.students[0], f.instA, stats.PeriodDay, testNow)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCourseTrendAndBreakdown(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	earlier := scheduleAt(t, svc, f, time.Date(2026, time.October, 13, 9, 0, 0, 0, time.UTC))
	_, err := svc.attendance.MarkBatch(ctx, f.lecturer, earlier.ID, []MarkEntry{
		{StudentID: f.students[0].UserID, Status: model.AttendanceStatusPresent},
		{StudentID: f.students[1].UserID, Status: model.AttendanceStatusLate},
		{StudentID: f.students[2].UserID, Status: model.AttendanceStatusAbsent},
	})
	require.NoError(t, err)

	trend, err := svc.stats.CourseTrend(ctx, f.lecturer,
		f.course, time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC), time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, stats.GranularityDay, trend.Granularity)
	require.Len(t, trend.Points, 5)
	assert.Equal(t, "Mon 12", trend.Points[0].Label)
	assert.Equal(t, 66.7, trend.Points[1].Rate)
	assert.Zero(t, trend.Points[4].Rate)
	assert.Equal(t, 2, trend.TotalClasses)
	assert.Equal(t, 3, trend.Distribution.Population)
	assert.Equal(t, 100, trend.Distribution.Excellent+trend.Distribution.Good+trend.Distribution.Average+trend.Distribution.Bad)

	_, err = svc.stats.CourseTrend(ctx, f.foreignLecture, f.course, testNow, testNow)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	months, err := svc.stats.MonthlyBreakdown(ctx, f.students[0], f.students[0].UserID, 0)
	require.NoError(t, err)
	require.Len(t, months, 4)
	assert.Equal(t, time.October, months[3].Month)
	assert.Equal(t, 1, months[3].Present)
	assert.True(t, months[3].IsGood)

	_, err = svc.stats.MonthlyBreakdown(ctx, f.students[0], f.students[1].UserID, 0)
	assert.Equal(t, apperr.ReasonNotOwner, apperr.ReasonOf(err))
}

func TestCrossInstitutionDenied(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	_, err := svc.attendance.ReadClassAttendance(ctx, f.foreignLecture, f.class.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, apperr.ReasonOtherInstitution, apperr.ReasonOf(err))

	_, err = svc.attendance.ReadClassAttendance(ctx, f.foreignLecture, 424242)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	// Authorization is decided before the entries are looked at.
	results, err := svc.attendance.MarkBatch(ctx, f.foreignLecture, f.class.ID, []MarkEntry{
		{StudentID: f.students[0].UserID, Status: "sleeping"},
	})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
	assert.Equal(t, apperr.ReasonOtherInstitution, apperr.ReasonOf(err))
	require.Len(t, results, 1)
	assert.NoError(t, results[0].Err)

	manager := model.Actor{UserID: 0, Role: model.RolePlatformManager}
	_, err = svc.attendance.ReadClassAttendance(ctx, manager, f.class.ID)
	assert.NoError(t, err)
	_, err = svc.attendance.MaterializeRoster(ctx, manager, f.class.ID)
	assert.Equal(t, apperr.ReasonReadOnly, apperr.ReasonOf(err))
}

func TestRecognitionKeepsLecturerMarks(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	s1, s2, s3, outsider := f.students[0].UserID, f.students[1].UserID, f.students[2].UserID, f.students[3].UserID

	_, err := svc.attendance.Mark(ctx, f.lecturer, f.class.ID, s3, model.AttendanceStatusExcused, nil)
	require.NoError(t, err)

	start := f.class.StartTime
	report, err := svc.attendance.RecordRecognition(ctx, model.SystemActor(f.instA), RecognitionBatch{
		ClassID: f.class.ID,
		Sightings: []Sighting{
			{StudentID: s1, SeenAt: start.Add(2 * time.Minute)},
			{StudentID: s2, SeenAt: start.Add(25 * time.Minute)},
			{StudentID: s3, SeenAt: start},
			{StudentID: outsider, SeenAt: start},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.BatchID.String())
	require.Len(t, report.Results, 4)
	assert.Equal(t, SightingApplied, report.Results[0].Outcome)
	assert.Equal(t, model.AttendanceStatusLate, report.Results[1].Status)
	assert.Equal(t, SightingKept, report.Results[2].Outcome)
	assert.Equal(t, SightingNotFound, report.Results[3].Outcome)

	rows, err := svc.attendance.ReadClassAttendance(ctx, f.admin, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, map[int64]model.AttendanceStatus{
		s1: model.AttendanceStatusPresent,
		s2: model.AttendanceStatusLate,
		s3: model.AttendanceStatusExcused,
	}, statusesOf(rows))

	// A later batch can turn late into present but never present into late.
	report, err = svc.attendance.RecordRecognition(ctx, model.SystemActor(f.instA), RecognitionBatch{
		ClassID: f.class.ID,
		Sightings: []Sighting{
			{StudentID: s1, SeenAt: start.Add(40 * time.Minute)},
			{StudentID: s2, SeenAt: start.Add(time.Minute)},
		},
	})
	require.NoError(t, err)
	require.Len(t, report.Results, 2)
	assert.Equal(t, SightingEarlier, report.Results[0].Outcome)
	assert.Equal(t, SightingApplied, report.Results[1].Outcome)

	rows, err = svc.attendance.ReadClassAttendance(ctx, f.admin, f.class.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttendanceStatusPresent, statusesOf(rows)[s1])
	assert.Equal(t, model.AttendanceStatusPresent, statusesOf(rows)[s2])

	_, err = svc.attendance.RecordRecognition(ctx, f.lecturer, RecognitionBatch{ClassID: f.class.ID})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestHistoryAndScheduling(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()
	student := f.students[0]

	september := scheduleAt(t, svc, f, time.Date(2026, time.September, 20, 9, 0, 0, 0, time.UTC))
	_, err := svc.attendance.Mark(ctx, f.lecturer, september.ID, student.UserID, model.AttendanceStatusAbsent, nil)
	require.NoError(t, err)
	_, err = svc.attendance.Mark(ctx, f.lecturer, f.class.ID, student.UserID, model.AttendanceStatusPresent, nil)
	require.NoError(t, err)

	page, err := svc.attendance.StudentHistory(ctx, student, student.UserID, HistoryQuery{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, f.class.ID, page.Rows[0].ClassID)

	page, err = svc.attendance.StudentHistory(ctx, student, student.UserID, HistoryQuery{Page: 1, Month: "2026-09"})
	require.NoError(t, err)
	require.Len(t, page.Rows, 1)
	assert.Equal(t, model.AttendanceStatusAbsent, page.Rows[0].Status)

	page, err = svc.attendance.StudentHistory(ctx, student, student.UserID, HistoryQuery{Page: 1, Search: "cs1", Status: "present"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = svc.attendance.StudentHistory(ctx, f.students[1], student.UserID, HistoryQuery{Page: 1})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	completed, err := svc.attendance.CompleteEndedClasses(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed) // only the September class has ended

	inserted, err := svc.attendance.MaterializeUpcoming(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	current, err := svc.enrollment.CurrentSemester(ctx, student, f.instA, time.Time{})
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, f.semester, current.ID)

	enrolled, err := svc.enrollment.StudentsOf(ctx, f.lecturer, f.course, f.semester)
	require.NoError(t, err)
	assert.Len(t, enrolled, 3)

	err = svc.catalog.Enroll(ctx, f.admin, model.CourseUser{CourseID: f.course, UserID: student.UserID, SemesterID: f.semester})
	assert.Equal(t, apperr.ReasonDuplicate, apperr.ReasonOf(err))

	tg := int64(777)
	require.NoError(t, svc.directory.LinkTelegram(ctx, student, student.UserID, tg))
	found, err := svc.directory.GetByTelegramID(ctx, tg)
	require.NoError(t, err)
	assert.Equal(t, student.UserID, found.ID)

	require.NoError(t, svc.catalog.DeleteUser(ctx, f.admin, student.UserID))
	_, err = svc.directory.GetByTelegramID(ctx, tg)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestListUsers(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	all, err := svc.catalog.ListUsers(ctx, f.admin, f.instA, "")
	require.NoError(t, err)
	assert.Len(t, all, 6)

	students, err := svc.catalog.ListUsers(ctx, f.admin, f.instA, model.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 4)
	names := make([]string, 0, len(students))
	for _, u := range students {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"Alice", "Bob", "Carol", "Dave"}, names)

	_, err = svc.catalog.ListUsers(ctx, f.admin, f.instA, model.Role("janitor"))
	assert.True(t, apperr.Is(err, apperr.KindInvalidInput))

	_, err = svc.catalog.ListUsers(ctx, f.lecturer, f.instA, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	_, err = svc.catalog.ListUsers(ctx, f.admin, f.instB, "")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestCancelClassByLecturer(t *testing.T) {
	pool := openTestPool(t)
	svc := newServices(pool)
	f := seed(t, pool, svc)
	ctx := context.Background()

	err := svc.catalog.CancelClass(ctx, f.foreignLecture, f.class.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	require.NoError(t, svc.catalog.CancelClass(ctx, f.lecturer, f.class.ID))
	require.NoError(t, svc.catalog.CancelClass(ctx, f.admin, f.class.ID))

	classes, err := svc.enrollment.LecturerSchedule(ctx, f.lecturer, f.lecturer.UserID, f.class.StartTime.Add(-time.Hour), f.class.EndTime)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.True(t, classes[0].IsCancelled())
}
