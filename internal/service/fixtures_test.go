package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Seanzed08/SmartLab/config"
	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	"github.com/Seanzed08/SmartLab/pkg/clock"
)

// ── 测试数据 ──
//
// 2025-03-03 为周一。学期覆盖 2025-02-01 至 2025-06-30。
// 周一至周五 07:00-21:00 开放，周六 08:00-12:00，周日无记录（关闭）。

const (
	adminID    = "admin-1"
	managerID  = "manager-1"
	teacherAID = "teacher-a"
	teacherBID = "teacher-b"

	roomID      = "room-1"
	otherRoomID = "room-2"
	readerID    = "reader-1"

	courseAID     = "course-a"
	courseBID     = "course-b"
	semesterID    = "sem-2025"
	assignmentAID = "assign-a"
	assignmentBID = "assign-b"
	assignmentMID = "assign-m"

	studentOneID = "student-1"
	studentTwoID = "student-2"

	badgeTeacherA = "BADGE-TA"
	badgeTeacherB = "BADGE-TB"
	badgeStudent1 = "BADGE-S1"
	badgeStudent2 = "BADGE-S2"
)

var testLoc = time.FixedZone("PHT", 8*3600)

func testLab() config.LabConfig {
	return config.LabConfig{
		Timezone:          "Asia/Manila",
		MinSessionMinutes: 180,
		MaxSessionMinutes: 300,
		TapGraceMinutes:   10,
		DefaultOpen:       "07:00",
		DefaultClose:      "21:00",
	}
}

// labTime 构造实验室时区的时刻
func labTime(date string, hhmm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+hhmm, testLoc)
	if err != nil {
		panic(err)
	}
	return t
}

func labDate(date string) time.Time {
	return labTime(date, "00:00")
}

// ── 通知/推送记录器 ──

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []Message
}

func (n *recordingNotifier) Notify(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *recordingNotifier) byType(typ string) []Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	var result []Message
	for _, m := range n.msgs {
		if m.Type == typ {
			result = append(result, m)
		}
	}
	return result
}

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.channels)
}

// ── fixture ──

type fixture struct {
	store     *memStore
	repo      *repository.Repository
	clock     *clock.Fixed
	notifier  *recordingNotifier
	publisher *recordingPublisher
	logger    *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	seedStore(s)
	return &fixture{
		store:     s,
		repo:      s.repository(false),
		clock:     clock.NewFixed(labTime("2025-03-03", "08:00")),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
		logger:    zap.NewNop(),
	}
}

func (f *fixture) hours() OperatingHoursService {
	return NewOperatingHoursService(f.repo, f.logger)
}

func (f *fixture) scheduleService() ScheduleService {
	return NewScheduleService(testLab(), f.repo, f.hours(), f.clock, f.logger)
}

func (f *fixture) reservationService() ReservationService {
	return NewReservationService(testLab(), f.repo, f.hours(), f.clock, f.notifier, f.logger)
}

func (f *fixture) sessionService() SessionService {
	return NewSessionService(testLab(), f.repo, NewIdentityResolver(f.repo), f.clock, f.publisher, f.logger)
}

func (f *fixture) allocationService() AllocationService {
	return NewAllocationService(f.repo, f.clock, f.logger)
}

// addAllocation 直接写入一条排课
func (f *fixture) addAllocation(room, date, start, end, assignmentID, owner string) *model.Allocation {
	a := &model.Allocation{
		RoomID:     room,
		Date:       labDate(date),
		StartTime:  start,
		EndTime:    end,
		ReservedTo: strPtr(owner),
		Status:     model.AllocationScheduled,
	}
	if assignmentID != "" {
		a.AssignmentID = strPtr(assignmentID)
	}
	if err := f.repo.Allocation.Create(context.Background(), a); err != nil {
		panic(err)
	}
	return a
}

// addReservation 直接写入一条申请
func (f *fixture) addReservation(r model.Reservation) *model.Reservation {
	if r.DurationMinutes == 0 {
		r.DurationMinutes = model.MinutesBetween(r.StartTime, r.EndTime)
	}
	if err := f.repo.Reservation.Create(context.Background(), &r); err != nil {
		panic(err)
	}
	return &r
}

func (f *fixture) reservation(id string) model.Reservation {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.reservations[id]
}

func (f *fixture) allocation(id string) model.Allocation {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.allocations[id]
}

func (f *fixture) allocationCount() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	n := 0
	for _, a := range f.store.allocations {
		if a.Status.OccupiesTime() {
			n++
		}
	}
	return n
}

func (f *fixture) reservationCount() int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return len(f.store.reservations)
}

func seedStore(s *memStore) {
	badge := func(b string) *string { return &b }

	s.users[adminID] = model.User{UserID: adminID, Name: "Admin", Email: "admin@lab.test", Role: model.RoleAdmin, IsActive: true}
	s.users[managerID] = model.User{UserID: managerID, Name: "Manager", Email: "manager@lab.test", Role: model.RoleTeacher, IsActive: true}
	s.users[teacherAID] = model.User{UserID: teacherAID, Name: "Teacher A", Email: "a@lab.test", Role: model.RoleTeacher, BadgeCode: badge(badgeTeacherA), IsActive: true}
	s.users[teacherBID] = model.User{UserID: teacherBID, Name: "Teacher B", Email: "b@lab.test", Role: model.RoleTeacher, BadgeCode: badge(badgeTeacherB), IsActive: true}

	s.students[studentOneID] = model.Student{StudentID: studentOneID, StudentNo: "2025-0001", Name: "Student One", BadgeCode: badge(badgeStudent1)}
	s.students[studentTwoID] = model.Student{StudentID: studentTwoID, StudentNo: "2025-0002", Name: "Student Two", BadgeCode: badge(badgeStudent2)}

	mgr, rdr := managerID, readerID
	s.rooms[roomID] = model.Room{RoomID: roomID, Name: "Lab 101", Location: "Building A", ManagerID: &mgr, ReaderID: &rdr}
	s.rooms[otherRoomID] = model.Room{RoomID: otherRoomID, Name: "Lab 102", ManagerID: &mgr}

	for _, d := range []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday} {
		s.hours[d] = model.OperatingWindow{Weekday: d, IsOpen: true, Open: "07:00", Close: "21:00"}
	}
	s.hours[time.Saturday] = model.OperatingWindow{Weekday: time.Saturday, IsOpen: true, Open: "08:00", Close: "12:00"}

	s.courses[courseAID] = model.Course{CourseID: courseAID, Code: "CS101", Name: "Programming 1"}
	s.courses[courseBID] = model.Course{CourseID: courseBID, Code: "CS102", Name: "Networks"}
	s.semesters[semesterID] = model.Semester{
		SemesterID: semesterID,
		Name:       "2nd Sem 2025",
		StartDate:  labDate("2025-02-01"),
		EndDate:    labDate("2025-06-30"),
	}
	s.assignments[assignmentAID] = model.TeacherCourseAssignment{AssignmentID: assignmentAID, TeacherID: teacherAID, CourseID: courseAID, SemesterID: semesterID, IsActive: true}
	s.assignments[assignmentBID] = model.TeacherCourseAssignment{AssignmentID: assignmentBID, TeacherID: teacherBID, CourseID: courseBID, SemesterID: semesterID, IsActive: true}
	s.assignments[assignmentMID] = model.TeacherCourseAssignment{AssignmentID: assignmentMID, TeacherID: managerID, CourseID: courseAID, SemesterID: semesterID, IsActive: true}
}
