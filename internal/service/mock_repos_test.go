package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/internal/repository"
	pkgerrors "github.com/Seanzed08/SmartLab/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// 内存数据集
//
// 所有 mock Repository 共享同一个 memStore。事务开始时拍快照，
// fn 返回错误时恢复快照；嵌套事务同样按快照回滚（对应 SAVEPOINT）。
// 顶层事务之间通过 txMu 串行化，模拟行锁。
// ════════════════════════════════════════════════════════════

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	seq  int

	users         map[string]model.User
	students      map[string]model.Student
	rooms         map[string]model.Room
	hours         map[time.Weekday]model.OperatingWindow
	courses       map[string]model.Course
	semesters     map[string]model.Semester
	assignments   map[string]model.TeacherCourseAssignment
	allocations   map[string]model.Allocation
	changeLogs    []model.AllocationChangeLog
	reservations  map[string]model.Reservation
	marks         map[string]model.AttendanceMark
	notifications map[string]model.Notification

	// allocCreateErr 非空时下一次 Allocation.Create 返回该错误
	allocCreateErr error
	// txGate 非空时顶层事务开始前在此汇合，用于构造并发竞争
	txGate *sync.WaitGroup
}

type memSnapshot struct {
	users         map[string]model.User
	rooms         map[string]model.Room
	hours         map[time.Weekday]model.OperatingWindow
	assignments   map[string]model.TeacherCourseAssignment
	allocations   map[string]model.Allocation
	changeLogs    []model.AllocationChangeLog
	reservations  map[string]model.Reservation
	marks         map[string]model.AttendanceMark
	notifications map[string]model.Notification
}

func newMemStore() *memStore {
	return &memStore{
		users:         make(map[string]model.User),
		students:      make(map[string]model.Student),
		rooms:         make(map[string]model.Room),
		hours:         make(map[time.Weekday]model.OperatingWindow),
		courses:       make(map[string]model.Course),
		semesters:     make(map[string]model.Semester),
		assignments:   make(map[string]model.TeacherCourseAssignment),
		allocations:   make(map[string]model.Allocation),
		reservations:  make(map[string]model.Reservation),
		marks:         make(map[string]model.AttendanceMark),
		notifications: make(map[string]model.Notification),
	}
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users:         maps.Clone(s.users),
		rooms:         maps.Clone(s.rooms),
		hours:         maps.Clone(s.hours),
		assignments:   maps.Clone(s.assignments),
		allocations:   maps.Clone(s.allocations),
		changeLogs:    slices.Clone(s.changeLogs),
		reservations:  maps.Clone(s.reservations),
		marks:         maps.Clone(s.marks),
		notifications: maps.Clone(s.notifications),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.rooms = snap.rooms
	s.hours = snap.hours
	s.assignments = snap.assignments
	s.allocations = snap.allocations
	s.changeLogs = snap.changeLogs
	s.reservations = snap.reservations
	s.marks = snap.marks
	s.notifications = snap.notifications
}

// nextID 调用方需持有 s.mu
func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

// stamp 单调递增的创建时间，保证按 created_at 排序稳定
func (s *memStore) stamp() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

// repository 组装 Repository；nested 为 true 时事务不再加全局锁
func (s *memStore) repository(nested bool) *repository.Repository {
	return &repository.Repository{
		Tx:            &memTransactor{store: s, nested: nested},
		User:          &mockUserRepo{s},
		Student:       &mockStudentRepo{s},
		Room:          &mockRoomRepo{s},
		OperatingHour: &mockOperatingHourRepo{s},
		Assignment:    &mockAssignmentRepo{s},
		Allocation:    &mockAllocationRepo{s},
		Reservation:   &mockReservationRepo{s},
		Attendance:    &mockAttendanceRepo{s},
		Notification:  &mockNotificationRepo{s},
	}
}

// ── Transactor ──

type memTransactor struct {
	store  *memStore
	nested bool
}

func (t *memTransactor) Transaction(_ context.Context, fn func(tx *repository.Repository) error) error {
	if !t.nested {
		if gate := t.store.txGate; gate != nil {
			gate.Done()
			gate.Wait()
		}
		t.store.txMu.Lock()
		defer t.store.txMu.Unlock()
	}
	snap := t.store.snapshot()
	if err := fn(t.store.repository(true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// ── 关联预加载（调用方持有 s.mu）──

func (s *memStore) hydrateAssignment(id *string) *model.TeacherCourseAssignment {
	if id == nil {
		return nil
	}
	a, ok := s.assignments[*id]
	if !ok {
		return nil
	}
	if c, ok := s.courses[a.CourseID]; ok {
		a.Course = &c
	}
	if sem, ok := s.semesters[a.SemesterID]; ok {
		a.Semester = &sem
	}
	return &a
}

func (s *memStore) hydrateAllocation(a model.Allocation) model.Allocation {
	a.Assignment = s.hydrateAssignment(a.AssignmentID)
	if room, ok := s.rooms[a.RoomID]; ok {
		a.Room = &room
	}
	return a
}

func (s *memStore) hydrateReservation(r model.Reservation) model.Reservation {
	if room, ok := s.rooms[r.RoomID]; ok {
		r.Room = &room
	}
	if u, ok := s.users[r.RequesterID]; ok {
		r.Requester = &u
	}
	if r.AllocationID != nil {
		if a, ok := s.allocations[*r.AllocationID]; ok {
			h := s.hydrateAllocation(a)
			r.Allocation = &h
		}
	}
	return r
}

func sameDate(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}

func occupies(a model.Allocation) bool {
	return a.Status.OccupiesTime()
}

func sortAllocations(list []model.Allocation) {
	sort.Slice(list, func(i, j int) bool {
		di, dj := list[i].Date.Format(dateLayout), list[j].Date.Format(dateLayout)
		if di != dj {
			return di < dj
		}
		return list[i].StartTime < list[j].StartTime
	})
}

func sortReservations(list []model.Reservation) {
	sort.Slice(list, func(i, j int) bool {
		di, dj := list[i].Date.Format(dateLayout), list[j].Date.Format(dateLayout)
		if di != dj {
			return di < dj
		}
		return list[i].StartTime < list[j].StartTime
	})
}

func hasStatus(s model.ReservationStatus, statuses []model.ReservationStatus) bool {
	return slices.Contains(statuses, s)
}

func paginate[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return []T{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

// ── Mock UserRepository / StudentRepository ──

type mockUserRepo struct{ s *memStore }

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u, ok := m.s.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByBadge(_ context.Context, badgeCode string) (*model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.IsActive && u.BadgeCode != nil && *u.BadgeCode == badgeCode {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) LockByID(ctx context.Context, id string) (*model.User, error) {
	return m.GetByID(ctx, id)
}

func (m *mockUserRepo) ListAdmins(_ context.Context) ([]model.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.User
	for _, u := range m.s.users {
		if u.Role == model.RoleAdmin && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

type mockStudentRepo struct{ s *memStore }

func (m *mockStudentRepo) GetByBadge(_ context.Context, badgeCode string) (*model.Student, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, st := range m.s.students {
		if st.BadgeCode != nil && *st.BadgeCode == badgeCode {
			return &st, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock RoomRepository ──

type mockRoomRepo struct{ s *memStore }

func (m *mockRoomRepo) GetByID(_ context.Context, id string) (*model.Room, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r, ok := m.s.rooms[id]; ok {
		return &r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) GetByReader(_ context.Context, readerID string) (*model.Room, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, r := range m.s.rooms {
		if !r.IsArchived && r.ReaderID != nil && *r.ReaderID == readerID {
			return &r, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRoomRepo) LockByID(ctx context.Context, id string) (*model.Room, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRoomRepo) ListManagedBy(_ context.Context, managerID string) ([]model.Room, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Room
	for _, r := range m.s.rooms {
		if !r.IsArchived && r.IsManagedBy(managerID) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockRoomRepo) Archive(_ context.Context, id, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.rooms[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	r.IsArchived = true
	m.s.rooms[id] = r
	return nil
}

// ── Mock OperatingHourRepository ──

type mockOperatingHourRepo struct{ s *memStore }

func (m *mockOperatingHourRepo) GetWindow(_ context.Context, day time.Weekday) (*model.OperatingWindow, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if w, ok := m.s.hours[day]; ok {
		return &w, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOperatingHourRepo) ListWindows(_ context.Context) ([]model.OperatingWindow, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	result := make([]model.OperatingWindow, 0, len(m.s.hours))
	for _, w := range m.s.hours {
		result = append(result, w)
	}
	return result, nil
}

func (m *mockOperatingHourRepo) Upsert(_ context.Context, windows []model.OperatingWindow, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, w := range windows {
		m.s.hours[w.Weekday] = w
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ s *memStore }

func (m *mockAssignmentRepo) GetByID(_ context.Context, id string) (*model.TeacherCourseAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if a := m.s.hydrateAssignment(&id); a != nil {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) FindActiveForDate(_ context.Context, teacherID, courseID string, date time.Time) (*model.TeacherCourseAssignment, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var best *model.TeacherCourseAssignment
	var bestStart time.Time
	for id := range m.s.assignments {
		a := m.s.hydrateAssignment(&id)
		if a.TeacherID != teacherID || !a.IsActive || a.Semester == nil || !a.Semester.Covers(date) {
			continue
		}
		if courseID != "" && a.CourseID != courseID {
			continue
		}
		if best == nil || a.Semester.StartDate.After(bestStart) {
			best, bestStart = a, a.Semester.StartDate
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return best, nil
}

func (m *mockAssignmentRepo) Deactivate(_ context.Context, id, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.assignments[id]
	if !ok || !a.IsActive {
		return pkgerrors.ErrOptimisticLock
	}
	a.IsActive = false
	m.s.assignments[id] = a
	return nil
}

// ── Mock AllocationRepository ──

type mockAllocationRepo struct{ s *memStore }

func (m *mockAllocationRepo) Create(_ context.Context, a *model.Allocation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.allocCreateErr; err != nil {
		m.s.allocCreateErr = nil
		return err
	}
	// 排他约束：同房间同日占用时段不可重叠
	for _, other := range m.s.allocations {
		if other.RoomID == a.RoomID && sameDate(other.Date, a.Date) && occupies(other) &&
			model.Overlaps(other.StartTime, other.EndTime, a.StartTime, a.EndTime) {
			return &pgconn.PgError{Code: "23P01", Message: "conflicting key value violates exclusion constraint"}
		}
	}
	if a.AllocationID == "" {
		a.AllocationID = m.s.nextID("alloc")
	}
	if a.Status == "" {
		a.Status = model.AllocationScheduled
	}
	a.CreatedAt = m.s.stamp()
	row := *a
	row.Room, row.Assignment = nil, nil
	m.s.allocations[a.AllocationID] = row
	return nil
}

func (m *mockAllocationRepo) GetByID(_ context.Context, id string) (*model.Allocation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.allocations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	h := m.s.hydrateAllocation(a)
	return &h, nil
}

func (m *mockAllocationRepo) FindExact(_ context.Context, roomID string, date time.Time, start, end string) (*model.Allocation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, a := range m.s.allocations {
		if a.RoomID == roomID && sameDate(a.Date, date) && a.StartTime == start && a.EndTime == end && occupies(a) {
			h := m.s.hydrateAllocation(a)
			return &h, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAllocationRepo) filter(keep func(a model.Allocation) bool) []model.Allocation {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Allocation
	for _, a := range m.s.allocations {
		if keep(a) {
			result = append(result, m.s.hydrateAllocation(a))
		}
	}
	sortAllocations(result)
	return result
}

func (m *mockAllocationRepo) ListRoomOverlapping(_ context.Context, roomID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error) {
	return m.filter(func(a model.Allocation) bool {
		return a.RoomID == roomID && sameDate(a.Date, date) && occupies(a) &&
			a.AllocationID != excludeID && model.Overlaps(a.StartTime, a.EndTime, start, end)
	}), nil
}

func (m *mockAllocationRepo) ListTeacherOverlapping(_ context.Context, teacherID string, date time.Time, start, end, excludeID string) ([]model.Allocation, error) {
	list := m.filter(func(a model.Allocation) bool {
		return sameDate(a.Date, date) && occupies(a) &&
			a.AllocationID != excludeID && model.Overlaps(a.StartTime, a.EndTime, start, end)
	})
	var result []model.Allocation
	for _, a := range list {
		viaAssignment := a.Assignment != nil && a.Assignment.IsActive && a.Assignment.TeacherID == teacherID
		direct := a.ReservedTo != nil && *a.ReservedTo == teacherID
		if viaAssignment || direct {
			result = append(result, a)
		}
	}
	return result, nil
}

func (m *mockAllocationRepo) ListByRoomRange(_ context.Context, roomID string, from, to time.Time) ([]model.Allocation, error) {
	f, t := from.Format(dateLayout), to.Format(dateLayout)
	return m.filter(func(a model.Allocation) bool {
		d := a.Date.Format(dateLayout)
		return a.RoomID == roomID && occupies(a) && f <= d && d <= t
	}), nil
}

func (m *mockAllocationRepo) ListByTeacherRange(_ context.Context, teacherID string, from, to time.Time) ([]model.Allocation, error) {
	f, t := from.Format(dateLayout), to.Format(dateLayout)
	list := m.filter(func(a model.Allocation) bool {
		d := a.Date.Format(dateLayout)
		return occupies(a) && f <= d && d <= t
	})
	var result []model.Allocation
	for _, a := range list {
		if (a.Assignment != nil && a.Assignment.TeacherID == teacherID) || (a.ReservedTo != nil && *a.ReservedTo == teacherID) {
			result = append(result, a)
		}
	}
	return result, nil
}

func isFuture(date time.Time, start string, today time.Time, now string) bool {
	d, t := date.Format(dateLayout), today.Format(dateLayout)
	return d > t || (d == t && start >= now)
}

func (m *mockAllocationRepo) ListFutureByRoom(_ context.Context, roomID string, today time.Time, now string) ([]model.Allocation, error) {
	return m.filter(func(a model.Allocation) bool {
		return a.RoomID == roomID && a.Status == model.AllocationScheduled && isFuture(a.Date, a.StartTime, today, now)
	}), nil
}

func (m *mockAllocationRepo) ListFutureByAssignment(_ context.Context, assignmentID string, today time.Time, now string) ([]model.Allocation, error) {
	return m.filter(func(a model.Allocation) bool {
		return derefStr(a.AssignmentID) == assignmentID && a.Status == model.AllocationScheduled &&
			isFuture(a.Date, a.StartTime, today, now)
	}), nil
}

func (m *mockAllocationRepo) CountInProgressByAssignment(_ context.Context, assignmentID string, today time.Time, now string) (int64, error) {
	list := m.filter(func(a model.Allocation) bool {
		return derefStr(a.AssignmentID) == assignmentID && a.Status == model.AllocationScheduled &&
			sameDate(a.Date, today) && a.StartTime <= now && a.EndTime > now
	})
	return int64(len(list)), nil
}

func (m *mockAllocationRepo) UpdateScheduled(_ context.Context, a *model.Allocation, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.allocations[a.AllocationID]
	if !ok || row.Status != model.AllocationScheduled {
		return pkgerrors.ErrOptimisticLock
	}
	for id, other := range m.s.allocations {
		if id != a.AllocationID && other.RoomID == row.RoomID && sameDate(other.Date, row.Date) && occupies(other) &&
			model.Overlaps(other.StartTime, other.EndTime, a.StartTime, a.EndTime) {
			return &pgconn.PgError{Code: "23P01"}
		}
	}
	row.StartTime, row.EndTime = a.StartTime, a.EndTime
	row.AssignmentID, row.ReservedTo = a.AssignmentID, a.ReservedTo
	row.Section = a.Section
	m.s.allocations[a.AllocationID] = row
	return nil
}

func (m *mockAllocationRepo) UpdateStatus(_ context.Context, id string, from, to model.AllocationStatus, _ string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	row, ok := m.s.allocations[id]
	if !ok || row.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	row.Status = to
	m.s.allocations[id] = row
	return nil
}

func (m *mockAllocationRepo) CreateChangeLog(_ context.Context, log *model.AllocationChangeLog) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	log.ChangeLogID = m.s.nextID("log")
	m.s.changeLogs = append(m.s.changeLogs, *log)
	return nil
}

// ── Mock ReservationRepository ──

type mockReservationRepo struct{ s *memStore }

func (m *mockReservationRepo) Create(_ context.Context, r *model.Reservation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ReservationID == "" {
		r.ReservationID = m.s.nextID("resv")
	}
	r.CreatedAt = m.s.stamp()
	r.UpdatedAt = r.CreatedAt
	row := *r
	row.Room, row.Allocation, row.Requester = nil, nil, nil
	m.s.reservations[r.ReservationID] = row
	return nil
}

func (m *mockReservationRepo) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	h := m.s.hydrateReservation(r)
	return &h, nil
}

func (m *mockReservationRepo) filter(keep func(r model.Reservation) bool) []model.Reservation {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.Reservation
	for _, r := range m.s.reservations {
		if keep(r) {
			result = append(result, m.s.hydrateReservation(r))
		}
	}
	sortReservations(result)
	return result
}

func (m *mockReservationRepo) FindSameSlot(_ context.Context, requesterID, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) (*model.Reservation, error) {
	list := m.filter(func(r model.Reservation) bool {
		return r.RequesterID == requesterID && r.RoomID == roomID && sameDate(r.Date, date) &&
			r.StartTime == start && r.EndTime == end && hasStatus(r.Status, statuses)
	})
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[0], nil
}

func (m *mockReservationRepo) ListRoomOverlapping(_ context.Context, roomID string, date time.Time, start, end string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return r.RoomID == roomID && sameDate(r.Date, date) && hasStatus(r.Status, statuses) &&
			model.Overlaps(r.StartTime, r.EndTime, start, end)
	}), nil
}

func (m *mockReservationRepo) ListForTeacherOnDate(_ context.Context, roomID, teacherID string, date time.Time, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return r.RoomID == roomID && r.RequesterID == teacherID && sameDate(r.Date, date) && hasStatus(r.Status, statuses)
	}), nil
}

func (m *mockReservationRepo) FindActiveCovering(_ context.Context, roomID string, date time.Time, at string) (*model.Reservation, error) {
	list := m.filter(func(r model.Reservation) bool {
		return r.RoomID == roomID && sameDate(r.Date, date) && r.Status == model.ReservationActive &&
			r.StartTime <= at && r.EndTime >= at
	})
	if len(list) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &list[len(list)-1], nil
}

func (m *mockReservationRepo) ListActiveByRoom(_ context.Context, roomID string, date time.Time) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return r.RoomID == roomID && sameDate(r.Date, date) && r.Status == model.ReservationActive
	}), nil
}

func (m *mockReservationRepo) ListOverdueActive(_ context.Context, today time.Time, now string) ([]model.Reservation, error) {
	t := today.Format(dateLayout)
	return m.filter(func(r model.Reservation) bool {
		d := r.Date.Format(dateLayout)
		return r.Status == model.ReservationActive && (d < t || (d == t && r.EndTime < now))
	}), nil
}

func (m *mockReservationRepo) ListByAllocation(_ context.Context, allocationID string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return derefStr(r.AllocationID) == allocationID && hasStatus(r.Status, statuses)
	}), nil
}

func (m *mockReservationRepo) ListUnlinkedByAssignment(_ context.Context, assignmentID string, statuses []model.ReservationStatus) ([]model.Reservation, error) {
	return m.filter(func(r model.Reservation) bool {
		return derefStr(r.AssignmentID) == assignmentID && r.AllocationID == nil && hasStatus(r.Status, statuses)
	}), nil
}

func (m *mockReservationRepo) CountActiveByAssignment(_ context.Context, assignmentID string) (int64, error) {
	list := m.filter(func(r model.Reservation) bool {
		return derefStr(r.AssignmentID) == assignmentID && r.Status == model.ReservationActive
	})
	return int64(len(list)), nil
}

func (m *mockReservationRepo) ListPendingByRooms(_ context.Context, roomIDs []string, offset, limit int) ([]model.Reservation, int64, error) {
	list := m.filter(func(r model.Reservation) bool {
		return slices.Contains(roomIDs, r.RoomID) && r.Status == model.ReservationPending
	})
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (m *mockReservationRepo) ListByRequester(_ context.Context, requesterID string, offset, limit int) ([]model.Reservation, int64, error) {
	list := m.filter(func(r model.Reservation) bool { return r.RequesterID == requesterID })
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (m *mockReservationRepo) UpdateStatus(_ context.Context, id string, from, to model.ReservationStatus, fields map[string]interface{}) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reservations[id]
	if !ok || r.Status != from {
		return pkgerrors.ErrOptimisticLock
	}
	for k, v := range fields {
		switch k {
		case "allocation_id":
			r.AllocationID = optString(v)
		case "assignment_id":
			r.AssignmentID = optString(v)
		case "processed_by":
			r.ProcessedBy = optString(v)
		case "updated_by":
			r.UpdatedBy = optString(v)
		case "processed_at":
			t := v.(time.Time)
			r.ProcessedAt = &t
		case "start_time":
			r.StartTime = v.(string)
		case "end_time":
			r.EndTime = v.(string)
		case "duration_minutes":
			r.DurationMinutes = v.(int)
		default:
			panic("mockReservationRepo.UpdateStatus: 未知字段 " + k)
		}
	}
	r.Status = to
	m.s.reservations[id] = r
	return nil
}

func optString(v interface{}) *string {
	switch s := v.(type) {
	case string:
		return &s
	case *string:
		return s
	}
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ s *memStore }

func (m *mockAttendanceRepo) Create(_ context.Context, mark *model.AttendanceMark) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.marks {
		if other.ReservationID == mark.ReservationID && other.StudentID == mark.StudentID {
			return &pgconn.PgError{Code: "23505"}
		}
	}
	mark.MarkID = m.s.nextID("mark")
	row := *mark
	row.Student = nil
	m.s.marks[mark.MarkID] = row
	return nil
}

func (m *mockAttendanceRepo) GetByReservationAndStudent(_ context.Context, reservationID, studentID string) (*model.AttendanceMark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, mark := range m.s.marks {
		if mark.ReservationID == reservationID && mark.StudentID == studentID {
			return &mark, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAttendanceRepo) CloseMark(_ context.Context, markID, timeOut string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	mark, ok := m.s.marks[markID]
	if !ok || mark.TimeOut != nil {
		return pkgerrors.ErrOptimisticLock
	}
	mark.TimeOut = strPtr(timeOut)
	m.s.marks[markID] = mark
	return nil
}

func (m *mockAttendanceRepo) CloseOpenByReservation(_ context.Context, reservationID, timeOut string) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var n int64
	for id, mark := range m.s.marks {
		if mark.ReservationID == reservationID && mark.TimeOut == nil {
			mark.TimeOut = strPtr(timeOut)
			m.s.marks[id] = mark
			n++
		}
	}
	return n, nil
}

func (m *mockAttendanceRepo) ListByReservation(_ context.Context, reservationID string) ([]model.AttendanceMark, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var result []model.AttendanceMark
	for _, mark := range m.s.marks {
		if mark.ReservationID != reservationID {
			continue
		}
		if st, ok := m.s.students[mark.StudentID]; ok {
			mark.Student = &st
		}
		result = append(result, mark)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TimeIn < result[j].TimeIn })
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ s *memStore }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n.NotificationID = m.s.nextID("notif")
	n.CreatedAt = m.s.stamp()
	m.s.notifications[n.NotificationID] = *n
	return nil
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var list []model.Notification
	for _, n := range m.s.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			list = append(list, n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return paginate(list, offset, limit), int64(len(list)), nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	n, ok := m.s.notifications[id]
	if !ok || n.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	n.IsRead = true
	m.s.notifications[id] = n
	return nil
}
