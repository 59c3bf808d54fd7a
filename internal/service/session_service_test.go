package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
)

// approvedSession 教师 A 在 room-1 的已批准申请，关联同时段排课
func (f *fixture) approvedSession(date, start, end string) *model.Reservation {
	alloc := f.addAllocation(roomID, date, start, end, assignmentAID, teacherAID)
	return f.addReservation(model.Reservation{
		RoomID:       roomID,
		Date:         labDate(date),
		StartTime:    start,
		EndTime:      end,
		RequesterID:  teacherAID,
		AllocationID: strPtr(alloc.AllocationID),
		AssignmentID: strPtr(assignmentAID),
		Status:       model.ReservationApproved,
	})
}

func (f *fixture) tap(t *testing.T, svc SessionService, hhmm, badge string) (*dto.TapResponse, error) {
	t.Helper()
	f.clock.Set(labTime("2025-03-03", hhmm))
	return svc.Tap(context.Background(), badge, readerID)
}

func TestSessionService_TeacherCheckInWithinGrace(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "08:45", badgeTeacherA); !errors.Is(err, ErrNoSessionNow) {
		t.Fatalf("提前超过宽限时间刷卡应被拒绝，实际=%v", err)
	}

	resp, err := f.tap(t, svc, "08:55", badgeTeacherA)
	if err != nil {
		t.Fatalf("宽限时间内刷卡应成功: %v", err)
	}
	if resp.Outcome != dto.TapCheckedIn || resp.ReservationID != resv.ReservationID {
		t.Errorf("期望签到，实际=%+v", resp)
	}

	got := f.reservation(resv.ReservationID)
	if got.Status != model.ReservationActive {
		t.Errorf("期望 Active，实际=%s", got.Status)
	}
	if got.StartTime != "08:55" || got.DurationMinutes != 185 {
		t.Errorf("开始时间应改写为刷卡时刻，实际 start=%s duration=%d", got.StartTime, got.DurationMinutes)
	}
	if f.publisher.count() != 1 {
		t.Errorf("签到后应推送一次会话，实际=%d", f.publisher.count())
	}
}

func TestSessionService_StudentTapCycle(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "08:58", badgeStudent1); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("教师未签到时学生刷卡应被拒绝，实际=%v", err)
	}
	if _, err := f.tap(t, svc, "09:00", badgeTeacherA); err != nil {
		t.Fatalf("教师签到失败: %v", err)
	}

	steps := []struct {
		at      string
		outcome string
	}{
		{"09:10", dto.TapTimeIn},
		{"10:00", dto.TapTimeOut},
		{"10:30", dto.TapAlreadyOut},
	}
	for _, step := range steps {
		resp, err := f.tap(t, svc, step.at, badgeStudent1)
		if err != nil {
			t.Fatalf("%s 学生刷卡失败: %v", step.at, err)
		}
		if resp.Outcome != step.outcome {
			t.Errorf("%s 期望 %s，实际=%s", step.at, step.outcome, resp.Outcome)
		}
	}

	marks, _ := f.repo.Attendance.ListByReservation(context.Background(), resv.ReservationID)
	if len(marks) != 1 || marks[0].TimeIn != "09:10" || derefStr(marks[0].TimeOut) != "10:00" {
		t.Errorf("签到记录不正确: %+v", marks)
	}
}

func TestSessionService_TeacherCheckOutClosesMarks(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	mustTap := func(at, badge, want string) {
		t.Helper()
		resp, err := f.tap(t, svc, at, badge)
		if err != nil {
			t.Fatalf("%s 刷卡失败: %v", at, err)
		}
		if resp.Outcome != want {
			t.Fatalf("%s 期望 %s，实际=%s", at, want, resp.Outcome)
		}
	}
	mustTap("08:55", badgeTeacherA, dto.TapCheckedIn)
	mustTap("09:05", badgeStudent1, dto.TapTimeIn)
	mustTap("09:20", badgeStudent2, dto.TapTimeIn)
	mustTap("10:00", badgeStudent2, dto.TapTimeOut)
	mustTap("11:30", badgeTeacherA, dto.TapCheckedOut)

	got := f.reservation(resv.ReservationID)
	if got.Status != model.ReservationCompleted || got.EndTime != "11:30" || got.DurationMinutes != 155 {
		t.Errorf("签退后申请不正确: status=%s end=%s duration=%d", got.Status, got.EndTime, got.DurationMinutes)
	}
	if a := f.allocation(*got.AllocationID); a.Status != model.AllocationCompleted {
		t.Errorf("关联排课应完成，实际=%s", a.Status)
	}

	marks, _ := f.repo.Attendance.ListByReservation(context.Background(), resv.ReservationID)
	for _, m := range marks {
		if m.TimeOut == nil {
			t.Errorf("学生 %s 未被签退", m.StudentID)
		}
	}
	if len(marks) != 2 || derefStr(marks[0].TimeOut) != "11:30" || derefStr(marks[1].TimeOut) != "10:00" {
		t.Errorf("签退时间不正确: %+v", marks)
	}

	// 再次刷卡不再变化
	mustTap("11:40", badgeTeacherA, dto.TapAlreadyCompleted)
	if _, err := f.tap(t, svc, "11:45", badgeStudent1); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("课程结束后学生刷卡应被拒绝，实际=%v", err)
	}
}

func TestSessionService_TeacherWithoutReservation(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "09:00", badgeTeacherB); !errors.Is(err, ErrNoSessionNow) {
		t.Errorf("无申请的教师刷卡应被拒绝，实际=%v", err)
	}
	if f.allocationCount() != 1 || f.reservationCount() != 1 {
		t.Error("刷卡不应创建排课或申请")
	}
}

func TestSessionService_UnknownBadgeOrReader(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	ctx := context.Background()

	if _, err := svc.Tap(ctx, "BADGE-NONE", readerID); !errors.Is(err, ErrUnknownBadge) {
		t.Errorf("期望 ErrUnknownBadge，实际=%v", err)
	}
	if _, err := svc.Tap(ctx, badgeTeacherA, "reader-x"); !errors.Is(err, ErrUnknownReader) {
		t.Errorf("期望 ErrUnknownReader，实际=%v", err)
	}
}

func TestSessionService_SweepOverdue(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "09:05", badgeTeacherA); err != nil {
		t.Fatalf("教师签到失败: %v", err)
	}
	if _, err := f.tap(t, svc, "09:10", badgeStudent1); err != nil {
		t.Fatalf("学生签到失败: %v", err)
	}

	// 结束前清理不做任何事
	result, err := svc.SweepOverdue(context.Background(), labTime("2025-03-03", "12:00"))
	if err != nil || result.Completed != 0 {
		t.Fatalf("计划结束时刻不应清理: result=%+v err=%v", result, err)
	}

	result, err = svc.SweepOverdue(context.Background(), labTime("2025-03-03", "12:30"))
	if err != nil {
		t.Fatalf("SweepOverdue 失败: %v", err)
	}
	if result.Completed != 1 || result.MarksClosed != 1 || result.ReservationIDs[0] != resv.ReservationID {
		t.Errorf("清理结果不正确: %+v", result)
	}

	got := f.reservation(resv.ReservationID)
	if got.Status != model.ReservationCompleted || got.EndTime != "12:00" || got.DurationMinutes != 175 {
		t.Errorf("超时结束应保留计划结束时间: status=%s end=%s duration=%d", got.Status, got.EndTime, got.DurationMinutes)
	}
	marks, _ := f.repo.Attendance.ListByReservation(context.Background(), resv.ReservationID)
	if len(marks) != 1 || derefStr(marks[0].TimeOut) != "12:00" {
		t.Errorf("学生应签退到 12:00，实际=%+v", marks)
	}

	again, err := svc.SweepOverdue(context.Background(), labTime("2025-03-03", "13:00"))
	if err != nil || again.Completed != 0 || len(again.ReservationIDs) != 0 {
		t.Errorf("重复清理应为空操作: result=%+v err=%v", again, err)
	}
}

func TestSessionService_TapRunsSweepFirst(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "09:00", badgeTeacherA); err != nil {
		t.Fatalf("教师签到失败: %v", err)
	}

	// 12:30 其他教师刷卡失败，但超时会话仍被结束
	if _, err := f.tap(t, svc, "12:30", badgeTeacherB); !errors.Is(err, ErrNoSessionNow) {
		t.Fatalf("期望 ErrNoSessionNow，实际=%v", err)
	}
	if got := f.reservation(resv.ReservationID); got.Status != model.ReservationCompleted {
		t.Errorf("刷卡前应先结束超时会话，实际=%s", got.Status)
	}
}

func TestSessionService_ActiveSessions(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "09:00", badgeTeacherA); err != nil {
		t.Fatalf("教师签到失败: %v", err)
	}
	if _, err := f.tap(t, svc, "09:15", badgeStudent2); err != nil {
		t.Fatalf("学生签到失败: %v", err)
	}
	f.clock.Set(labTime("2025-03-03", "09:30"))

	list, err := svc.ActiveSessions(context.Background(), roomID, "")
	if err != nil {
		t.Fatalf("ActiveSessions 失败: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("期望 1 个进行中会话，实际=%d", len(list))
	}
	s := list[0]
	if s.ReservationID != resv.ReservationID || s.RemainingMinutes != 150 {
		t.Errorf("会话信息不正确: %+v", s)
	}
	if s.Teacher == nil || s.Teacher.Name != "Teacher A" {
		t.Errorf("应包含教师信息，实际=%+v", s.Teacher)
	}
	if len(s.Attendees) != 1 || s.Attendees[0].StudentNo != "2025-0002" {
		t.Errorf("在场学生不正确: %+v", s.Attendees)
	}

	if _, err := svc.ActiveSessions(context.Background(), "room-x", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound，实际=%v", err)
	}
	if f.publisher.count() != 2 {
		t.Errorf("两次有效刷卡应各推送一次，实际=%d", f.publisher.count())
	}
}

func TestSessionService_UnknownReaderStillSweeps(t *testing.T) {
	f := newFixture(t)
	svc := f.sessionService()
	resv := f.approvedSession("2025-03-03", "09:00", "12:00")

	if _, err := f.tap(t, svc, "09:00", badgeTeacherA); err != nil {
		t.Fatalf("教师签到失败: %v", err)
	}

	f.clock.Set(labTime("2025-03-03", "12:30"))
	if _, err := svc.Tap(context.Background(), badgeTeacherA, "reader-x"); !errors.Is(err, ErrUnknownReader) {
		t.Fatalf("期望 ErrUnknownReader，实际=%v", err)
	}
	if got := f.reservation(resv.ReservationID); got.Status != model.ReservationCompleted {
		t.Errorf("读卡器无效时也应先结束超时会话，实际=%s", got.Status)
	}
}
