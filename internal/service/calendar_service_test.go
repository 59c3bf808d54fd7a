package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Seanzed08/SmartLab/internal/dto"
	"github.com/Seanzed08/SmartLab/internal/model"
)

func TestCalendarService_TeacherFeed(t *testing.T) {
	f := newFixture(t)
	svc := NewCalendarService(testLab(), f.repo, f.clock, f.logger)
	ctx := context.Background()

	a := f.addAllocation(roomID, "2025-03-04", "09:00", "12:00", assignmentAID, teacherAID)
	f.addAllocation(roomID, "2025-03-05", "09:00", "12:00", assignmentBID, teacherBID)
	cancelled := f.addAllocation(roomID, "2025-03-06", "09:00", "12:00", assignmentAID, teacherAID)
	_ = f.repo.Allocation.UpdateStatus(ctx, cancelled.AllocationID, model.AllocationScheduled, model.AllocationCancelled, "")

	feed, err := svc.TeacherFeed(ctx, teacherAID, &dto.CalendarRequest{})
	if err != nil {
		t.Fatalf("TeacherFeed 失败: %v", err)
	}

	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"PRODID:-//SmartLab//Lab Allocations//EN",
		"UID:" + a.AllocationID + "@smartlab",
		"DTSTART:20250304T010000Z",
		"DTEND:20250304T040000Z",
		"SUMMARY:Programming 1",
		"LOCATION:Lab 101",
	} {
		if !strings.Contains(feed, want) {
			t.Errorf("日历缺少 %q\n%s", want, feed)
		}
	}
	if n := strings.Count(feed, "BEGIN:VEVENT"); n != 1 {
		t.Errorf("只应包含教师 A 的 1 条有效排课，实际=%d", n)
	}
}

func TestCalendarService_Range(t *testing.T) {
	f := newFixture(t)
	svc := NewCalendarService(testLab(), f.repo, f.clock, f.logger)
	ctx := context.Background()

	f.addAllocation(roomID, "2025-03-04", "09:00", "12:00", assignmentAID, teacherAID)

	feed, err := svc.TeacherFeed(ctx, teacherAID, &dto.CalendarRequest{From: "2025-03-05", To: "2025-03-31"})
	if err != nil {
		t.Fatalf("TeacherFeed 失败: %v", err)
	}
	if strings.Contains(feed, "BEGIN:VEVENT") {
		t.Error("范围外的排课不应导出")
	}

	if _, err := svc.TeacherFeed(ctx, teacherAID, &dto.CalendarRequest{From: "2025-03-31", To: "2025-03-01"}); !errors.Is(err, ErrDateRangeInvalid) {
		t.Errorf("期望 ErrDateRangeInvalid，实际=%v", err)
	}
	if _, err := svc.TeacherFeed(ctx, teacherAID, &dto.CalendarRequest{From: "2025-01-01", To: "2026-06-01"}); !errors.Is(err, ErrDateRangeTooLong) {
		t.Errorf("期望 ErrDateRangeTooLong，实际=%v", err)
	}
}
