package dto

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	require.NoError(t, registerOn(v))
	return v
}

func TestValidators_HHMM(t *testing.T) {
	v := newValidate(t)
	for _, ok := range []string{"08:00", "8:30", "23:59"} {
		assert.NoError(t, v.Var(ok, "hhmm"), ok)
	}
	for _, bad := range []string{"24:00", "8:5", "0800", "noon", ""} {
		assert.Error(t, v.Var(bad, "hhmm"), bad)
	}
}

func TestValidators_Weekday(t *testing.T) {
	v := newValidate(t)
	for _, ok := range []string{"monday", "Tue", "SUNDAY"} {
		assert.NoError(t, v.Var(ok, "weekday"), ok)
	}
	for _, bad := range []string{"funday", "mo", ""} {
		assert.Error(t, v.Var(bad, "weekday"), bad)
	}
}

func TestValidators_GenerateRequest(t *testing.T) {
	v := newValidate(t)
	req := GenerateScheduleRequest{
		CourseID:  "7b0c1f5e-5c0e-4a55-9a57-0f3c1c0a7d11",
		RoomID:    "0d5f0c44-3e0b-4f7b-9c7e-6a2f6f0c1b22",
		Section:   "BSCS-1A",
		DateFrom:  "2025-03-10",
		DateTo:    "2025-03-16",
		Weekdays:  []string{"mon", "wednesday"},
		StartTime: "13:00",
		EndTime:   "16:00",
	}
	v.SetTagName("binding")
	assert.NoError(t, v.Struct(req))

	req.Weekdays = []string{"mon", "someday"}
	assert.Error(t, v.Struct(req))
}
