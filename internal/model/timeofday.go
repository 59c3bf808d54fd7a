package model

import (
	"fmt"
	"strconv"
	"strings"
)

// 时刻统一使用零填充的 "HH:MM" 字符串，数据库 time 列读回的 "HH:MM:SS" 需先规范化。

// NormalizeHHMM 将 "H:MM"、"HH:MM"、"HH:MM:SS" 规范化为 "HH:MM"
func NormalizeHHMM(s string) (string, error) {
	m, err := ParseHHMM(s)
	if err != nil {
		return "", err
	}
	return FormatHHMM(m), nil
}

// ParseHHMM 解析时刻为当日分钟数
func ParseHHMM(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("无效的时间格式 %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("无效的小时 %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("无效的分钟 %q", s)
	}
	return h*60 + m, nil
}

// FormatHHMM 将当日分钟数格式化为 "HH:MM"
func FormatHHMM(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// MinutesBetween 计算 [start, end) 的分钟数，解析失败或倒序时返回 0
func MinutesBetween(start, end string) int {
	s, err := ParseHHMM(start)
	if err != nil {
		return 0
	}
	e, err := ParseHHMM(end)
	if err != nil || e < s {
		return 0
	}
	return e - s
}

// Overlaps 严格区间重叠：[a,b) 与 [c,d) 冲突当且仅当 NOT (b <= c OR a >= d)
func Overlaps(a, b, c, d string) bool {
	return !(b <= c || a >= d)
}
