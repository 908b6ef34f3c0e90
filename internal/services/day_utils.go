package services

import (
	"fmt"
	"strings"
	"time"
)

const secondsPerDay = 24 * 60 * 60

type DayFilter string

const (
	DayFilterAll        DayFilter = "all"
	DayFilterToday      DayFilter = "today"
	DayFilterYesterday  DayFilter = "yesterday"
	DayFilterLast7Days  DayFilter = "last7Days"
	DayFilterLast30Days DayFilter = "last30Days"
)

func ParseDayFilter(raw string) (DayFilter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return DayFilterAll, nil
	case "today":
		return DayFilterToday, nil
	case "yesterday":
		return DayFilterYesterday, nil
	case "last7days", "7", "7d":
		return DayFilterLast7Days, nil
	case "last30days", "30", "30d":
		return DayFilterLast30Days, nil
	default:
		return "", fmt.Errorf("unknown day filter %q", raw)
	}
}

func DateAtLocation(value time.Time, location *time.Location) time.Time {
	if location == nil {
		location = time.UTC
	}
	localized := value.In(location)
	year, month, day := localized.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, location)
}

// DayBounds returns the inclusive [start, end] of the local calendar day
// containing value, with end one second before the next midnight.
func DayBounds(value time.Time, location *time.Location) (time.Time, time.Time) {
	start := DateAtLocation(value, location)
	return start, start.Add((secondsPerDay - 1) * time.Second)
}

// Window returns the inclusive bounds of the filter relative to now. Windows
// step in fixed 86400-second days back from local midnight.
func (filter DayFilter) Window(now time.Time, location *time.Location) (time.Time, time.Time, bool) {
	todayStart := DateAtLocation(now, location)
	endOfToday := todayStart.Add((secondsPerDay - 1) * time.Second)

	switch filter {
	case DayFilterToday:
		return todayStart, endOfToday, true
	case DayFilterYesterday:
		start := todayStart.Add(-secondsPerDay * time.Second)
		return start, todayStart.Add(-time.Second), true
	case DayFilterLast7Days:
		return daysBack(todayStart, 6), endOfToday, true
	case DayFilterLast30Days:
		return daysBack(todayStart, 29), endOfToday, true
	default:
		return time.Time{}, time.Time{}, false
	}
}

func (filter DayFilter) Contains(value time.Time, now time.Time, location *time.Location) bool {
	start, end, bounded := filter.Window(now, location)
	if !bounded {
		return true
	}
	return !value.Before(start) && !value.After(end)
}

func daysBack(todayStart time.Time, days int) time.Time {
	return todayStart.Add(-time.Duration(days) * secondsPerDay * time.Second)
}
