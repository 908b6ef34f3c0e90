package services

import (
	"errors"
	"strings"
	"time"
)

const exportRangeDateLayout = "2006-01-02"

var (
	ErrExportFromDateInvalid = errors.New("export invalid from date")
	ErrExportToDateInvalid   = errors.New("export invalid to date")
	ErrExportRangeInvalid    = errors.New("export invalid range")
)

// ExportRange limits an export to whole calendar days. A nil bound is open.
type ExportRange struct {
	From *time.Time
	To   *time.Time
}

// ParseExportRange reads YYYY-MM-DD bounds in location; blank bounds stay open.
func ParseExportRange(rawFrom string, rawTo string, location *time.Location) (ExportRange, error) {
	if location == nil {
		location = time.UTC
	}

	from, err := parseExportDay(rawFrom, location)
	if err != nil {
		return ExportRange{}, ErrExportFromDateInvalid
	}
	to, err := parseExportDay(rawTo, location)
	if err != nil {
		return ExportRange{}, ErrExportToDateInvalid
	}
	if from != nil && to != nil && to.Before(*from) {
		return ExportRange{}, ErrExportRangeInvalid
	}
	return ExportRange{From: from, To: to}, nil
}

func parseExportDay(raw string, location *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(exportRangeDateLayout, trimmed, location)
	if err != nil {
		return nil, err
	}
	day := DateAtLocation(parsed, location)
	return &day, nil
}

// Contains reports whether value falls on a day inside the range.
func (exportRange ExportRange) Contains(value time.Time, location *time.Location) bool {
	if exportRange.From != nil {
		start, _ := DayBounds(*exportRange.From, location)
		if value.Before(start) {
			return false
		}
	}
	if exportRange.To != nil {
		next := DateAtLocation(*exportRange.To, location).AddDate(0, 0, 1)
		if !value.Before(next) {
			return false
		}
	}
	return true
}

func (exportRange ExportRange) IsOpen() bool {
	return exportRange.From == nil && exportRange.To == nil
}
