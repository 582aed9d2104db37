package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateFolderFormat names a date-folder layout by field order and separator.
type DateFolderFormat int

const (
	DayMonthYear DateFolderFormat = iota
	YearMonthDay
	MonthDayYear
	DayMonthYearCompact
	YearMonthDayCompact
	DayMonthYearUnderscore
	YearMonthDayUnderscore
)

type fieldOrder int

const (
	orderDMY fieldOrder = iota
	orderYMD
	orderMDY
)

type folderLayout struct {
	name    string
	layout  string
	pattern *regexp.Regexp
	order   fieldOrder
}

var folderLayouts = map[DateFolderFormat]folderLayout{
	DayMonthYear:           {"dd-MM-yyyy", "02-01-2006", regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), orderDMY},
	YearMonthDay:           {"yyyy-MM-dd", "2006-01-02", regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`), orderYMD},
	MonthDayYear:           {"MM-dd-yyyy", "01-02-2006", regexp.MustCompile(`(\d{2})-(\d{2})-(\d{4})`), orderMDY},
	DayMonthYearCompact:    {"ddMMyyyy", "02012006", regexp.MustCompile(`(\d{2})(\d{2})(\d{4})`), orderDMY},
	YearMonthDayCompact:    {"yyyyMMdd", "20060102", regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`), orderYMD},
	DayMonthYearUnderscore: {"dd_MM_yyyy", "02_01_2006", regexp.MustCompile(`(\d{2})_(\d{2})_(\d{4})`), orderDMY},
	YearMonthDayUnderscore: {"yyyy_MM_dd", "2006_01_02", regexp.MustCompile(`(\d{4})_(\d{2})_(\d{2})`), orderYMD},
}

// DateFolderFormats lists every supported layout in declaration order.
func DateFolderFormats() []DateFolderFormat {
	return []DateFolderFormat{
		DayMonthYear, YearMonthDay, MonthDayYear,
		DayMonthYearCompact, YearMonthDayCompact,
		DayMonthYearUnderscore, YearMonthDayUnderscore,
	}
}

// ParseDateFolderFormat maps a layout name such as "yyyy-MM-dd" to its format.
func ParseDateFolderFormat(value string) (DateFolderFormat, error) {
	trimmed := strings.TrimSpace(value)
	for _, f := range DateFolderFormats() {
		if strings.EqualFold(folderLayouts[f].name, trimmed) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown date folder format %q", value)
}

// Valid reports whether f is one of the known layouts.
func (f DateFolderFormat) Valid() bool {
	_, ok := folderLayouts[f]
	return ok
}

func (f DateFolderFormat) String() string {
	if l, ok := folderLayouts[f]; ok {
		return l.name
	}
	return fmt.Sprintf("DateFolderFormat(%d)", int(f))
}

// Format renders date as a folder name in this layout.
func (f DateFolderFormat) Format(date time.Time) string {
	l, ok := folderLayouts[f]
	if !ok {
		l = folderLayouts[DayMonthYear]
	}
	return date.Format(l.layout)
}

// Extract finds the first date embedded in name, tolerating surrounding text.
// Impossible calendar dates are rejected.
func (f DateFolderFormat) Extract(name string) (time.Time, bool) {
	l, ok := folderLayouts[f]
	if !ok {
		return time.Time{}, false
	}
	m := l.pattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])
	var year, month, day int
	switch l.order {
	case orderDMY:
		day, month, year = a, b, c
	case orderYMD:
		year, month, day = a, b, c
	case orderMDY:
		month, day, year = a, b, c
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if date.Year() != year || int(date.Month()) != month || date.Day() != day {
		return time.Time{}, false
	}
	return date, true
}

// MarshalText implements encoding.TextMarshaler.
func (f DateFolderFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *DateFolderFormat) UnmarshalText(b []byte) error {
	parsed, err := ParseDateFolderFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
