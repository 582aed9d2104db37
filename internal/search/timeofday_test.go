package search_test

import (
	"testing"
	"time"

	"reportwatch/internal/search"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]string{
		"08:00":    "08:00",
		"8:5":      "08:05",
		"23:59:59": "23:59:59",
		" 14:30 ":  "14:30",
	}
	for in, want := range cases {
		got, err := search.ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", in, err)
		}
		if got.String() != want {
			t.Fatalf("ParseTimeOfDay(%q) = %s, want %s", in, got, want)
		}
	}
	for _, bad := range []string{"", "24:00", "12", "12:60", "aa:bb", "1:2:3:4"} {
		if _, err := search.ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTimeOfDayOnNormalizesNextDay(t *testing.T) {
	tod := search.MustParseTimeOfDay("08:30")
	base := time.Date(2024, 12, 31, 10, 0, 0, 0, time.Local)
	next := tod.On(base.AddDate(0, 0, 1))
	if next.Year() != 2025 || next.Month() != time.January || next.Day() != 1 || next.Hour() != 8 || next.Minute() != 30 {
		t.Fatalf("unexpected instant %v", next)
	}
}

func TestNearestSchedule(t *testing.T) {
	times := []search.TimeOfDay{search.MustParseTimeOfDay("08:00"), search.MustParseTimeOfDay("14:00")}
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local)
	got, ok := search.Nearest(times, now)
	if !ok || got.String() != "08:00" {
		t.Fatalf("nearest = %s", got)
	}
	now = time.Date(2024, 5, 1, 11, 30, 0, 0, time.Local)
	if got, _ := search.Nearest(times, now); got.String() != "14:00" {
		t.Fatalf("nearest = %s", got)
	}
	if _, ok := search.Nearest(nil, now); ok {
		t.Fatalf("expected no nearest for empty schedule")
	}
}

func TestDateFolderFormats(t *testing.T) {
	date := time.Date(2026, 2, 5, 0, 0, 0, 0, time.Local)
	want := map[search.DateFolderFormat]string{
		search.DayMonthYear:           "05-02-2026",
		search.YearMonthDay:           "2026-02-05",
		search.MonthDayYear:           "02-05-2026",
		search.DayMonthYearCompact:    "05022026",
		search.YearMonthDayCompact:    "20260205",
		search.DayMonthYearUnderscore: "05_02_2026",
		search.YearMonthDayUnderscore: "2026_02_05",
	}
	if len(search.DateFolderFormats()) != len(want) {
		t.Fatalf("expected %d formats", len(want))
	}
	for format, name := range want {
		if got := format.Format(date); got != name {
			t.Fatalf("%s.Format = %s, want %s", format, got, name)
		}
		extracted, ok := format.Extract("export_" + name + "_final")
		if !ok || !search.SameDay(extracted, date) {
			t.Fatalf("%s.Extract failed: %v %v", format, extracted, ok)
		}
		parsed, err := search.ParseDateFolderFormat(format.String())
		if err != nil || parsed != format {
			t.Fatalf("round trip of %s failed: %v", format, err)
		}
	}
	if _, ok := search.DayMonthYear.Extract("31-02-2026"); ok {
		t.Fatalf("impossible date should not extract")
	}
}
