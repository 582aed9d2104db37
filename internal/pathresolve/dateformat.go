package pathresolve

import (
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
)

// FormatDate renders date using a token layout. Layouts containing '%' are
// strftime layouts; everything else uses the yyyy/MM/dd family:
//
//	yyyy yy y   year
//	MMMM MMM MM M   month name, abbreviation, padded, bare
//	dddd ddd dd d   weekday name, abbreviation, padded day, bare day
//	HH H hh h mm m ss s   clock fields
//	tt t   AM/PM designator
//
// Text inside single or double quotes and characters after a backslash are
// copied verbatim, as is anything that is not a recognized field letter.
func FormatDate(date time.Time, layout string) string {
	if strings.ContainsRune(layout, '%') {
		return strftime.Format(layout, date)
	}
	var b strings.Builder
	for i := 0; i < len(layout); {
		c := layout[i]
		switch c {
		case '\'', '"':
			end := strings.IndexByte(layout[i+1:], c)
			if end < 0 {
				b.WriteString(layout[i+1:])
				return b.String()
			}
			b.WriteString(layout[i+1 : i+1+end])
			i += end + 2
			continue
		case '\\':
			if i+1 < len(layout) {
				b.WriteByte(layout[i+1])
			}
			i += 2
			continue
		}
		n := 1
		for i+n < len(layout) && layout[i+n] == c {
			n++
		}
		if field, ok := formatField(date, c, n); ok {
			b.WriteString(field)
		} else {
			b.WriteString(layout[i : i+n])
		}
		i += n
	}
	return b.String()
}

func formatField(date time.Time, c byte, n int) (string, bool) {
	switch c {
	case 'y':
		year := date.Year()
		switch {
		case n == 1:
			return strconv.Itoa(year % 100), true
		case n == 2:
			return pad(year%100, 2), true
		default:
			return pad(year, n), true
		}
	case 'M':
		switch {
		case n == 1:
			return strconv.Itoa(int(date.Month())), true
		case n == 2:
			return pad(int(date.Month()), 2), true
		case n == 3:
			return date.Month().String()[:3], true
		default:
			return date.Month().String(), true
		}
	case 'd':
		switch {
		case n == 1:
			return strconv.Itoa(date.Day()), true
		case n == 2:
			return pad(date.Day(), 2), true
		case n == 3:
			return date.Weekday().String()[:3], true
		default:
			return date.Weekday().String(), true
		}
	case 'H':
		return clockField(date.Hour(), n), true
	case 'h':
		h := date.Hour() % 12
		if h == 0 {
			h = 12
		}
		return clockField(h, n), true
	case 'm':
		return clockField(date.Minute(), n), true
	case 's':
		return clockField(date.Second(), n), true
	case 't':
		designator := "AM"
		if date.Hour() >= 12 {
			designator = "PM"
		}
		if n == 1 {
			return designator[:1], true
		}
		return designator, true
	}
	return "", false
}

func clockField(v, n int) string {
	if n == 1 {
		return strconv.Itoa(v)
	}
	return pad(v, 2)
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
