package flowtrace

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayout is the 24-hour clock followed by the AM/PM marker, with the
// milliseconds appended separately. It contains neither colons nor slashes,
// so it can be used in file names.
const timestampLayout = "2006_01_02-15_04_05_PM"

// Timestamp is a point in time rendered as YYYY_MM_DD-HH_MM_SS_AM/PM_mmm in
// local time, e.g. "2024_05_01-14_03_59_PM_042".
type Timestamp struct{ t time.Time }

// NewTimestamp truncates t to millisecond precision.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{t.Truncate(time.Millisecond)} }

// Time returns the underlying time.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether ts is unset.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

func (ts Timestamp) String() string {
	t := ts.t.Local()
	return fmt.Sprintf("%s_%03d", t.Format(timestampLayout), t.Nanosecond()/int(time.Millisecond))
}

// MarshalText implements encoding.TextMarshaler.
func (ts Timestamp) MarshalText() ([]byte, error) { return []byte(ts.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (ts *Timestamp) UnmarshalText(b []byte) error {
	parsed, err := ParseTimestamp(string(b))
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// ParseTimestamp parses the format produced by Timestamp.String.
func ParseTimestamp(s string) (Timestamp, error) {
	i := strings.LastIndexByte(s, '_')
	if i < 0 || len(s)-i-1 != 3 {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: missing milliseconds", s)
	}
	t, err := time.ParseInLocation(timestampLayout, s[:i], time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	ms, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return Timestamp{t.Add(time.Duration(ms) * time.Millisecond)}, nil
}

// Seconds is a duration rendered as "<float> seconds" with four decimals.
type Seconds time.Duration

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func (s Seconds) String() string {
	return strconv.FormatFloat(time.Duration(s).Seconds(), 'f', 4, 64) + " seconds"
}

// MarshalText implements encoding.TextMarshaler.
func (s Seconds) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Seconds) UnmarshalText(b []byte) error {
	str := strings.TrimSpace(strings.TrimSuffix(string(b), "seconds"))
	f, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(b), err)
	}
	*s = Seconds(f * float64(time.Second))
	return nil
}
