package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeDateOnly(t *testing.T) {
	got, ok := ParseTime("2019-01-01")
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestOrdinalRoundTrip(t *testing.T) {
	// 1970-01-01 is ordinal 719163, 2024-01-10 is 738895.
	if got := ToOrdinal(time.Date(1970, 1, 1, 13, 0, 0, 0, time.UTC)); got != 719163 {
		t.Fatalf("epoch ordinal %d", got)
	}
	day := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if got := ToOrdinal(day); got != 738895 {
		t.Fatalf("ordinal %d", got)
	}
	if back := FromOrdinal(738895); !back.Equal(day) {
		t.Fatalf("round trip %v", back)
	}
	if got := FromOrdinal(1); !got.Equal(time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("first ordinal %v", got)
	}
}

func TestFromFractionalOrdinalFloors(t *testing.T) {
	got := FromFractionalOrdinal(738895.97)
	if FormatDay(got) != "2024-01-10" {
		t.Fatalf("unexpected day %s", FormatDay(got))
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 14 {
		t.Fatalf("expected 14, got %d", got)
	}
	if got := DaysBetween(b, a); got != -14 {
		t.Fatalf("expected -14, got %d", got)
	}
}
