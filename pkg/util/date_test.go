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

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2024, 10, 10, 10, 43, 21, 0, time.UTC)
	to := time.Date(2024, 10, 10, 12, 17, 5, 0, time.UTC)

	f, tt := AlignFromTo(from, to, "30m")
	if f != time.Date(2024, 10, 10, 10, 30, 0, 0, time.UTC) || tt != time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("30m align: %v %v", f, tt)
	}

	f, tt = AlignFromTo(from, to, "1h")
	if f != time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC) || tt != time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("1h align: %v %v", f, tt)
	}

	f, tt = AlignFromTo(from, to, "1d")
	if f != time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC) || tt != f {
		t.Fatalf("1d align: %v %v", f, tt)
	}
}