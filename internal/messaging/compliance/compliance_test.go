package compliance

import (
	"testing"
	"time"
)

func TestQuietHoursAcrossMidnight(t *testing.T) {
	sgt := time.FixedZone("SGT", 8*3600)
	q, err := ParseQuietHours("9pm", "08:30", sgt)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tests := []struct {
		at      time.Time
		purpose Purpose
		want    bool
	}{
		{time.Date(2025, 6, 2, 22, 0, 0, 0, sgt), PurposeMarketing, true},
		{time.Date(2025, 6, 3, 8, 29, 0, 0, sgt), PurposeMarketing, true},
		{time.Date(2025, 6, 3, 8, 30, 0, 0, sgt), PurposeMarketing, false},
		{time.Date(2025, 6, 2, 22, 0, 0, 0, sgt), PurposeTransactional, false},
		// 13:00 UTC is 21:00 in Singapore
		{time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC), PurposeMarketing, true},
	}
	for _, tc := range tests {
		if got := q.Suppress(tc.at, tc.purpose); got != tc.want {
			t.Fatalf("Suppress(%s,%s)=%v want %v", tc.at, tc.purpose, got, tc.want)
		}
	}
	if q.String() != "21:00-08:30" {
		t.Fatalf("unexpected window %q", q.String())
	}
}

func TestQuietHoursSameDayWindow(t *testing.T) {
	q, err := ParseQuietHours("13:00", "14:00", nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !q.Suppress(time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC), PurposeMarketing) {
		t.Fatal("expected suppression inside window")
	}
	if q.Suppress(time.Date(2025, 6, 2, 14, 0, 0, 0, time.UTC), PurposeMarketing) {
		t.Fatal("window end is exclusive")
	}
}

func TestQuietHoursZeroValueNeverSuppresses(t *testing.T) {
	var q QuietHours
	if q.Suppress(time.Now(), PurposeMarketing) {
		t.Fatal("zero value must not suppress")
	}
	same, err := ParseQuietHours("10:00", "10am", time.UTC)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if same.Suppress(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), PurposeMarketing) || same.String() != "off" {
		t.Fatal("empty window must be disabled")
	}
}

func TestParseQuietHoursErrors(t *testing.T) {
	if _, err := ParseQuietHours("", "07:00", time.UTC); err == nil {
		t.Fatal("expected error for empty start")
	}
	if _, err := ParseQuietHours("22:00", "25:00", time.UTC); err == nil {
		t.Fatal("expected error for invalid end")
	}
}

func TestDetector(t *testing.T) {
	d := NewDetector()
	cases := []struct {
		body   string
		optOut bool
		optIn  bool
	}{
		{"UNSUBSCRIBE", true, false},
		{" stop promotions ", true, false},
		{"Please opt out.", true, false},
		{"stopall", true, false},
		{"subscribe", false, true},
		{"start promos!", false, true},
		{"stop", false, false},
		{"cancel", false, false},
		{"please unsubscribe me from botox", false, false},
		{"", false, false},
	}
	for _, tc := range cases {
		if got := d.IsOptOut(tc.body); got != tc.optOut {
			t.Fatalf("IsOptOut(%q)=%v want %v", tc.body, got, tc.optOut)
		}
		if got := d.IsOptIn(tc.body); got != tc.optIn {
			t.Fatalf("IsOptIn(%q)=%v want %v", tc.body, got, tc.optIn)
		}
	}
	var nilDetector *Detector
	if nilDetector.IsOptOut("unsubscribe") {
		t.Fatal("nil detector must not match")
	}
}

func TestRedactCards(t *testing.T) {
	got, ok := RedactCards("my card is 4111 1111 1111 1111 thanks")
	if !ok || got != "my card is [card ending 1111] thanks" {
		t.Fatalf("unexpected redaction %q (%v)", got, ok)
	}
	got, ok = RedactCards("pay with 5555-5555-5555-4444")
	if !ok || got != "pay with [card ending 4444]" {
		t.Fatalf("unexpected redaction %q (%v)", got, ok)
	}
	// fails the checksum
	if got, ok := RedactCards("order 1234567812345678"); ok || got != "order 1234567812345678" {
		t.Fatalf("unexpected redaction %q", got)
	}
	if got, ok := RedactCards("call 87713358"); ok || got != "call 87713358" {
		t.Fatalf("phone numbers must survive, got %q", got)
	}
}
