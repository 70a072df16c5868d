package post

import (
	"testing"
	"time"
)

func testParser() *TimeParser {
	return NewTimeParser(time.FixedZone("UTC-5", -5*3600))
}

func TestParseSpanishRelativeTimes(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	tests := []struct {
		text     string
		expected time.Time
	}{
		{"hace 5 minutos", now.Add(-5 * time.Minute)},
		{"hace 1 hora", now.Add(-1 * time.Hour)},
		{"hace 3 horas", now.Add(-3 * time.Hour)},
		{"hace 2 días", now.Add(-48 * time.Hour)},
		{"hace 2 dias", now.Add(-48 * time.Hour)},
		{"hace 1 semana", now.Add(-7 * 24 * time.Hour)},
		{"hace 2 semanas", now.Add(-14 * 24 * time.Hour)},
		{"hace 1 mes", now.Add(-30 * 24 * time.Hour)},
		{"ayer", now.Add(-24 * time.Hour)},
	}

	for _, tt := range tests {
		got := parser.Parse(tt.text, now)
		if !got.Equal(tt.expected) {
			t.Errorf("Parse(%q) = %v, expected %v", tt.text, got, tt.expected)
		}
	}
}

func TestParseEnglishRelativeTimes(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	tests := []struct {
		text     string
		expected time.Time
	}{
		{"5 minutes ago", now.Add(-5 * time.Minute)},
		{"1 hour ago", now.Add(-1 * time.Hour)},
		{"2 days ago", now.Add(-48 * time.Hour)},
		{"3 weeks ago", now.Add(-21 * 24 * time.Hour)},
		{"1 month ago", now.Add(-30 * 24 * time.Hour)},
		{"yesterday", now.Add(-24 * time.Hour)},
	}

	for _, tt := range tests {
		got := parser.Parse(tt.text, now)
		if !got.Equal(tt.expected) {
			t.Errorf("Parse(%q) = %v, expected %v", tt.text, got, tt.expected)
		}
	}
}

func TestParseDefaultsAmountToOne(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	// No leading integer in the phrase
	got := parser.Parse("hace una hora", now)
	if !got.Equal(now.Add(-1 * time.Hour)) {
		t.Errorf("Parse(\"hace una hora\") = %v, expected %v", got, now.Add(-1*time.Hour))
	}
}

func TestParseIsCaseInsensitive(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	got := parser.Parse("  Hace 2 Horas  ", now)
	if !got.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("Parse with mixed case/whitespace = %v, expected %v", got, now.Add(-2*time.Hour))
	}
}

func TestParseUnparseableFallsBackToNow(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	for _, text := range []string{"", "gibberish text", "???"} {
		got := parser.Parse(text, now)
		if !got.Equal(now) {
			t.Errorf("Parse(%q) = %v, expected fallback to now %v", text, got, now)
		}
	}
}

func TestParseUnitPriorityOrder(t *testing.T) {
	parser := testParser()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, parser.loc)

	// "minuto" must win even though "mes" is also a substring candidate
	// in longer phrases; the unit list is checked in generation order
	got := parser.Parse("hace 10 minutos", now)
	if !got.Equal(now.Add(-10 * time.Minute)) {
		t.Errorf("Parse(\"hace 10 minutos\") = %v, expected %v", got, now.Add(-10*time.Minute))
	}
}

func TestNowUsesFixedOffset(t *testing.T) {
	parser := testParser()

	now := parser.Now()
	_, offset := now.Zone()
	if offset != -5*3600 {
		t.Errorf("Expected offset %d, got %d", -5*3600, offset)
	}
}
