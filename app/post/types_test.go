package post

import (
	"strings"
	"testing"
	"time"
)

func TestFingerprintIsStable(t *testing.T) {
	c := Candidate{Author: "Channel Name", Content: "Hello world"}

	first := c.Fingerprint()
	second := c.Fingerprint()

	if first != second {
		t.Errorf("Fingerprint not stable: %s != %s", first, second)
	}
	if !strings.HasPrefix(first, "community_post_") {
		t.Errorf("Unexpected fingerprint prefix: %s", first)
	}
}

func TestFingerprintDiffersByContent(t *testing.T) {
	a := Candidate{Author: "Channel", Content: "post one"}
	b := Candidate{Author: "Channel", Content: "post two"}

	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Different content produced identical fingerprints")
	}
}

func TestFingerprintEmptyContentUsesPublishedTime(t *testing.T) {
	a := Candidate{Author: "Channel", PublishedTime: "hace 1 hora"}
	b := Candidate{Author: "Channel", PublishedTime: "hace 2 horas"}

	if a.Fingerprint() == b.Fingerprint() {
		t.Error("Image-only posts with different timestamps collapsed to one fingerprint")
	}
}

func TestParseExtractedAt(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	c := Candidate{ExtractedAt: "2025-06-14T10:30:00Z"}
	got := c.ParseExtractedAt(now)
	expected := time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("ParseExtractedAt = %v, expected %v", got, expected)
	}

	// Missing and malformed values fall back to now
	for _, raw := range []string{"", "not a timestamp"} {
		c := Candidate{ExtractedAt: raw}
		if got := c.ParseExtractedAt(now); !got.Equal(now) {
			t.Errorf("ParseExtractedAt(%q) = %v, expected %v", raw, got, now)
		}
	}
}
