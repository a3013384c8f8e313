package util

import (
	"strings"
	"testing"
)

func TestGenerateRandomID(t *testing.T) {
	id := GenerateRandomID("n_", 32)
	if !strings.HasPrefix(id, "n_") {
		t.Errorf("id %q missing prefix", id)
	}
	if len(id) != 2+32 {
		t.Errorf("id length = %d, want %d", len(id), 2+32)
	}
	if !isValidHex(id[2:]) {
		t.Errorf("id %q suffix is not hex", id)
	}
}

func TestGenerateRandomHex(t *testing.T) {
	if got := GenerateRandomHex(0); got != "" {
		t.Errorf("GenerateRandomHex(0) = %q, want empty", got)
	}
	if got := GenerateRandomHex(-3); got != "" {
		t.Errorf("GenerateRandomHex(-3) = %q, want empty", got)
	}
	got := GenerateRandomHex(40)
	if len(got) != 40 || !isValidHex(got) {
		t.Errorf("GenerateRandomHex(40) = %q", got)
	}
}

func TestGenerateMockProviderID(t *testing.T) {
	id := GenerateMockProviderID("whatsapp-text")
	if !strings.HasPrefix(id, "mock-whatsapp-text-") {
		t.Errorf("id %q missing channel prefix", id)
	}
}

func TestRandomIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateRandomHex(32)
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func isValidHex(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
