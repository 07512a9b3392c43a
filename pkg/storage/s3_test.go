package storage

import (
	"strings"
	"testing"
	"time"
)

func TestAttachmentKey(t *testing.T) {
	key := AttachmentKey("client-1", `C:\Users\ada\My Brief.pdf`)
	if !strings.HasPrefix(key, "attachments/client-1/") {
		t.Fatalf("key = %s", key)
	}
	if !strings.HasSuffix(key, "-My-Brief.pdf") {
		t.Errorf("key = %s", key)
	}
	if AttachmentKey("c", "a.pdf") == AttachmentKey("c", "a.pdf") {
		t.Error("keys for the same name collide")
	}
}

func TestMediaKey(t *testing.T) {
	now := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)
	key := MediaKey("Hero.PNG", now)
	if !strings.HasPrefix(key, "media/2025/03/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %s", key)
	}
}

func TestMediaContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"logo.SVG", "image/svg+xml", true},
		{"deck.pdf", "application/pdf", true},
		{"run.exe", "", false},
		{"noext", "", false},
	}
	for _, tt := range tests {
		got, ok := MediaContentType(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MediaContentType(%q) = %q, %v", tt.name, got, ok)
		}
	}
}
