package media

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	valid := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ",
		"http://youtu.be/dQw4w9WgXcQ",
		"youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/live/dQw4w9WgXcQ",
		"  https://www.youtube.com/watch?v=dQw4w9WgXcQ  ",
	}
	for _, url := range valid {
		if !ValidateURL(url) {
			t.Errorf("ValidateURL(%q) = false, want true", url)
		}
	}

	invalid := []string{
		"",
		"https://vimeo.com/12345",
		"https://www.youtube.com/",
		"https://www.youtube.com/watch?v=short",
		"not a url at all",
	}
	for _, url := range invalid {
		if ValidateURL(url) {
			t.Errorf("ValidateURL(%q) = true, want false", url)
		}
	}
}

func TestValidateWindow(t *testing.T) {
	limits := Limits{MaxWindowSeconds: 1800}

	if err := limits.ValidateWindow(0, 300); err != nil {
		t.Fatalf("valid window rejected: %v", err)
	}
	if err := limits.ValidateWindow(300, 300); err == nil {
		t.Fatal("zero-length window accepted")
	}
	if err := limits.ValidateWindow(300, 200); err == nil {
		t.Fatal("inverted window accepted")
	}
	if err := limits.ValidateWindow(0, 1801); err == nil {
		t.Fatal("oversized window accepted")
	}
	if err := limits.ValidateWindow(0, 1800); err != nil {
		t.Fatalf("window at the limit rejected: %v", err)
	}
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	limits := Limits{
		MaxFileSizeBytes:  16,
		AllowedExtensions: []string{".mp4", ".mkv"},
	}

	small := filepath.Join(dir, "talk.mp4")
	if err := os.WriteFile(small, []byte("tiny"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := limits.ValidateFile(small); err != nil {
		t.Fatalf("valid file rejected: %v", err)
	}

	wrongExt := filepath.Join(dir, "talk.mp3")
	if err := os.WriteFile(wrongExt, []byte("tiny"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := limits.ValidateFile(wrongExt); err == nil || !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("wrong extension err = %v", err)
	}

	big := filepath.Join(dir, "talk.mkv")
	if err := os.WriteFile(big, []byte("well over sixteen bytes of video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := limits.ValidateFile(big); err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("oversized file err = %v", err)
	}

	if err := limits.ValidateFile(filepath.Join(dir, "missing.mp4")); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestLastLine(t *testing.T) {
	if got := lastLine("first\nsecond\nERROR: broken\n"); got != "ERROR: broken" {
		t.Fatalf("lastLine = %q", got)
	}
	if got := lastLine(""); got != "" {
		t.Fatalf("lastLine of empty = %q", got)
	}
}
