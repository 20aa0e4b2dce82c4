package platforms

import (
	"errors"
	"strings"
	"testing"
)

func TestPrepareContent(t *testing.T) {
	t.Run("text under limit unchanged", func(t *testing.T) {
		content := &Content{Text: "hello"}
		if err := PrepareContent("twitter", Constraints{MaxTextChars: 280}, content); err != nil {
			t.Fatalf("PrepareContent() error = %v", err)
		}
		if content.Text != "hello" {
			t.Errorf("text = %q, want unchanged", content.Text)
		}
	})

	t.Run("overlong text truncated with ellipsis", func(t *testing.T) {
		content := &Content{Text: strings.Repeat("a", 300)}
		if err := PrepareContent("twitter", Constraints{MaxTextChars: 280}, content); err != nil {
			t.Fatalf("PrepareContent() error = %v", err)
		}
		if got := len([]rune(content.Text)); got != 280 {
			t.Errorf("truncated length = %d runes, want 280", got)
		}
		if !strings.HasSuffix(content.Text, "…") {
			t.Error("truncated text should end with ellipsis")
		}
	})

	t.Run("multibyte text counted in runes", func(t *testing.T) {
		content := &Content{Text: strings.Repeat("é", 10)}
		if err := PrepareContent("twitter", Constraints{MaxTextChars: 280}, content); err != nil {
			t.Fatalf("PrepareContent() error = %v", err)
		}
		if content.Text != strings.Repeat("é", 10) {
			t.Error("text within rune limit should be unchanged")
		}
	})

	t.Run("too many media items rejected", func(t *testing.T) {
		content := &Content{Media: []MediaItem{{}, {}, {}}}
		err := PrepareContent("pinterest", Constraints{MaxMediaCount: 1}, content)
		assertPermanentPublishError(t, err)
	})

	t.Run("oversized image rejected", func(t *testing.T) {
		content := &Content{Media: []MediaItem{{MIME: "image/png", SizeBytes: 100}}}
		err := PrepareContent("twitter", Constraints{MaxImageBytes: 50}, content)
		assertPermanentPublishError(t, err)
	})

	t.Run("video not held to image limit", func(t *testing.T) {
		content := &Content{Media: []MediaItem{{MIME: "video/mp4", SizeBytes: 100}}}
		if err := PrepareContent("twitter", Constraints{MaxImageBytes: 50}, content); err != nil {
			t.Fatalf("PrepareContent() error = %v", err)
		}
	})

	t.Run("aspect ratio out of range rejected", func(t *testing.T) {
		content := &Content{Media: []MediaItem{{MIME: "image/png", Width: 100, Height: 1000}}}
		err := PrepareContent("instagram", Constraints{MinAspect: 0.8, MaxAspect: 1.91}, content)
		assertPermanentPublishError(t, err)
	})

	t.Run("aspect ratio in range accepted", func(t *testing.T) {
		content := &Content{Media: []MediaItem{{MIME: "image/png", Width: 1080, Height: 1080}}}
		if err := PrepareContent("instagram", Constraints{MinAspect: 0.8, MaxAspect: 1.91}, content); err != nil {
			t.Fatalf("PrepareContent() error = %v", err)
		}
	})
}

func assertPermanentPublishError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var pe *PublishError
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T, want *PublishError", err)
	}
	if pe.Transient {
		t.Error("constraint violations must be permanent")
	}
}
