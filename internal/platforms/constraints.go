package platforms

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Constraints are the per-platform content limits enforced when a
// platform-agnostic payload is translated into a publish call.
type Constraints struct {
	MaxTextChars  int
	MaxImageBytes int64
	MaxVideoBytes int64
	MinAspect     float64
	MaxAspect     float64
	MaxMediaCount int
}

// PrepareContent applies c to content in place. Overlong text is truncated;
// media violations are rejected with a permanent PublishError since retrying
// the same payload can never succeed.
func PrepareContent(platform string, c Constraints, content *Content) error {
	if c.MaxTextChars > 0 && utf8.RuneCountInString(content.Text) > c.MaxTextChars {
		runes := []rune(content.Text)
		content.Text = string(runes[:c.MaxTextChars-1]) + "…"
	}

	if c.MaxMediaCount > 0 && len(content.Media) > c.MaxMediaCount {
		return &PublishError{
			Platform: platform,
			Code:     http.StatusBadRequest,
			Message:  fmt.Sprintf("too many media items: %d (limit %d)", len(content.Media), c.MaxMediaCount),
		}
	}

	for _, m := range content.Media {
		isVideo := strings.HasPrefix(m.MIME, "video/")

		if isVideo && c.MaxVideoBytes > 0 && m.SizeBytes > c.MaxVideoBytes {
			return &PublishError{
				Platform: platform,
				Code:     http.StatusBadRequest,
				Message:  fmt.Sprintf("video %s exceeds size limit of %d bytes", m.URL, c.MaxVideoBytes),
			}
		}
		if !isVideo && c.MaxImageBytes > 0 && m.SizeBytes > c.MaxImageBytes {
			return &PublishError{
				Platform: platform,
				Code:     http.StatusBadRequest,
				Message:  fmt.Sprintf("image %s exceeds size limit of %d bytes", m.URL, c.MaxImageBytes),
			}
		}

		if m.Width > 0 && m.Height > 0 && c.MinAspect > 0 {
			aspect := float64(m.Width) / float64(m.Height)
			if aspect < c.MinAspect || aspect > c.MaxAspect {
				return &PublishError{
					Platform: platform,
					Code:     http.StatusBadRequest,
					Message:  fmt.Sprintf("media %s aspect ratio %.2f outside [%.2f, %.2f]", m.URL, aspect, c.MinAspect, c.MaxAspect),
				}
			}
		}
	}

	return nil
}
