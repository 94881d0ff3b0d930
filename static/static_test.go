package static

import (
	"strings"
	"testing"
)

func TestIndexEmbedded(t *testing.T) {
	page := string(Index())
	for _, want := range []string{"/api/sessions", "type=\"range\"", "AudioContext", "restart"} {
		if !strings.Contains(page, want) {
			t.Errorf("index.html missing %q", want)
		}
	}
}
