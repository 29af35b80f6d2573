package vector

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean passes through", "video_abc123", "video_abc123"},
		{"dashes replaced", "video-abc-123", "video_abc_123"},
		{"spaces replaced", "my collection", "my_collection"},
		{"unicode replaced", "vidéo", "vid__o"},
		{"empty falls back", "", FallbackCollection},
		{"only invalid falls back to underscores", "!!!", "___"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeName_Truncates(t *testing.T) {
	long := strings.Repeat("a", 300)
	if got := SanitizeName(long); len(got) != 255 {
		t.Errorf("len = %d, want 255", len(got))
	}
}

func TestNameForVideo(t *testing.T) {
	if got := NameForVideo("dQw4w9WgXcQ"); got != "video_dQw4w9WgXcQ" {
		t.Errorf("NameForVideo = %q", got)
	}
	if got := NameForVideo("id-with-dash"); got != "video_id_with_dash" {
		t.Errorf("NameForVideo = %q", got)
	}
}

func TestNamerResolve(t *testing.T) {
	tests := []struct {
		name     string
		namer    Namer
		videoID  string
		explicit string
		want     string
	}{
		{"explicit wins", Namer{Default: "shared", PerVideo: true}, "abc", "my-coll", "my_coll"},
		{"per video", Namer{Default: "shared", PerVideo: true}, "abc", "", "video_abc"},
		{"per video off", Namer{Default: "shared", PerVideo: false}, "abc", "", "shared"},
		{"no video id", Namer{Default: "shared", PerVideo: true}, "", "", "shared"},
		{"empty default", Namer{}, "", "", FallbackCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.namer.Resolve(tt.videoID, tt.explicit); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.videoID, tt.explicit, got, tt.want)
			}
		})
	}
}
