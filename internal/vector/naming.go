package vector

// FallbackCollection is used when sanitization leaves nothing usable.
const FallbackCollection = "video_chunks"

const maxCollectionName = 255

// SanitizeName maps an arbitrary string to an identifier-safe collection
// name: [a-zA-Z0-9_], truncated, never empty.
func SanitizeName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return FallbackCollection
	}
	if len(out) > maxCollectionName {
		out = out[:maxCollectionName]
	}
	return string(out)
}

// NameForVideo returns the per-video collection name for a video ID.
func NameForVideo(videoID string) string {
	return SanitizeName("video_" + videoID)
}

// Namer resolves which collection a request targets.
type Namer struct {
	// Default is the shared collection used when per-video isolation is off.
	Default string
	// PerVideo creates one collection per video when a video ID is known.
	PerVideo bool
}

// Resolve maps (videoID, explicit) to a collection name. An explicit name
// always wins; otherwise the per-video name is used when enabled and a
// video ID is present, falling back to the shared default.
func (n Namer) Resolve(videoID, explicit string) string {
	if explicit != "" {
		return SanitizeName(explicit)
	}
	if n.PerVideo && videoID != "" {
		return NameForVideo(videoID)
	}
	if n.Default == "" {
		return FallbackCollection
	}
	return SanitizeName(n.Default)
}
