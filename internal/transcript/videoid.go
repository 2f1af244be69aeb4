package transcript

import "regexp"

var (
	videoURLPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z0-9-]+\.)?(?:youtube\.com/(?:watch\?(?:[^\s#]*&)?v=|shorts/|embed/|live/|v/)|youtu\.be/)([A-Za-z0-9_-]{11})[^\s]*`)
	bareIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// FindVideoURL returns the first YouTube link in text.
func FindVideoURL(text string) (string, bool) {
	m := videoURLPattern.FindString(text)
	return m, m != ""
}

// VideoID extracts the 11 character id from a watch, youtu.be, shorts, embed
// or live link. A bare id is accepted as is.
func VideoID(s string) (string, bool) {
	if bareIDPattern.MatchString(s) {
		return s, true
	}
	m := videoURLPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}
