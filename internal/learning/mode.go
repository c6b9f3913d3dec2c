// Package learning defines the data model shared by the adaptive content
// pipeline: learning modes, content units, topics, quizzes, attempts and the
// recommendation and completion views derived from them.
package learning

import "fmt"

// Mode is a content delivery style.
type Mode string

const (
	ModeVisual Mode = "visual"
	ModeAudio  Mode = "audio"
	ModeText   Mode = "text"
)

// DefaultMode is used whenever no recommendation is available.
const DefaultMode = ModeText

// AllModes lists every supported mode. The completion gate requires an
// attempt in each of them.
var AllModes = []Mode{ModeVisual, ModeAudio, ModeText}

// Valid reports whether m is one of the supported modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeVisual, ModeAudio, ModeText:
		return true
	default:
		return false
	}
}

func (m Mode) String() string {
	return string(m)
}

// ParseMode converts a raw string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown learning mode %q", s)
	}
	return m, nil
}
