// SPDX-License-Identifier: MIT
package note

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultBase is the concert pitch of the reference A.
	DefaultBase = 440.0
	// MinBase is the lowest accepted reference; anything at or below it
	// falls back to DefaultBase.
	MinBase = 55.0
	// Reference is the diatonic number of the reference A (A4).
	Reference = 60
)

// Notation selects the note naming scheme.
type Notation uint8

const (
	English Notation = iota
	French
)

var ErrUnknownNotation = errors.New("unknown notation")

var names = [...][12]string{
	English: {"A", "A#", "B", "C", "C#", "D", "D#", "E", "F", "F#", "G", "G#"},
	French:  {"La", "La#", "Si", "Do", "Do#", "Re", "Re#", "Mi", "Fa", "Fa#", "Sol", "Sol#"},
}

// ParseNotation accepts "english" or "french", case-insensitive.
func ParseNotation(s string) (Notation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "english", "":
		return English, nil
	case "french":
		return French, nil
	default:
		return English, fmt.Errorf("%w: %q", ErrUnknownNotation, s)
	}
}

func (n Notation) String() string {
	if n == French {
		return "french"
	}
	return "english"
}

// ValidBaseFrequency returns base, or DefaultBase when base is not above MinBase.
func ValidBaseFrequency(base float64) float64 {
	if math.IsNaN(base) || base <= MinBase {
		return DefaultBase
	}
	return base
}

// Diatonic maps a frequency to a fractional semitone number, Reference being
// the base frequency itself.
func Diatonic(freq, base float64) float64 {
	return 12*math.Log2(freq/base) + Reference
}

// Frequency is the inverse of Diatonic.
func Frequency(diatonic, base float64) float64 {
	return base * math.Pow(2, (diatonic-Reference)/12)
}

// Note is the nearest equal-tempered note to a measured frequency.
type Note struct {
	Name     string  `json:"name"`
	Octave   int     `json:"octave"`
	Number   int     `json:"number"`   // diatonic number of the nearest note
	Diatonic float64 `json:"diatonic"` // unrounded position
	Cents    float64 `json:"cents"`    // deviation from the nearest note, -50..+50
}

func (n Note) String() string {
	return fmt.Sprintf("%s%d %+.0fc", n.Name, n.Octave, n.Cents)
}

// FromFrequency returns the note nearest to freq. It reports false for
// frequencies that cannot be placed (non-positive or not finite).
func FromFrequency(freq, base float64, notation Notation) (Note, bool) {
	if freq <= 0 || math.IsNaN(freq) || math.IsInf(freq, 0) {
		return Note{}, false
	}
	base = ValidBaseFrequency(base)

	d := Diatonic(freq, base)
	n := int(math.Round(d))
	return Note{
		Name:     Name(n, notation),
		Octave:   Octave(n),
		Number:   n,
		Diatonic: d,
		Cents:    (d - float64(n)) * 100,
	}, true
}

// Name returns the name of diatonic note n.
func Name(n int, notation Notation) string {
	if int(notation) >= len(names) {
		notation = English
	}
	return names[notation][mod(n, 12)]
}

// Octave returns the scientific octave of diatonic note n; octaves start at C.
func Octave(n int) int {
	return floorDiv(n-3, 12)
}

func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && (a < 0) != (b < 0) {
		q--
	}
	return q
}
