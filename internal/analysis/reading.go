// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"
	"time"

	"tuner/internal/note"
)

// Reading is one analysis result.
type Reading struct {
	Sequence  uint64        `json:"seq"`
	Time      time.Time     `json:"time"`
	Offset    time.Duration `json:"offset"` // stream position of the last analysed sample
	Tone      bool          `json:"tone"`
	Frequency float64       `json:"frequency,omitempty"`
	Energy    float64       `json:"energy"`
	Reason    string        `json:"reason,omitempty"`
	Note      *note.Note    `json:"note,omitempty"`
}

// String formats the reading as one line for the analyze command.
func (r Reading) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%9.3fs  ", r.Offset.Seconds())
	if r.Tone {
		fmt.Fprintf(&b, "%8.2f Hz", r.Frequency)
		if r.Note != nil {
			fmt.Fprintf(&b, "  %-4s %+4.0f cents", fmt.Sprintf("%s%d", r.Note.Name, r.Note.Octave), r.Note.Cents)
		}
	} else {
		fmt.Fprintf(&b, "%11s", "-")
		if r.Reason != "" {
			b.WriteString("  (" + r.Reason + ")")
		}
	}
	fmt.Fprintf(&b, "  energy=%.1f", r.Energy)
	return b.String()
}
