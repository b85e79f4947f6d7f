package render

import (
	"fmt"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the IRC line limit the composed message must respect.
	MaxMessageLength = 512

	// SafetyMargin is reserved on top of the channel name for protocol framing.
	SafetyMargin = 20

	ellipsis = "..."
)

// Stage reports which truncation step, if any, shaped a composed message.
type Stage int

const (
	StageNone Stage = iota
	StageShrunk
	StageHardCut
)

// String returns the metric label for the stage.
func (s Stage) String() string {
	switch s {
	case StageShrunk:
		return "shrunk"
	case StageHardCut:
		return "hard_cut"
	default:
		return "none"
	}
}

// Message is a composed notification line.
type Message struct {
	Text  string
	Stage Stage
}

// Compose renders tmpl, appends the trigger suffix and fits the result to
// the IRC limit for channel.
//
// When the line plus channel name plus SafetyMargin exceeds
// MaxMessageLength, the description loses excess+3 characters from its tail
// (or the summary does, when the description is not longer than the excess)
// and gains an ellipsis. If the re-rendered line is still longer than
// MaxMessageLength it is cut to MaxMessageLength-3 characters plus ellipsis.
// Lengths count runes.
func Compose(tmpl string, f Fields, channel string) (Message, error) {
	line, err := withTrigger(tmpl, f)
	if err != nil {
		return Message{}, err
	}

	msg := Message{Text: line}
	total := runeLen(line) + runeLen(channel) + SafetyMargin
	if total > MaxMessageLength {
		excess := total - MaxMessageLength
		if runeLen(f.Description) > excess {
			f.Description = dropTail(f.Description, excess+3) + ellipsis
		} else {
			f.Summary = dropTail(f.Summary, excess+3) + ellipsis
		}
		if line, err = withTrigger(tmpl, f); err != nil {
			return Message{}, err
		}
		msg = Message{Text: line, Stage: StageShrunk}
	}

	if runeLen(msg.Text) > MaxMessageLength {
		msg = Message{Text: FitRunes(msg.Text, MaxMessageLength), Stage: StageHardCut}
	}
	return msg, nil
}

// FitRunes returns s unchanged when it has at most limit runes, otherwise
// its first limit-3 runes followed by an ellipsis.
func FitRunes(s string, limit int) string {
	if runeLen(s) <= limit {
		return s
	}
	keep := limit - len(ellipsis)
	if keep < 0 {
		keep = 0
	}
	return string([]rune(s)[:keep]) + ellipsis
}

func withTrigger(tmpl string, f Fields) (string, error) {
	body, err := Render(tmpl, f)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (Triggered by: '%s')", body, f.Keyword), nil
}

// dropTail removes the last n runes of s. Removing n >= len(s) yields "".
func dropTail(s string, n int) string {
	r := []rune(s)
	if n >= len(r) {
		return ""
	}
	return string(r[:len(r)-n])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
