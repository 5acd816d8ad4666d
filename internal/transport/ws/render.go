package ws

import (
	"fmt"
	"strings"

	"hu-quiz-engine/internal/domain"
)

const progressBarWidth = 10

// RenderText produces the plain-text rendition of an engine render action,
// the way a chat client would display it.
func RenderText(action domain.RenderAction) string {
	switch action.Kind {
	case domain.RenderShowQuestion:
		return questionText(action)
	case domain.RenderShowCompletion:
		return completionText(action)
	case domain.RenderOfferRetake:
		return fmt.Sprintf("You already finished this chapter with %d/%d (%s). Retake it or pick another one.",
			action.Score, action.Total, formatPercent(action.Percent))
	default:
		return ""
	}
}

func questionText(action domain.RenderAction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d/%d %s\n", action.QuestionIndex+1, action.Total,
		ProgressBar(action.QuestionIndex, action.Total))
	if action.Question != nil {
		b.WriteString(action.Question.Text)
		for i, opt := range action.Question.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, opt)
		}
	}
	return b.String()
}

func completionText(action domain.RenderAction) string {
	return fmt.Sprintf("Chapter complete: %d/%d (%s). %s",
		action.Score, action.Total, formatPercent(action.Percent), bandMessage(action.Band))
}

func bandMessage(band domain.Band) string {
	switch band {
	case domain.BandOutstanding:
		return "Outstanding work!"
	case domain.BandGreat:
		return "Great result!"
	case domain.BandGood:
		return "Good job, keep going."
	default:
		return "Keep practicing, you'll get there."
	}
}

// ProgressBar draws done out of total as a fixed-width bar.
func ProgressBar(done, total int) string {
	if total <= 0 {
		return "[" + strings.Repeat("░", progressBarWidth) + "]"
	}
	filled := done * progressBarWidth / total
	if filled > progressBarWidth {
		filled = progressBarWidth
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled) + "]"
}

func formatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}
