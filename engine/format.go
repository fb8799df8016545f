package engine

import (
	"fmt"
	"strings"
	"time"
)

// Update levels. The level only affects rendering and coalescing: a
// "response" message stands on its own and is never merged into, while the
// others remain coalescable progress entries.
const (
	LevelProgress = "progress"
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelResponse = "response"
)

func formatUpdate(level, message string) string {
	switch level {
	case LevelInfo:
		return "ℹ️ " + message
	case LevelWarn:
		return "⚠️ " + message
	case LevelError:
		return "🛑 " + message
	case LevelResponse:
		return "💬 " + message
	default:
		return "🔄 " + message
	}
}

func formatWait(reason string) string {
	if reason == "" {
		return "⏳ *Waiting for input*"
	}
	return fmt.Sprintf("⏳ *Waiting*: %s", reason)
}

func formatComplete(summary string, suggestions []string) string {
	var b strings.Builder
	b.WriteString("✅ *Completed*")
	if summary != "" {
		b.WriteString(": ")
		b.WriteString(summary)
	}
	if len(suggestions) > 0 {
		b.WriteString("\nNext steps:")
		for _, s := range suggestions {
			b.WriteString("\n• ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func formatFail(errorSummary, logsHint string) string {
	text := "❌ *Failed*"
	if errorSummary != "" {
		text += ": " + errorSummary
	}
	if logsHint != "" {
		text += "\nLogs: " + logsHint
	}
	return text
}

func formatStalled(delay time.Duration) string {
	return fmt.Sprintf("⚠️ Processing appears stalled (no activity for %s)", delay)
}
