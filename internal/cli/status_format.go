package cli

import (
	"fmt"
	"strings"

	"github.com/opencode-ai/autoclick/internal/models"
	"github.com/opencode-ai/autoclick/internal/profile"
)

func formatOutcome(outcome models.RunOutcome) string {
	label, color := statusLabelForOutcome(outcome)
	return colorize(formatStatusLabel(label, string(outcome)), color)
}

func formatProfileStatus(status profile.EntryStatus) string {
	label, color := statusLabelForProfile(status)
	return colorize(formatStatusLabel(label, string(status)), color)
}

func statusLabelForOutcome(outcome models.RunOutcome) (string, string) {
	switch outcome {
	case models.OutcomeCompleted:
		return "OK", colorGreen
	case models.OutcomeRunning:
		return "BUSY", colorCyan
	case models.OutcomeCancelled:
		return "STOP", colorYellow
	case models.OutcomeEmergency:
		return "HALT", colorMagenta
	case models.OutcomeTooManyErrors, models.OutcomeFailed:
		return "ERR", colorRed
	default:
		return "WARN", colorYellow
	}
}

func statusLabelForProfile(status profile.EntryStatus) (string, string) {
	switch status {
	case profile.StatusOK:
		return "OK", colorGreen
	case profile.StatusEmpty:
		return "WARN", colorYellow
	default:
		return "ERR", colorRed
	}
}

func formatStatusLabel(label, status string) string {
	normalized := strings.TrimSpace(status)
	if normalized != "" {
		normalized = strings.ReplaceAll(normalized, "_", " ")
	}
	if normalized == "" {
		return label
	}
	return fmt.Sprintf("%s %s", label, normalized)
}
