package validator

import "strings"

const envelopeRule = "=================================================="

// FormatRejection wraps one or more rejection reasons in a fixed
// envelope, used both for policy rejections and upstream push failures.
func FormatRejection(reasons []string) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(envelopeRule + "\n")
	b.WriteString("PUSH REJECTED\n")
	b.WriteString(envelopeRule + "\n")
	for _, r := range reasons {
		b.WriteString(r + "\n")
	}
	b.WriteString(envelopeRule + "\n")
	b.WriteString("\n")
	return b.String()
}
