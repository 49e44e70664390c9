package otp

import "strings"

const CodePlaceholder = "{code}"

// FormatMessage renders a delivery message template. If the template has no {code}
// placeholder the code is appended.
func FormatMessage(template string, code string) string {
	if !strings.Contains(template, CodePlaceholder) {
		return strings.TrimRight(template, " ") + " " + code
	}
	return strings.ReplaceAll(template, CodePlaceholder, code)
}
