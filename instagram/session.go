package instagram

import "strings"

// SessionIDFromEnv accepts either the bare cookie value or the
// "sessionid=<value>" form.
func SessionIDFromEnv(raw string) string {
	v := strings.TrimSpace(raw)
	return strings.TrimPrefix(v, "sessionid=")
}

// MaskSessionID keeps only the first and last four characters.
func MaskSessionID(id string) string {
	if len(id) <= 10 {
		return "***"
	}
	return id[:4] + "..." + id[len(id)-4:]
}
