// Package identref normalizes identity references to bare identity IDs.
//
// Accepted forms:
//   - raw id:            "123456"
//   - mention reference: "<@123456>" or "<@!123456>"
//   - platform composite: "discord:123456"
package identref

import (
	"fmt"
	"strings"
)

// Normalize converts any accepted identity reference to a bare identity ID.
func Normalize(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty identity reference")
	}

	if strings.HasPrefix(ref, "<@") && strings.HasSuffix(ref, ">") {
		id := strings.TrimSuffix(strings.TrimPrefix(ref, "<@"), ">")
		id = strings.TrimPrefix(id, "!")
		if id == "" {
			return "", fmt.Errorf("empty mention reference %q", ref)
		}
		return id, nil
	}

	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		id := ref[idx+1:]
		if id == "" {
			return "", fmt.Errorf("malformed composite reference %q", ref)
		}
		return id, nil
	}

	return ref, nil
}

// NormalizeLoose is the best-effort form of Normalize: a malformed
// reference is returned trimmed rather than failing, so lookups degrade to
// a miss instead of an error.
func NormalizeLoose(ref string) string {
	id, err := Normalize(ref)
	if err != nil {
		return strings.TrimSpace(ref)
	}
	return id
}
