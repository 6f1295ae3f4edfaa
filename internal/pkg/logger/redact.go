package logger

// RedactIdentity masks an identity ID for safe logging.
// "123456789012" → "1234***9012"
// Short IDs (≤8 chars) are fully masked: "1234" → "***"
func RedactIdentity(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:4] + "***" + id[len(id)-4:]
}
