package blocklist

import "errors"

// Sentinel errors for the blocklist service layer.
var (
	ErrNotFound = errors.New("blocklist entry not found")
)
