package storage

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NextSyncToken derives a strictly newer sync token from the current one.
// When the token ends in a decimal segment after the last slash, that
// segment is incremented; otherwise "/1" is appended. An empty token starts
// a fresh opaque sequence.
func NextSyncToken(current string) string {
	if current == "" {
		return "calde-sync/" + uuid.NewString() + "/1"
	}
	if idx := strings.LastIndexByte(current, '/'); idx >= 0 {
		if n, err := strconv.ParseUint(current[idx+1:], 10, 64); err == nil {
			return current[:idx+1] + strconv.FormatUint(n+1, 10)
		}
	}
	return current + "/1"
}
