package services

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// PushKit hands out raw 32-byte tokens; clients report them either as the
// canonical 64-char hex string or base64-encoded.
var hexTokenPattern = regexp.MustCompile(`^[a-fA-F0-9]{64}$`)

var lowerHexPattern = regexp.MustCompile(`^[0-9a-f]+$`)

// NormalizeDeviceToken converts a device token of unknown encoding into the
// hex form APNs expects. It never fails: anything that cannot be decoded is
// returned trimmed but otherwise untouched, so a bad token only costs its own
// send. The function is idempotent; hex-looking values are never reinterpreted
// as base64.
func NormalizeDeviceToken(raw string) string {
	if len(strings.TrimSpace(raw)) == 0 {
		return raw
	}

	trimmed := strings.TrimSpace(raw)
	if hexTokenPattern.MatchString(trimmed) {
		return trimmed
	}
	if lowerHexPattern.MatchString(trimmed) {
		return trimmed
	}

	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		log.Warn().Str("token", trimmed).Msg("Device token did not match hex nor valid base64, using it as-is...")
		return trimmed
	}

	return hex.EncodeToString(decoded)
}

// IsCanonicalHexToken reports whether a token is already in the exact form the
// background channel requires.
func IsCanonicalHexToken(token string) bool {
	return hexTokenPattern.MatchString(token)
}

// Localpart extracts the local part of a federated user id, so
// "@alice:example.com" becomes "alice". Ids without a domain separator are
// returned with only the leading @ stripped.
func Localpart(id string) string {
	if len(id) == 0 {
		return id
	}

	colon := strings.LastIndex(id, ":")
	if colon < 0 {
		return strings.TrimPrefix(id, "@")
	}
	return strings.TrimPrefix(id[:colon], "@")
}
