package hashing

import (
	"crypto/sha256"
	"strings"
)

// Sentinel values stand in for fingerprint fields the extractor could not
// recover, so documents about the same partially-known incident still
// collide on the same fingerprint.
const (
	DefaultVessel   = "default_vessel"
	DefaultDate     = "default_date"
	DefaultLocation = "default_location"
)

// ArticleHash returns the content hash used for exact-duplicate detection.
// Callers pass already-normalized text.
func ArticleHash(content string) []byte {
	sum := sha256.Sum256([]byte(content))
	return sum[:]
}

// IncidentFingerprint derives a stable identity for an incident from its
// vessel name, event date, and location. Missing fields fall back to
// sentinels rather than the empty string, so two incidents missing the
// same field compare equal on that field instead of on "".
func IncidentFingerprint(vesselName, eventDate, location string) []byte {
	vessel := fingerprintField(vesselName, DefaultVessel)
	date := fingerprintField(eventDate, DefaultDate)
	loc := fingerprintField(location, DefaultLocation)

	sum := sha256.Sum256([]byte(vessel + "_" + date + "_" + loc))
	return sum[:]
}

func fingerprintField(value, sentinel string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return sentinel
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
