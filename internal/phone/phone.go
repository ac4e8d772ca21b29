// Package phone normalizes phone numbers and compares them across systems
// that record them in inconsistent formats.
//
// The calendar of record is edited by humans and by WhatsApp tooling, so the
// same number shows up as "5511999999999", "11 99999-9999" or "999999999".
// Rather than forcing a canonical format at ingestion, comparison everywhere
// uses a single fuzzy predicate: mutual suffix containment over digits.
package phone

import "strings"

// MinLocalDigits is the minimum digit count required on both sides before a
// suffix comparison against the local store is trusted.
const MinLocalDigits = 4

// MinCalendarDigits is the stricter minimum used when matching against
// free-text digits scraped from calendar event summaries and descriptions.
const MinCalendarDigits = 8

// Normalize strips everything but digits, including the WhatsApp JID suffix.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SuffixMatch reports whether a and b refer to the same number, tolerating a
// country-code prefix on either side: one must be a suffix of the other, and
// both must have at least min digits. Inputs are normalized first.
func SuffixMatch(a, b string, min int) bool {
	a, b = Normalize(a), Normalize(b)
	if len(a) < min || len(b) < min {
		return false
	}
	return strings.HasSuffix(a, b) || strings.HasSuffix(b, a)
}

// Display strips a leading Brazilian country code for human-facing output,
// e.g. in event summaries.
func Display(p string) string {
	p = Normalize(p)
	if strings.HasPrefix(p, "55") && len(p) > 10 {
		return p[2:]
	}
	return p
}
