package ledger

import "regexp"

var revertPattern = regexp.MustCompile(`reverted with reason string '([^']+)'`)

// ExtractReason returns the quoted revert reason in msg, or msg itself
// when there is none.
func ExtractReason(msg string) string {
	if m := revertPattern.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return msg
}
