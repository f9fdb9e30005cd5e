package governance

import (
	"errors"

	"github.com/calehh/hac-dao/ledger"
)

const failurePrefix = "User rejected or transaction reverted: \n"

// Message renders err as the single line shown to a member.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ledger.ErrValidation) {
		return ledger.Reason(err)
	}
	return failurePrefix + ledger.Reason(err)
}
