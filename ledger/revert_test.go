package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReason(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hardhat message", "Error: VM Exception while processing transaction: reverted with reason string 'already voted'", "already voted"},
		{"bare", "reverted with reason string 'Insufficient funds'", "Insufficient funds"},
		{"no reason", "user rejected transaction", "user rejected transaction"},
		{"empty quotes do not match", "reverted with reason string ''", "reverted with reason string ''"},
		{"empty", "", ""},
		{"first match wins", "reverted with reason string 'a' then reverted with reason string 'b'", "a"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractReason(tc.in))
		})
	}
}
