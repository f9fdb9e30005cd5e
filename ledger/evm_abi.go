package ledger

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const commonABI = `
	{"type":"function","name":"vote","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"downvote","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"finalizeProposal","stateMutability":"nonpayable","inputs":[{"name":"_id","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"proposalCount","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"quorum","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"hasVoted","stateMutability":"view","inputs":[{"name":"","type":"address"},{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}`

// legacyABI is the DAO contract without proposal descriptions.
const legacyABI = `[` + commonABI + `,
	{"type":"function","name":"createProposal","stateMutability":"nonpayable","inputs":[
		{"name":"_name","type":"string"},
		{"name":"_amount","type":"uint256"},
		{"name":"_recipient","type":"address"}],"outputs":[]},
	{"type":"function","name":"proposals","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},
		{"name":"name","type":"string"},
		{"name":"amount","type":"uint256"},
		{"name":"recipient","type":"address"},
		{"name":"votes","type":"int256"},
		{"name":"finalized","type":"bool"}]}
]`

const extendedABI = `[` + commonABI + `,
	{"type":"function","name":"createProposal","stateMutability":"nonpayable","inputs":[
		{"name":"_name","type":"string"},
		{"name":"_description","type":"string"},
		{"name":"_amount","type":"uint256"},
		{"name":"_recipient","type":"address"}],"outputs":[]},
	{"type":"function","name":"proposals","stateMutability":"view","inputs":[{"name":"","type":"uint256"}],"outputs":[
		{"name":"id","type":"uint256"},
		{"name":"name","type":"string"},
		{"name":"description","type":"string"},
		{"name":"amount","type":"uint256"},
		{"name":"recipient","type":"address"},
		{"name":"votes","type":"int256"},
		{"name":"finalized","type":"bool"}]}
]`

const (
	SchemaLegacy   = "legacy"
	SchemaExtended = "extended"
)

func contractABI(schema string) (abi.ABI, error) {
	switch schema {
	case SchemaLegacy:
		return abi.JSON(strings.NewReader(legacyABI))
	case SchemaExtended:
		return abi.JSON(strings.NewReader(extendedABI))
	default:
		return abi.ABI{}, fmt.Errorf("unknown contract schema %q", schema)
	}
}
