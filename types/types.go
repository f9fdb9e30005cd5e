package types

import (
	"fmt"
	"math/big"
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventProposalType = "proposal"
	EventVoteType     = "vote"
	EventFinalizeType = "finalize"
)

type EventProposal struct {
	Proposal  uint64         `json:"proposal"`
	Proposer  common.Address `json:"proposer"`
	Name      string         `json:"name"`
	Amount    *big.Int       `json:"amount"`
	Recipient common.Address `json:"recipient"`
}

func EncodeEventProposal(event *EventProposal) abci.Event {
	return abci.Event{
		Type: EventProposalType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "proposer", Value: event.Proposer.Hex(), Index: true},
			{Key: "name", Value: event.Name, Index: false},
			{Key: "amount", Value: event.Amount.String(), Index: false},
			{Key: "recipient", Value: event.Recipient.Hex(), Index: false},
		},
	}
}

func DecodeEventProposal(originEvent abci.Event) *EventProposal {
	if originEvent.Type != EventProposalType {
		return nil
	}
	event := &EventProposal{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "proposer":
			event.Proposer = common.HexToAddress(v.Value)
		case "name":
			event.Name = v.Value
		case "amount":
			amount, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Amount = amount
		case "recipient":
			event.Recipient = common.HexToAddress(v.Value)
		}
	}
	return event
}

type EventVote struct {
	Proposal uint64         `json:"proposal"`
	Voter    common.Address `json:"voter"`
	Kind     VoteKind       `json:"kind"`
	Votes    uint64         `json:"votes"`
}

func EncodeEventVote(event *EventVote) abci.Event {
	return abci.Event{
		Type: EventVoteType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "voter", Value: event.Voter.Hex(), Index: true},
			{Key: "kind", Value: fmt.Sprintf("%v", uint8(event.Kind)), Index: false},
			{Key: "votes", Value: fmt.Sprintf("%v", event.Votes), Index: false},
		},
	}
}

func DecodeEventVote(originEvent abci.Event) *EventVote {
	if originEvent.Type != EventVoteType {
		return nil
	}
	event := &EventVote{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "voter":
			event.Voter = common.HexToAddress(v.Value)
		case "kind":
			kind, err := strconv.ParseUint(v.Value, 10, 8)
			if err != nil {
				return nil
			}
			event.Kind = VoteKind(kind)
		case "votes":
			votes, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Votes = votes
		}
	}
	return event
}

type EventFinalize struct {
	Proposal  uint64         `json:"proposal"`
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
}

func EncodeEventFinalize(event *EventFinalize) abci.Event {
	return abci.Event{
		Type: EventFinalizeType,
		Attributes: []abci.EventAttribute{
			{Key: "proposal", Value: fmt.Sprintf("%v", event.Proposal), Index: true},
			{Key: "recipient", Value: event.Recipient.Hex(), Index: false},
			{Key: "amount", Value: event.Amount.String(), Index: false},
		},
	}
}

func DecodeEventFinalize(originEvent abci.Event) *EventFinalize {
	if originEvent.Type != EventFinalizeType {
		return nil
	}
	event := &EventFinalize{}
	for _, v := range originEvent.Attributes {
		switch v.Key {
		case "proposal":
			proposal, err := strconv.ParseUint(v.Value, 10, 64)
			if err != nil {
				return nil
			}
			event.Proposal = proposal
		case "recipient":
			event.Recipient = common.HexToAddress(v.Value)
		case "amount":
			amount, ok := new(big.Int).SetString(v.Value, 10)
			if !ok {
				return nil
			}
			event.Amount = amount
		}
	}
	return event
}
