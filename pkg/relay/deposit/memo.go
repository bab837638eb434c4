package deposit

import (
	"strconv"
	"strings"
)

// MemoKind tags how a chain memo was interpreted.
type MemoKind int

const (
	MemoUnknown MemoKind = iota
	MemoOrderID
	MemoStructured
)

// StructuredMemo is the parsed form of the pipe-delimited inline order
// spec a depositor can attach directly to their transfer memo:
// "APP|action|marketTicker|outcomeMint|amount|slippageBps|dest1;dest2;...".
type StructuredMemo struct {
	Action      string
	MarketID    string
	OutcomeMint string
	Amount      string
	SlippageBps int
	Destinations []string
}

// ParseMemo classifies a chain memo. A memo that starts with "APP|" is
// parsed as a structured spec, and is MemoUnknown if it does not have
// exactly seven fields or its slippage is not an integer. An empty memo
// is MemoUnknown; any other memo is tagged MemoOrderID.
func ParseMemo(memo string) (MemoKind, StructuredMemo, string) {
	memo = strings.TrimSpace(memo)
	if memo == "" {
		return MemoUnknown, StructuredMemo{}, ""
	}
	if strings.HasPrefix(memo, "APP|") {
		parts := strings.Split(memo, "|")
		if len(parts) != 7 {
			return MemoUnknown, StructuredMemo{}, memo
		}
		slippage, err := strconv.Atoi(parts[5])
		if err != nil {
			return MemoUnknown, StructuredMemo{}, memo
		}
		dests := strings.Split(parts[6], ";")
		return MemoStructured, StructuredMemo{
			Action:       parts[1],
			MarketID:     parts[2],
			OutcomeMint:  parts[3],
			Amount:       parts[4],
			SlippageBps:  slippage,
			Destinations: dests,
		}, memo
	}
	// An opaque order id: relay-assigned ids are UUIDs (keccak hex for
	// encrypted orders), but any non-empty,
	// non-structured memo is treated as a candidate order id lookup and
	// falls back to unmatched if it doesn't resolve.
	return MemoOrderID, StructuredMemo{}, memo
}
