package lifecycle

import (
	"time"

	"github.com/joinquantish/privacy-relay/pkg/field"
	"github.com/joinquantish/privacy-relay/pkg/relay/store"
)

// Destination mirrors the wire shape of a distribution entry.
type Destination struct {
	Address string
	Bps     uint32
}

// SubmitRequest is the validated-on-entry shape of a new order. The
// legacy single-address shape is normalized into Distribution by the
// HTTP layer before reaching Submit.
type SubmitRequest struct {
	MarketID     string
	Side         string
	UsdcAmount   string
	Distribution []Destination
	Salt         string
	YesTokenMint string
	NoTokenMint  string
	IsEncrypted  bool
	Ciphertext   string
}

// SubmitResult is returned to the HTTP layer after a successful submit.
type SubmitResult struct {
	OrderID          string
	BatchID          string
	CommitmentHash   string
	Status           store.OrderStatus
	DepositExpiresAt time.Time
	DepositTarget    string
	DepositAmount    string
	DepositMemo      string
}

func toStoreDistribution(dist []Destination) []store.Destination {
	out := make([]store.Destination, len(dist))
	for i, d := range dist {
		out[i] = store.Destination{Address: d.Address, Bps: d.Bps}
	}
	return out
}

// parseSide is a small adapter so this package never needs to know how
// field.Side is represented beyond parsing the wire string once.
func parseSide(s string) (field.Side, error) {
	return field.ParseSide(s)
}
