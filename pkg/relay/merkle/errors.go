package merkle

import "github.com/joinquantish/privacy-relay/pkg/relayerr"

func errIndexRange(i, n int) error {
	return relayerr.New(relayerr.BadInput, "leaf index %d out of range [0,%d)", i, n)
}
