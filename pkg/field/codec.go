// Package field implements the relay's FieldCodec and HashEngine: the
// canonical encoding of order fields into BN254 scalar-field elements and
// the fixed-arity algebraic hashes the commitment/Merkle layer is built on.
//
// Field arithmetic is delegated to consensys/gnark-crypto's bn254 scalar
// field, the same curve family the proving backend this relay feeds is
// expected to use. Getting this encoding wrong — even a reordering of
// bytes — produces commitments the off-process prover will never accept,
// so the byte-packing conversions TickerField and CiphertextField are
// pinned against literal fixed-vector constants in codec_test.go, not just
// against their own relational properties. AddressField is tested there
// for validity only.
package field

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/joinquantish/privacy-relay/pkg/relayerr"
)

func randBigInt(max *big.Int) (*big.Int, error) {
	return rand.Int(rand.Reader, max)
}

// Element is a BN254 scalar field element, the unit of currency for every
// hash and commitment in the relay.
type Element = fr.Element

// Side is the two-sided outcome a prediction-market order trades.
type Side uint8

const (
	SideNo  Side = 0
	SideYes Side = 1
)

// ParseSide parses the wire representation of a side ("YES"/"NO", case
// insensitive) into a Side, or returns BadInput.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES":
		return SideYes, nil
	case "NO":
		return SideNo, nil
	default:
		return 0, relayerr.New(relayerr.BadInput, "side must be YES or NO, got %q", s)
	}
}

func (s Side) String() string {
	if s == SideYes {
		return "YES"
	}
	return "NO"
}

// microUSDCScale is the fixed-point scale for 6-decimal USDC amounts.
const microUSDCScale = 1_000_000

// Zero returns the additive identity of the field.
func Zero() Element {
	var z Element
	return z
}

// TickerField packs a market ticker's UTF-8 bytes MSB-first into a field
// element, reduced mod P. Tickers longer than 31 bytes would overflow a
// single field element unreduced, but reduction mod P keeps the function
// total; callers that need collision freedom across distinct tickers
// should keep tickers short, which prediction-market symbols always are.
func TickerField(ticker string) (Element, error) {
	if ticker == "" {
		return Element{}, relayerr.New(relayerr.BadInput, "marketId must not be empty")
	}
	var e Element
	e.SetBigInt(new(big.Int).SetBytes([]byte(ticker)))
	return e, nil
}

// CiphertextField packs an arbitrary-length encrypted-order ciphertext
// into a single field element by chunking it into 31-byte blocks (each
// safely below the BN254 scalar field's modulus), converting each chunk
// to an element, and folding them with HashN. Unlike TickerField this
// does not reduce a long input mod P as a single integer: every 31-byte
// chunk enters the hash as its own element, which is what lets
// two different encrypted orders land on distinct Merkle leaves.
func CiphertextField(ciphertext string) (Element, error) {
	if ciphertext == "" {
		return Element{}, relayerr.New(relayerr.BadInput, "ciphertext must not be empty")
	}
	raw := []byte(ciphertext)
	const chunkSize = 31
	chunks := make([]Element, 0, (len(raw)+chunkSize-1)/chunkSize)
	for i := 0; i < len(raw); i += chunkSize {
		end := i + chunkSize
		if end > len(raw) {
			end = len(raw)
		}
		var e Element
		e.SetBigInt(new(big.Int).SetBytes(raw[i:end]))
		chunks = append(chunks, e)
	}
	return HashN(chunks), nil
}

// SideField encodes YES=1, NO=0.
func SideField(s Side) Element {
	var e Element
	e.SetUint64(uint64(s))
	return e
}

// AmountField parses a decimal USDC string with up to 6 decimal places
// into its micro-unit integer representation and reduces it mod P.
func AmountField(decimal string) (Element, error) {
	micros, err := ParseMicroUSDC(decimal)
	if err != nil {
		return Element{}, err
	}
	var e Element
	e.SetBigInt(new(big.Int).SetInt64(micros))
	return e, nil
}

// ParseMicroUSDC parses a decimal string ("10.50") into integer
// micro-USDC units (10_500_000), rejecting negative, malformed, or
// over-precise input.
func ParseMicroUSDC(decimal string) (int64, error) {
	decimal = strings.TrimSpace(decimal)
	if decimal == "" {
		return 0, relayerr.New(relayerr.BadInput, "usdcAmount must not be empty")
	}
	neg := false
	if strings.HasPrefix(decimal, "-") {
		neg = true
		decimal = decimal[1:]
	}
	whole, frac, hasFrac := strings.Cut(decimal, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac {
		if len(frac) > 6 {
			return 0, relayerr.New(relayerr.BadInput, "usdcAmount has more than 6 decimal places: %q", decimal)
		}
		frac = frac + strings.Repeat("0", 6-len(frac))
	} else {
		frac = strings.Repeat("0", 6)
	}
	wholeVal, err := strconv.ParseInt(whole, 10, 63)
	if err != nil {
		return 0, relayerr.Wrap(relayerr.BadInput, err, "invalid usdcAmount %q", decimal)
	}
	fracVal, err := strconv.ParseInt(frac, 10, 63)
	if err != nil {
		return 0, relayerr.Wrap(relayerr.BadInput, err, "invalid usdcAmount %q", decimal)
	}
	micros := wholeVal*microUSDCScale + fracVal
	if neg {
		micros = -micros
	}
	if micros <= 0 {
		return 0, relayerr.New(relayerr.BadInput, "usdcAmount must be positive, got %q", decimal)
	}
	return micros, nil
}

// FormatMicroUSDC renders integer micro-USDC units back to a fixed 6-dp
// decimal string, the inverse of ParseMicroUSDC.
func FormatMicroUSDC(micros int64) string {
	neg := micros < 0
	if neg {
		micros = -micros
	}
	whole := micros / microUSDCScale
	frac := micros % microUSDCScale
	sign := ""
	if neg {
		sign = "-"
	}
	return sign + strconv.FormatInt(whole, 10) + "." + padLeft6(frac)
}

func padLeft6(v int64) string {
	s := strconv.FormatInt(v, 10)
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}

// AddressField base58-decodes a 32-byte address (Solana-style public key)
// into a big-endian integer reduced mod P.
func AddressField(address string) (Element, error) {
	raw, err := base58.Decode(address)
	if err != nil {
		return Element{}, relayerr.Wrap(relayerr.BadInput, err, "invalid base58 address %q", address)
	}
	if len(raw) != 32 {
		return Element{}, relayerr.New(relayerr.BadInput, "address %q decodes to %d bytes, want 32", address, len(raw))
	}
	var e Element
	e.SetBigInt(new(big.Int).SetBytes(raw))
	return e, nil
}

// ValidAddress reports whether address decodes as a syntactically valid
// 32-byte base58 public key, without producing a field element.
func ValidAddress(address string) bool {
	raw, err := base58.Decode(address)
	return err == nil && len(raw) == 32
}

// SaltField reduces a salt integer (decimal or hex-prefixed string) mod P.
func SaltField(salt string) (Element, error) {
	salt = strings.TrimSpace(salt)
	if salt == "" {
		return Element{}, relayerr.New(relayerr.BadInput, "salt must not be empty")
	}
	var i *big.Int
	var ok bool
	if strings.HasPrefix(salt, "0x") || strings.HasPrefix(salt, "0X") {
		i, ok = new(big.Int).SetString(salt[2:], 16)
	} else {
		i, ok = new(big.Int).SetString(salt, 10)
	}
	if !ok {
		return Element{}, relayerr.New(relayerr.BadInput, "invalid salt %q", salt)
	}
	var e Element
	e.SetBigInt(i)
	return e, nil
}

// RandomSalt generates a cryptographically random salt already reduced mod
// P, returned as a decimal string suitable for SaltField / JSON transport.
func RandomSalt() (string, error) {
	modulus := fr.Modulus()
	n, err := randBigInt(modulus)
	if err != nil {
		return "", relayerr.Wrap(relayerr.Internal, err, "failed to generate salt")
	}
	return n.String(), nil
}

// ToHash32 renders a field element as a 32-byte big-endian hash value,
// convenient for JSON transport and for reuse of go-ethereum's common.Hash
// helpers (Hex(), etc.) elsewhere in the relay.
func ToHash32(e Element) common.Hash {
	b := e.Bytes()
	return common.BytesToHash(b[:])
}
