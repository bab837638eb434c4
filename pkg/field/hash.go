package field

// HashEngine exposes the two fixed-arity algebraic hashes the relay's
// commitment and Merkle layers are built on. The construction is a small
// fixed-round arithmetic sponge over the BN254 scalar field: every round
// mixes the state with round constants, raises it to the fifth power (an
// S-box cheap to express in an arithmetic circuit), and linearly diffuses
// it. The exact constants and round count are a protocol constant shared
// with the proving circuit this relay feeds — see CommitmentBuilder — and
// must never change without updating both sides in lockstep.
const hashRounds = 8

// roundConstants are fixed, arbitrary-but-deterministic field elements used
// to break symmetry between rounds. Generated once and frozen; changing
// them changes every commitment and Merkle root the relay has ever issued.
var roundConstants = buildRoundConstants()

func buildRoundConstants() []Element {
	const n = hashRounds * 5
	out := make([]Element, n)
	var acc Element
	acc.SetUint64(0x9E3779B97F4A7C15)
	one := new(Element).SetUint64(1)
	for i := 0; i < n; i++ {
		acc.Square(&acc)
		acc.Add(&acc, one)
		out[i] = acc
	}
	return out
}

// sbox computes x^5, the nonlinear step used each round.
func sbox(x Element) Element {
	var x2, x4, x5 Element
	x2.Square(&x)
	x4.Square(&x2)
	x5.Mul(&x4, &x)
	return x5
}

// permute runs the fixed-width sponge permutation in place over a state of
// up to 5 elements (the engine's maximum native arity). Unused state slots
// must be zeroed by the caller.
func permute(state [5]Element) [5]Element {
	for r := 0; r < hashRounds; r++ {
		for i := range state {
			state[i].Add(&state[i], &roundConstants[r*5+i])
			state[i] = sbox(state[i])
		}
		// Linear diffusion layer: a simple MDS-like mix so every output
		// element depends on every input element.
		var sum Element
		for i := range state {
			sum.Add(&sum, &state[i])
		}
		for i := range state {
			state[i].Add(&state[i], &sum)
		}
	}
	return state
}

// Hash2 is the engine's arity-2 algebraic hash, the building block for
// MerkleBuilder and for HashN's left-fold reduction.
func Hash2(a, b Element) Element {
	var state [5]Element
	state[0] = a
	state[1] = b
	out := permute(state)
	return out[0]
}

// Hash5 is the engine's arity-5 algebraic hash, used directly by
// CommitmentBuilder to bind an order's ticker/side/amount/address/salt.
func Hash5(a, b, c, d, e Element) Element {
	state := [5]Element{a, b, c, d, e}
	out := permute(state)
	return out[0]
}

// HashN reduces a slice of field elements via the left-fold rule specified
// for the relay's N-ary reduction: HashN([]) = 0, HashN([x]) = x,
// HashN([x, rest...]) = Hash2(x, HashN(rest)).
func HashN(xs []Element) Element {
	if len(xs) == 0 {
		var zero Element
		return zero
	}
	if len(xs) == 1 {
		return xs[0]
	}
	return Hash2(xs[0], HashN(xs[1:]))
}
