package field

import "testing"

func TestHash2Deterministic(t *testing.T) {
	a := new(Element).SetUint64(1)
	b := new(Element).SetUint64(2)
	h1 := Hash2(*a, *b)
	h2 := Hash2(*a, *b)
	if !h1.Equal(&h2) {
		t.Error("Hash2 not deterministic")
	}

	c := new(Element).SetUint64(3)
	h3 := Hash2(*a, *c)
	if h1.Equal(&h3) {
		t.Error("Hash2(a,b) collided with Hash2(a,c) for distinct inputs")
	}

	// Hash2 must not be commutative in general, otherwise order-dependent
	// structures (Merkle trees, commitments) would lose information.
	h4 := Hash2(*b, *a)
	if h1.Equal(&h4) {
		t.Error("Hash2 appears commutative; expected order sensitivity")
	}
}

func TestHash5Deterministic(t *testing.T) {
	els := make([]Element, 5)
	for i := range els {
		els[i] = *new(Element).SetUint64(uint64(i + 1))
	}
	h1 := Hash5(els[0], els[1], els[2], els[3], els[4])
	h2 := Hash5(els[0], els[1], els[2], els[3], els[4])
	if !h1.Equal(&h2) {
		t.Error("Hash5 not deterministic")
	}
}

func TestHashNBaseCases(t *testing.T) {
	if got := HashN(nil); !got.IsZero() {
		t.Errorf("HashN([]) = %v, want 0", got)
	}
	x := new(Element).SetUint64(42)
	if got := HashN([]Element{*x}); !got.Equal(x) {
		t.Errorf("HashN([x]) = %v, want x", got)
	}
}

// TestHash2FixedVector pins Hash2(1,2) to a literal output computed
// independently of this package, so a change to hashRounds, roundConstants,
// or sbox that happens to preserve every relational property exercised
// above still fails here.
func TestHash2FixedVector(t *testing.T) {
	a := new(Element).SetUint64(1)
	b := new(Element).SetUint64(2)
	got := Hash2(*a, *b)

	want, ok := new(Element).SetString("13166391467485826642994460082212409232461979510131097195129885298240986232908")
	if !ok {
		t.Fatal("bad fixed-vector constant")
	}
	if !got.Equal(want) {
		t.Errorf("Hash2(1,2) = %s, want %s", got.String(), want.String())
	}
}

// TestHash5FixedVector pins Hash5(1,2,3,4,5) the same way.
func TestHash5FixedVector(t *testing.T) {
	els := make([]Element, 5)
	for i := range els {
		els[i] = *new(Element).SetUint64(uint64(i + 1))
	}
	got := Hash5(els[0], els[1], els[2], els[3], els[4])

	want, ok := new(Element).SetString("7029978003883910496097069488482850247611202662314500970378377640554063339673")
	if !ok {
		t.Fatal("bad fixed-vector constant")
	}
	if !got.Equal(want) {
		t.Errorf("Hash5(1,2,3,4,5) = %s, want %s", got.String(), want.String())
	}
}

func TestHashNFoldsRight(t *testing.T) {
	a := *new(Element).SetUint64(1)
	b := *new(Element).SetUint64(2)
	c := *new(Element).SetUint64(3)

	got := HashN([]Element{a, b, c})
	want := Hash2(a, Hash2(b, c))
	if !got.Equal(&want) {
		t.Error("HashN did not match explicit left-fold definition")
	}
}
