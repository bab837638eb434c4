// Package merkle implements the relay's MerkleBuilder: a binary tree over
// HashEngine's Hash2, zero-padded to the next power of two (at least two
// leaves), built from the ordered commitment hashes of a batch's funded
// orders.
package merkle

import "github.com/joinquantish/privacy-relay/pkg/field"

// Tree is an immutable Merkle tree built from a fixed ordered leaf list.
// levels[0] is the padded leaf row; levels[len-1] holds the single root.
type Tree struct {
	levels [][]field.Element
}

// Build constructs a tree over leaves in the given order, zero-padding to
// the next power of two with a minimum of two leaves, so a single leaf is
// hashed with a zero sibling. An empty leaf list yields a tree whose Root
// is the zero element.
func Build(leaves []field.Element) *Tree {
	if len(leaves) == 0 {
		return &Tree{levels: [][]field.Element{{field.Zero()}}}
	}

	size := nextPowerOfTwo(len(leaves))
	if size < 2 {
		size = 2
	}
	padded := make([]field.Element, size)
	copy(padded, leaves)

	levels := [][]field.Element{padded}
	cur := padded
	for len(cur) > 1 {
		next := make([]field.Element, len(cur)/2)
		for i := range next {
			next[i] = field.Hash2(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
		cur = next
	}
	return &Tree{levels: levels}
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Root returns the tree's root hash, or the zero element for an empty tree.
func (t *Tree) Root() field.Element {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// LeafCount returns the number of padded leaves backing the tree.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Path returns the sibling hashes and left/right indices needed to verify
// leaf i against the root, ordered from leaf to root. indices[d] is 0 if
// the node at depth d is a left child (its sibling is to the right) and 1
// if it is a right child.
func (t *Tree) Path(i int) (siblings []field.Element, indices []int, err error) {
	if i < 0 || i >= len(t.levels[0]) {
		return nil, nil, errIndexRange(i, len(t.levels[0]))
	}
	for d := 0; d < len(t.levels)-1; d++ {
		level := t.levels[d]
		isRight := i%2 == 1
		var sibIdx int
		if isRight {
			sibIdx = i - 1
		} else {
			sibIdx = i + 1
		}
		siblings = append(siblings, level[sibIdx])
		if isRight {
			indices = append(indices, 1)
		} else {
			indices = append(indices, 0)
		}
		i /= 2
	}
	return siblings, indices, nil
}
