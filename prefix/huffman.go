package prefix

import "github.com/dsnet/vnscript/internal/errs"

// huffNode is an explicit two-child tree node, matching the Rust original's
// HuffmanNode shape. Unlike the teacher's canonical chunked-table decoder
// (DEFLATE-style), CBG and DSC build genuinely non-canonical trees via
// iterative weight merging or level-by-level depth placement, so decoding
// here is a literal node-tree walk rather than a table lookup.
type huffNode struct {
	valid    bool
	isParent bool
	weight   uint32
	left     int
	right    int
	value    int // leaf value, meaningful only when !isParent
}

// Tree is a binary prefix-code tree supporting the weight-table builder
// (CBG) and the depth-table builder (DSC), with a single decode walk for
// both.
type Tree struct {
	nodes []huffNode
	root  int
}

// BuildFromWeights builds a tree from a weight table: one node per table
// entry (valid iff its weight is non-zero), then repeatedly fuse two
// surviving nodes into a new parent until the combined weight of the last
// fusion reaches the total weight of all leaves. Each fusion picks its two
// children independently (child 0, then child 1): scan from position 0 for
// the first valid node as the initial candidate, then continue scanning for
// a strictly smaller weight — so ties break toward the lower index. When v2
// is true, the continuation scan for child i starts no earlier than
// index i+1, a quirk of the original encoder this decoder must mirror
// exactly to rebuild the same tree.
func BuildFromWeights(weights []uint32, v2 bool) *Tree {
	t := &Tree{}
	var total uint32
	for _, w := range weights {
		total += w
		t.nodes = append(t.nodes, huffNode{valid: w != 0, weight: w, value: -1, left: -1, right: -1})
	}
	for i := range t.nodes {
		if t.nodes[i].valid {
			t.nodes[i].value = i
		}
	}
	if len(t.nodes) == 0 {
		return t
	}

	for {
		var child [2]int
		for i := 0; i < 2; i++ {
			child[i] = -1
			minWeight := uint32(1<<32 - 1)
			n := 0
			if v2 {
				for n < len(t.nodes) {
					if t.nodes[n].valid {
						minWeight = t.nodes[n].weight
						child[i] = n
						n++
						break
					}
					n++
				}
				if n < i+1 {
					n = i + 1
				}
			}
			for n < len(t.nodes) {
				if t.nodes[n].valid && t.nodes[n].weight < minWeight {
					minWeight = t.nodes[n].weight
					child[i] = n
				}
				n++
			}
			if child[i] == -1 {
				continue
			}
			t.nodes[child[i]].valid = false
		}
		var combined uint32
		if child[0] != -1 {
			combined += t.nodes[child[0]].weight
		}
		if child[1] != -1 {
			combined += t.nodes[child[1]].weight
		}
		parentIdx := len(t.nodes)
		t.nodes = append(t.nodes, huffNode{
			valid: true, isParent: true, weight: combined,
			left: child[0], right: child[1], value: -1,
		})
		t.root = parentIdx
		if combined >= total {
			break
		}
	}
	return t
}

// BuildFromDepths builds a tree level by level from a depth table: depths[i]
// is the code length of symbol i (0 meaning "absent"). Working from the
// deepest level up, each level's leaves (in symbol order) followed by the
// parents built at the level below are paired consecutively into new
// parents, the first of each pair as the left child; an unpaired last
// node is carried up to the next level as is.
func BuildFromDepths(depths []int) *Tree {
	maxDepth := 0
	for _, d := range depths {
		if d > maxDepth {
			maxDepth = d
		}
	}
	t := &Tree{}
	if maxDepth == 0 {
		return t
	}

	// bucket[d] holds the symbol indices with depth d, in symbol order.
	bucket := make([][]int, maxDepth+1)
	for sym, d := range depths {
		if d > 0 {
			bucket[d] = append(bucket[d], sym)
		}
	}

	// pending holds node indices awaiting a parent at the next shallower
	// level, built bottom-up.
	var pending []int
	for d := maxDepth; d >= 1; d-- {
		var level []int
		for _, sym := range bucket[d] {
			idx := len(t.nodes)
			t.nodes = append(t.nodes, huffNode{valid: true, value: sym, left: -1, right: -1})
			level = append(level, idx)
		}
		// Pair up two children at a time: this level's leaves first, then
		// the nodes carried from the previous (deeper) level.
		combined := append(level, pending...)
		var next []int
		for i := 0; i+1 < len(combined); i += 2 {
			l, r := combined[i], combined[i+1]
			idx := len(t.nodes)
			t.nodes = append(t.nodes, huffNode{
				valid: true, isParent: true, left: l, right: r,
			})
			next = append(next, idx)
		}
		if len(combined)%2 == 1 {
			next = append(next, combined[len(combined)-1])
		}
		pending = next
	}
	if len(pending) > 0 {
		t.root = pending[0]
	}
	return t
}

// Decode walks the tree from the root, stepping left on a 0 bit and right
// on a 1 bit via next, emitting each leaf value reached.
func (t *Tree) Decode(next func() (int, error)) (int, error) {
	if len(t.nodes) == 0 {
		return 0, errs.New(errs.BadOpcode, "empty huffman tree")
	}
	idx := t.root
	for {
		n := t.nodes[idx]
		if !n.isParent {
			return n.value, nil
		}
		bit, err := next()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			idx = n.left
		} else {
			idx = n.right
		}
	}
}

// DecodeMSB decodes one symbol from an MSBReader.
func (t *Tree) DecodeMSB(r *MSBReader) (int, error) {
	return t.Decode(r.GetBit)
}
