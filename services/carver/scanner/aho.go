package scanner

import (
	"cmp"
	"context"
	"iter"
	"slices"
)

// acNode internal automaton node
type acNode struct {
	next map[byte]*acNode
	fail *acNode
	out  []int // indices into the registry's signatures
}

// AhoAutomaton is a compiled multi-pattern matcher over a registry.
// Read-only after construction and safe to share between workers.
type AhoAutomaton struct {
	root   *acNode
	reg    *Registry
	states int
}

// BuildAho compiles the registry's patterns into an Aho-Corasick automaton.
func BuildAho(reg *Registry) *AhoAutomaton {
	root := &acNode{next: make(map[byte]*acNode)}
	states := 1
	for idx, s := range reg.sigs {
		cur := root
		for _, b := range s.Pattern {
			nxt, ok := cur.next[b]
			if !ok {
				nxt = &acNode{next: make(map[byte]*acNode)}
				cur.next[b] = nxt
				states++
			}
			cur = nxt
		}
		cur.out = append(cur.out, idx)
	}
	// BFS failure links
	queue := make([]*acNode, 0, len(root.next))
	for _, n := range root.next {
		n.fail = root
		queue = append(queue, n)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for b, nxt := range n.next {
			f := n.fail
			for f != nil && f.next[b] == nil {
				f = f.fail
			}
			if f == nil {
				nxt.fail = root
			} else {
				nxt.fail = f.next[b]
			}
			if len(nxt.fail.out) > 0 {
				nxt.out = append(nxt.out, nxt.fail.out...)
			}
			queue = append(queue, nxt)
		}
	}
	return &AhoAutomaton{root: root, reg: reg, states: states}
}

// States returns the number of automaton nodes.
func (a *AhoAutomaton) States() int { return a.states }

type ahoHit struct {
	start int
	sig   int
}

// Scan yields the same matches as the naive Scan, in the same order. The automaton
// reports a hit at its last byte, so a worker's hits are collected and re-sorted by
// start offset and registry order before anything is yielded.
func (a *AhoAutomaton) Scan(ctx context.Context, buf []byte, r WorkerRange) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		view, owned := window(buf, r)
		if owned == 0 {
			return
		}
		var hits []ahoHit
		n := a.root
		for i, b := range view {
			if i%cancelCheckInterval == 0 && ctx.Err() != nil {
				return
			}
			for n != nil && n.next[b] == nil {
				n = n.fail
			}
			if n == nil { // restart
				n = a.root
				continue
			}
			n = n.next[b]
			for _, idx := range n.out {
				start := i - a.reg.sigs[idx].Len() + 1
				if start < owned {
					hits = append(hits, ahoHit{start: start, sig: idx})
				}
			}
		}
		slices.SortFunc(hits, func(x, y ahoHit) int {
			if c := cmp.Compare(x.start, y.start); c != 0 {
				return c
			}
			return cmp.Compare(x.sig, y.sig)
		})
		for _, h := range hits {
			if !yield(Match{Signature: a.reg.sigs[h.sig].Name, Offset: r.PrimaryStart + h.start, WorkerID: r.ID}) {
				return
			}
		}
	}
}
