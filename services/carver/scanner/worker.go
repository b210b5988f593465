package scanner

import (
	"bytes"
	"context"
	"iter"
)

// cancelCheckInterval is how many offsets a worker walks between context polls.
const cancelCheckInterval = 1 << 16

// Match is a signature found at an absolute buffer offset.
type Match struct {
	Signature string `json:"signature"`
	Offset    int    `json:"offset"`
	WorkerID  int    `json:"worker_id"`
}

// window returns the bounds-checked view of buf a worker may read and the number of
// leading offsets in it that the worker owns. Both are clamped to len(buf) so a
// short buffer never causes an out-of-range read.
func window(buf []byte, r WorkerRange) (view []byte, owned int) {
	end := min(r.ScanEnd, len(buf))
	start := min(r.PrimaryStart, end)
	owned = min(r.PrimaryEnd, end) - start
	return buf[start:end], max(owned, 0)
}

// Scan lazily yields the matches whose start offset lies in r's primary range, in
// ascending offset order and, at one offset, in registry order.
//
// Offsets in the overlap tail are read as trailing bytes of earlier starts but are
// never reported here: they belong to the next worker. A pattern that would run past
// the end of the view is skipped at that offset.
//
// Scan never writes to buf. It polls ctx every cancelCheckInterval offsets and stops
// yielding once ctx is done.
func Scan(ctx context.Context, buf []byte, r WorkerRange, reg *Registry) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		view, owned := window(buf, r)
		sigs := reg.sigs
		for i := 0; i < owned; i++ {
			if i%cancelCheckInterval == 0 && ctx.Err() != nil {
				return
			}
			tail := view[i:]
			for _, s := range sigs {
				if !bytes.HasPrefix(tail, s.Pattern) {
					continue
				}
				if !yield(Match{Signature: s.Name, Offset: r.PrimaryStart + i, WorkerID: r.ID}) {
					return
				}
			}
		}
	}
}
