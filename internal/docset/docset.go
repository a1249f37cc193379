// Package docset implements the posting-list representation and its binary
// encoding.
//
// A DocSet maps document ids to the positions at which a word occurs in the
// document's title. The encoded form has three parts:
//  1. one byte per (docid, position) pair, holding the position, pairs
//     sorted ascending by (docid, position);
//  2. a single separator byte 0xFF;
//  3. the docids of the same sorted pairs, delta-encoded as little-endian
//     base-128 varints (7 data bits per byte, high bit set while more bytes
//     follow).
//
// Positions are limited to 0..254 so that 0xFF can never appear before the
// separator. A repeated docid (a word occurring twice in one title) encodes
// as a zero delta, a single zero byte.
package docset

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Separator terminates the position array in the encoded form.
const Separator = 0xFF

// ErrInvalidPosition reports a position that cannot be stored in one byte
// below the separator value.
var ErrInvalidPosition = errors.New("docset: position must be in 0..254")

// DocSet accumulates and decodes the postings of a single word.
type DocSet struct {
	docs map[int][]int
}

// New returns an empty DocSet.
func New() *DocSet {
	return &DocSet{docs: make(map[int][]int)}
}

// Append records one occurrence of the word at position within the document's
// title. Append imposes no ordering; Encode sorts.
func (d *DocSet) Append(docid, position int) {
	d.docs[docid] = append(d.docs[docid], position)
}

// Len returns the number of distinct documents in the set.
func (d *DocSet) Len() int {
	return len(d.docs)
}

// Docs returns the document ids in ascending order.
func (d *DocSet) Docs() []int {
	ids := make([]int, 0, len(d.docs))
	for id := range d.docs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Positions returns a copy of the positions held for docid, in the order
// held. Decoded sets hold them ascending.
func (d *DocSet) Positions(docid int) []int {
	positions, ok := d.docs[docid]
	if !ok {
		return nil
	}
	out := make([]int, len(positions))
	copy(out, positions)
	return out
}

// Equal reports whether both sets hold the same docids with the same
// position sequences.
func (d *DocSet) Equal(other *DocSet) bool {
	if len(d.docs) != len(other.docs) {
		return false
	}
	for id, positions := range d.docs {
		theirs, ok := other.docs[id]
		if !ok || len(positions) != len(theirs) {
			return false
		}
		for i, p := range positions {
			if theirs[i] != p {
				return false
			}
		}
	}
	return true
}

// String renders a truncated docid -> positions preview for logging.
func (d *DocSet) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "<DocSet len=%d {", len(d.docs))
	for i, id := range d.Docs() {
		if b.Len() > 75 {
			b.WriteString(" ...")
			break
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d:%v", id, d.docs[id])
	}
	b.WriteString("}>")
	return b.String()
}

// Encode serialises the set for storage. An empty set encodes to no bytes.
// Any position outside 0..254 fails with ErrInvalidPosition.
func (d *DocSet) Encode() ([]byte, error) {
	if len(d.docs) == 0 {
		return nil, nil
	}
	type pair struct{ doc, pos int }
	pairs := make([]pair, 0, len(d.docs))
	for doc, positions := range d.docs {
		for _, pos := range positions {
			pairs = append(pairs, pair{doc, pos})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].doc != pairs[j].doc {
			return pairs[i].doc < pairs[j].doc
		}
		return pairs[i].pos < pairs[j].pos
	})

	out := make([]byte, 0, len(pairs)*2+1)
	for _, p := range pairs {
		if p.pos < 0 || p.pos >= Separator {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidPosition, p.pos)
		}
		out = append(out, byte(p.pos))
	}
	out = append(out, Separator)

	docs := make([]int, len(pairs))
	for i, p := range pairs {
		docs[i] = p.doc
	}
	return append(out, DeltaEncode(docs)...), nil
}

// Decode rebuilds a DocSet from its encoded form. Empty or single-byte input
// yields an empty set. The split happens at the first separator byte, which
// is necessarily the real separator because positions never encode as 0xFF.
func Decode(data []byte) *DocSet {
	d := New()
	if len(data) <= 1 {
		return d
	}
	limit := bytes.IndexByte(data, Separator)
	if limit < 0 {
		// Not produced by Encode; nothing to pair up.
		return d
	}
	positions := data[:limit]
	docs := DeltaDecode(data[limit+1:])
	n := len(docs)
	if len(positions) < n {
		n = len(positions)
	}
	for i := 0; i < n; i++ {
		d.docs[docs[i]] = append(d.docs[docs[i]], int(positions[i]))
	}
	return d
}

// DeltaEncode compresses an ascending (duplicates allowed) sequence of
// non-negative ints into successive-difference varints.
func DeltaEncode(ordered []int) []byte {
	out := make([]byte, 0, len(ordered))
	prev := 0
	for _, doc := range ordered {
		delta := doc - prev
		prev = doc
		for delta >= 0x80 {
			out = append(out, byte(delta)|0x80)
			delta >>= 7
		}
		out = append(out, byte(delta))
	}
	return out
}

// DeltaDecode reverses DeltaEncode, returning the absolute values.
func DeltaDecode(data []byte) []int {
	var out []int
	prev, cur, shift := 0, 0, 0
	for _, b := range data {
		cur |= int(b&0x7F) << shift
		shift += 7
		if b&0x80 == 0 {
			prev += cur
			out = append(out, prev)
			cur, shift = 0, 0
		}
	}
	return out
}
