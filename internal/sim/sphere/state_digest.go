package sphere

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"geosphere.ai/internal/sim/graph"
)

// StateDigest hashes the tree in root order then child order. Handles are
// not part of it, so two spheres that made the same decisions agree even if
// their slots differ.
func (s *Sphere) StateDigest() string { return s.digest(true) }

// leafDigest covers the shape only. Viewers are keyed on it so a debug tag
// toggle does not resend an unchanged leaf set.
func (s *Sphere) leafDigest() string { return s.digest(false) }

func (s *Sphere) digest(withTags bool) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, uint64(len(s.store.Roots())))
	s.Walk(func(_ graph.Handle, n graph.Node, _ string) bool {
		digestWriteU64(h, &tmp, uint64(n.Level))
		for _, c := range n.Corners {
			digestWriteU64(h, &tmp, math.Float64bits(c.X))
			digestWriteU64(h, &tmp, math.Float64bits(c.Y))
			digestWriteU64(h, &tmp, math.Float64bits(c.Z))
		}
		if withTags {
			h.Write([]byte{boolByte(n.Debug)})
		}
		h.Write([]byte{boolByte(!n.IsLeaf())})
		return true
	})
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
