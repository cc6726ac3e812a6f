package biocrowds

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
)

// Digest hashes the tick and the kinematic state of every agent. Two runs
// from the same setup produce identical digest sequences regardless of the
// backend's worker count.
func (s *Sim) Digest() string { return DigestAgents(s.tick, s.frame.Agents) }

func DigestAgents(tick uint64, agents []Agent) string {
	h := sha256.New()
	var tmp [8]byte
	digestWriteU64(h, &tmp, tick)
	digestWriteU64(h, &tmp, uint64(len(agents)))
	for i := range agents {
		a := &agents[i]
		digestWriteU64(h, &tmp, uint64(a.ID))
		digestWriteVec(h, &tmp, a.Pos)
		digestWriteVec(h, &tmp, a.Forward)
		digestWriteVec(h, &tmp, a.Vel)
		digestWriteVec(h, &tmp, a.Goal)
		h.Write([]byte{boolByte(a.Finished)})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// DigestOwnership hashes an ownership buffer; handy for comparing runs cell by cell.
func DigestOwnership(b *OwnershipBuffer) string {
	h := sha256.New()
	var tmp [8]byte
	digestWriteU64(h, &tmp, uint64(b.Width))
	digestWriteU64(h, &tmp, uint64(b.Depth))
	for i := range b.Owner {
		digestWriteU64(h, &tmp, uint64(int64(b.Owner[i])))
		digestWriteU64(h, &tmp, uint64(math.Float32bits(b.Dist[i])))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteVec(h hash.Hash, tmp *[8]byte, v Vec3) {
	digestWriteU64(h, tmp, math.Float64bits(v.X))
	digestWriteU64(h, tmp, math.Float64bits(v.Y))
	digestWriteU64(h, tmp, math.Float64bits(v.Z))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
