package biocrowds

// sobol2 generates the first two dimensions of the Sobol sequence with 32-bit
// direction numbers. Dimension one is the base-2 van der Corput sequence;
// dimension two uses the primitive polynomial x+1 (m1 = 1). An XOR digital
// shift keeps the net structure while decorrelating runs with different seeds.
type sobol2 struct {
	dir   [2][32]uint32
	shift [2]uint32
}

func newSobol2(seed uint32) *sobol2 {
	s := &sobol2{}
	for k := 0; k < 32; k++ {
		s.dir[0][k] = 1 << (31 - k)
	}
	s.dir[1][0] = 1 << 31
	for k := 1; k < 32; k++ {
		s.dir[1][k] = s.dir[1][k-1] ^ (s.dir[1][k-1] >> 1)
	}
	if seed != 0 {
		s.shift[0] = mix32(seed)
		s.shift[1] = mix32(seed ^ 0x9e3779b9)
	}
	return s
}

// Point returns the i-th point in [0,1)^2.
func (s *sobol2) Point(i uint32) (float64, float64) {
	x, z := s.shift[0], s.shift[1]
	for k := 0; i != 0; k, i = k+1, i>>1 {
		if i&1 == 1 {
			x ^= s.dir[0][k]
			z ^= s.dir[1][k]
		}
	}
	const inv = 1.0 / (1 << 32)
	return float64(x) * inv, float64(z) * inv
}

func mix32(x uint32) uint32 {
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}
