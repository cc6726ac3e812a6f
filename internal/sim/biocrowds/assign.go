package biocrowds

import "context"

// assignOwnership is the coarse raster pass: each cell is evaluated at its
// center only, the way a depth-tested cone draw would resolve it.
func assignOwnership(ctx context.Context, f *Frame) error {
	ix := newAgentIndex(f)
	own := f.Ownership
	w := f.Projector.Width()
	return f.Backend.ParallelRows(ctx, f.Projector.Depth(), func(z0, z1 int) error {
		for z := z0; z < z1; z++ {
			for x := 0; x < w; x++ {
				i := z*w + x
				if f.BlockedMask[i] {
					own.Owner[i] = Blocked
					own.Dist[i] = 0
					continue
				}
				c := f.Projector.CellCenter(x, z)
				id, _ := ix.nearest(c.X, c.Z)
				own.Owner[i] = id
				own.Dist[i] = ix.normalizedDist(id, c.X, c.Z)
			}
		}
		return nil
	})
}
