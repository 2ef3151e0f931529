package sphere

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"geosphere.ai/internal/sim/geom"
	"geosphere.ai/internal/sim/graph"
)

// RootCount is the number of level-0 patches: the twenty icosahedron faces,
// five incident to each of its twelve vertices. Roots are triangles with
// three neighbors each, so there are twenty of them rather than twelve.
const RootCount = 20

// SeedRoots builds the root patches and links them. It runs once; on an
// initialized graph it logs and returns ErrInvariantViolation without
// touching anything.
func (s *Sphere) SeedRoots() error {
	if s.store.Initialized() {
		err := fmt.Errorf("%w: roots already seeded", graph.ErrInvariantViolation)
		s.log.Printf("seed roots: %v", err)
		return err
	}
	edit, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer edit.Commit()

	faces := geom.IcosahedronFaces()
	var roots [RootCount]graph.Handle
	for i, f := range faces {
		h, err := edit.Allocate(f, 0, graph.Nil)
		if err != nil {
			return err
		}
		if err := edit.AddRoot(h); err != nil {
			return err
		}
		roots[i] = h
		s.rootIndex[h] = i
	}

	// Shared edges carry bitwise-identical vertices, so exact matching is safe.
	for i := range faces {
		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			a, b := sd.Corners()
			link, ok := findRootEdge(faces, i, faces[i][a], faces[i][b])
			if !ok {
				return fmt.Errorf("%w: root %d side %s has no neighbor", graph.ErrInvariantViolation, i, sd)
			}
			if err := edit.SetNeighbor(roots[i], sd, graph.Link{Node: roots[link.face], Side: link.side}); err != nil {
				return err
			}
		}
	}
	edit.MarkInitialized()
	return nil
}

type faceSide struct {
	face int
	side graph.Side
}

func findRootEdge(faces [RootCount][3]r3.Vec, self int, p, q r3.Vec) (faceSide, bool) {
	for j := range faces {
		if j == self {
			continue
		}
		for sd := graph.Side(0); sd < graph.NumSides; sd++ {
			a, b := sd.Corners()
			u, v := faces[j][a], faces[j][b]
			if (u == p && v == q) || (u == q && v == p) {
				return faceSide{face: j, side: sd}, true
			}
		}
	}
	return faceSide{}, false
}
