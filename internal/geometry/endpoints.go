package geometry

import (
	"github.com/asim/quadtree"
)

// Geometry is a traced roof: an outline polygon plus structural polylines.
// An outline with no points means none was supplied.
type Geometry struct {
	Outline Shape   `json:"outline"`
	Lines   []Shape `json:"lines"`
}

// Clone deep-copies the geometry.
func (g Geometry) Clone() Geometry {
	return Geometry{Outline: g.Outline.Clone(), Lines: CloneShapes(g.Lines)}
}

// pointRef locates a snapping candidate: shape -1 is the outline.
type pointRef struct {
	shape int
	index int
}

// unionFind is a disjoint-set forest over candidate indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// SnapEndpoints clusters nearby vertices and moves every member of a cluster
// to the cluster centroid.
//
// Candidates are all outline vertices plus the first and last point of each
// line whose ID is not in locked. Any two candidates within radius are joined
// (transitively, by union-find). A quadtree restricts the pair checks to
// nearby candidates. Afterwards consecutive outline vertices closer than
// dedupeTol are merged. radius <= 0 returns an unchanged copy.
func SnapEndpoints(g Geometry, radius, dedupeTol float64, locked map[string]bool) Geometry {
	out := g.Clone()
	if radius <= 0 {
		return out
	}

	var refs []pointRef
	var pts []Point
	for i, p := range out.Outline.Points {
		refs = append(refs, pointRef{shape: -1, index: i})
		pts = append(pts, p)
	}
	for li, line := range out.Lines {
		if locked[line.ID] || len(line.Points) < 2 {
			continue
		}
		last := len(line.Points) - 1
		refs = append(refs, pointRef{li, 0}, pointRef{li, last})
		pts = append(pts, line.Points[0], line.Points[last])
	}
	if len(pts) < 2 {
		return out
	}

	uf := newUnionFind(len(pts))
	tree := newPointTree(pts, radius)
	for i, p := range pts {
		near := tree.Search(quadtree.NewAABB(
			quadtree.NewPoint(p.X, p.Y, nil),
			quadtree.NewPoint(radius, radius, nil)))
		for _, q := range near {
			qx, qy := q.Coordinates()
			if p.Dist(Point{qx, qy}) > radius {
				continue
			}
			for _, j := range q.Data().([]int) {
				if j != i {
					uf.union(i, j)
				}
			}
		}
	}

	sums := make(map[int]Point)
	counts := make(map[int]float64)
	for i, p := range pts {
		root := uf.find(i)
		sums[root] = sums[root].Add(p)
		counts[root]++
	}
	for i, ref := range refs {
		root := uf.find(i)
		c := sums[root].Scale(1 / counts[root])
		if ref.shape < 0 {
			out.Outline.Points[ref.index] = c
		} else {
			out.Lines[ref.shape].Points[ref.index] = c
		}
	}

	if len(out.Outline.Points) > 0 {
		minKeep := 2
		if out.Outline.Closed {
			minKeep = 3
		}
		out.Outline.Points = dedupe(out.Outline.Points, out.Outline.Closed, dedupeTol, minKeep)
	}
	return out
}

// newPointTree indexes pts in a quadtree. Coincident points share a single
// entry whose data lists every candidate index at that position.
func newPointTree(pts []Point, margin float64) *quadtree.QuadTree {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	bounds := quadtree.NewAABB(
		quadtree.NewPoint((minX+maxX)/2, (minY+maxY)/2, nil),
		quadtree.NewPoint((maxX-minX)/2+margin+1, (maxY-minY)/2+margin+1, nil))
	tree := quadtree.New(bounds, 0, nil)

	groups := make(map[Point][]int)
	var order []Point
	for i, p := range pts {
		if _, ok := groups[p]; !ok {
			order = append(order, p)
		}
		groups[p] = append(groups[p], i)
	}
	for _, p := range order {
		tree.Insert(quadtree.NewPoint(p.X, p.Y, groups[p]))
	}
	return tree
}
