// Package roadlayer implements the street network: nearest-node lookup and
// shortest-path distance queries. The search is a Dijkstra search over
// geometric edge length, using a container/heap priority queue with
// deterministic tie-breaking.
package roadlayer

import (
	"container/heap"
	"math"
	"sort"

	"github.com/transit-works/route-optimizer/internal/geo"
	"github.com/transit-works/route-optimizer/internal/opterr"
	"github.com/transit-works/route-optimizer/internal/optmodel"
)

type edgeRef struct {
	edge   optmodel.RoadEdge
	length float64
}

// RoadLayer is an immutable, directed road graph supporting nearest-node
// lookup and shortest-path distance queries.
type RoadLayer struct {
	nodes map[optmodel.RoadNodeID]optmodel.RoadNode
	order []optmodel.RoadNodeID
	// adjacency: source node -> outgoing edges, sorted by (target id, edge
	// id) so that tie-breaking during search is deterministic.
	adjacency map[optmodel.RoadNodeID][]edgeRef
}

// New builds a RoadLayer from nodes and edges. Edges whose endpoints are
// not present in nodes are dropped. Returns a construction error if nodes
// is empty, since nearest-node lookup has no sensible answer on an empty
// network.
func New(nodes []optmodel.RoadNode, edges []optmodel.RoadEdge) (*RoadLayer, error) {
	if len(nodes) == 0 {
		return nil, opterr.New(opterr.KindInvariant, "road network has no nodes")
	}
	r := &RoadLayer{
		nodes:     make(map[optmodel.RoadNodeID]optmodel.RoadNode, len(nodes)),
		adjacency: make(map[optmodel.RoadNodeID][]edgeRef),
	}
	for _, n := range nodes {
		if _, exists := r.nodes[n.ID]; !exists {
			r.order = append(r.order, n.ID)
		}
		r.nodes[n.ID] = n
	}
	for _, e := range edges {
		if _, ok := r.nodes[e.SourceID]; !ok {
			continue
		}
		if _, ok := r.nodes[e.TargetID]; !ok {
			continue
		}
		r.adjacency[e.SourceID] = append(r.adjacency[e.SourceID], edgeRef{edge: e, length: polylineLength(e.Geometry)})
	}
	for _, refs := range r.adjacency {
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].edge.TargetID != refs[j].edge.TargetID {
				return refs[i].edge.TargetID < refs[j].edge.TargetID
			}
			return refs[i].edge.ID < refs[j].edge.ID
		})
	}
	return r, nil
}

func polylineLength(geomPts [][2]float64) float64 {
	total := 0.0
	for i := 1; i < len(geomPts); i++ {
		total += geo.Haversine(geomPts[i-1][1], geomPts[i-1][0], geomPts[i][1], geomPts[i][0])
	}
	return total
}

// GetNode returns the node with the given id, if present.
func (r *RoadLayer) GetNode(id optmodel.RoadNodeID) (optmodel.RoadNode, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Nodes returns every node, in insertion order. Used to persist and rebuild
// a RoadLayer without re-reading the source database.
func (r *RoadLayer) Nodes() []optmodel.RoadNode {
	out := make([]optmodel.RoadNode, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.nodes[id])
	}
	return out
}

// Edges returns every edge, in no particular order.
func (r *RoadLayer) Edges() []optmodel.RoadEdge {
	var out []optmodel.RoadEdge
	for _, refs := range r.adjacency {
		for _, ref := range refs {
			out = append(out, ref.edge)
		}
	}
	return out
}

// NearestNode returns the node nearest (lat, lon) by straight-line
// distance. The network is never empty (guaranteed at construction), so
// this always succeeds.
func (r *RoadLayer) NearestNode(lat, lon float64) optmodel.RoadNodeID {
	best := r.order[0]
	bestDist := math.Inf(1)
	for _, id := range r.order {
		n := r.nodes[id]
		d := geo.Haversine(lat, lon, n.Lat, n.Lon)
		if d < bestDist {
			bestDist = d
			best = id
		}
	}
	return best
}

// RoadDistance snaps both endpoints to their nearest node and returns the
// shortest-path distance (meters) between them along with the ordered
// node ids of the path, including both endpoints. Same-node endpoints
// return (0, [that node]). If no path exists, returns (+Inf, nil).
func (r *RoadLayer) RoadDistance(lat1, lon1, lat2, lon2 float64) (float64, []optmodel.RoadNodeID) {
	from := r.NearestNode(lat1, lon1)
	to := r.NearestNode(lat2, lon2)
	if from == to {
		return 0, []optmodel.RoadNodeID{from}
	}
	return r.shortestPath(from, to)
}

type searchItem struct {
	node     optmodel.RoadNodeID
	dist     float64
	path     []optmodel.RoadNodeID
	lastEdge int64
	index    int
}

type priorityQueue []*searchItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	// Deterministic tie-breaking: smaller node id, then smaller edge id.
	if pq[i].node != pq[j].node {
		return pq[i].node < pq[j].node
	}
	return pq[i].lastEdge < pq[j].lastEdge
}
func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}
func (pq *priorityQueue) Push(x any) {
	item := x.(*searchItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// shortestPath runs Dijkstra over geometric edge length, breaking ties by
// smaller node id then smaller edge id, matching the layer's documented
// tie-breaking rule.
func (r *RoadLayer) shortestPath(from, to optmodel.RoadNodeID) (float64, []optmodel.RoadNodeID) {
	best := map[optmodel.RoadNodeID]float64{from: 0}
	pq := &priorityQueue{{node: from, dist: 0, path: []optmodel.RoadNodeID{from}}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*searchItem)
		if cur.node == to {
			return cur.dist, cur.path
		}
		if d, ok := best[cur.node]; ok && cur.dist > d {
			continue
		}
		for _, e := range r.adjacency[cur.node] {
			nd := cur.dist + e.length
			if d, ok := best[e.edge.TargetID]; ok && nd >= d {
				continue
			}
			best[e.edge.TargetID] = nd
			newPath := append(append([]optmodel.RoadNodeID(nil), cur.path...), e.edge.TargetID)
			heap.Push(pq, &searchItem{node: e.edge.TargetID, dist: nd, path: newPath, lastEdge: e.edge.ID})
		}
	}
	return math.Inf(1), nil
}
