package pathfind

import "github.com/Garsondee/Squad-Voyager/internal/geo"

// nodeKey identifies a search node in world space. transit marks an exit
// tile entered from inside its own room.
type nodeKey struct {
	gx, gy  int
	transit bool
}

type node struct {
	key    nodeKey
	pos    geo.Pos
	g, h   float64
	parent *node
	seq    int
	index  int // heap index
}

type openList []*node

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int)       { ol[i], ol[j] = ol[j], ol[i]; ol[i].index = i; ol[j].index = j }
func (ol *openList) Push(x interface{}) { n := x.(*node); n.index = len(*ol); *ol = append(*ol, n) }
func (ol *openList) Pop() interface{} {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

// buildPath walks parents back to the origin, which is left out.
func buildPath(end *node) []geo.Pos {
	var path []geo.Pos
	for n := end; n != nil && n.parent != nil; n = n.parent {
		path = append(path, n.pos)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
