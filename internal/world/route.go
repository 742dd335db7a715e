package world

import (
	"container/heap"
	"math"
)

type roomNode struct {
	room  string
	cost  float64
	seq   int
	index int // heap index
}

type roomQueue []*roomNode

func (q roomQueue) Len() int { return len(q) }
func (q roomQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].seq < q[j].seq
}
func (q roomQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i]; q[i].index = i; q[j].index = j }
func (q *roomQueue) Push(x interface{}) { n := x.(*roomNode); n.index = len(*q); *q = append(*q, n) }
func (q *roomQueue) Pop() interface{} {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*q = old[:len(old)-1]
	return n
}

// FindRoute runs Dijkstra over the room adjacency graph. The returned slice
// lists the rooms to pass through after from, ending with to. ok is false
// when to cannot be reached at finite cost.
func (m *Map) FindRoute(from, to string, cost RouteCost) ([]string, bool) {
	if !m.HasRoom(from) || !m.HasRoom(to) {
		return nil, false
	}
	if from == to {
		return []string{}, true
	}

	dist := map[string]float64{from: 0}
	parent := map[string]string{}
	done := map[string]bool{}
	seq := 0
	q := &roomQueue{{room: from}}
	heap.Init(q)

	for q.Len() > 0 {
		cur := heap.Pop(q).(*roomNode)
		if done[cur.room] {
			continue
		}
		done[cur.room] = true
		if cur.room == to {
			break
		}
		exits := m.Exits(cur.room)
		for _, d := range exitOrder {
			next, ok := exits[d]
			if !ok || done[next] {
				continue
			}
			c := 1.0
			if cost != nil {
				c = cost(next, cur.room)
			}
			if math.IsInf(c, 1) || math.IsNaN(c) || c < 0 {
				continue
			}
			nd := cur.cost + c
			if prev, ok := dist[next]; ok && nd >= prev {
				continue
			}
			dist[next] = nd
			parent[next] = cur.room
			seq++
			heap.Push(q, &roomNode{room: next, cost: nd, seq: seq})
		}
	}

	if !done[to] {
		return nil, false
	}
	var rooms []string
	for r := to; r != from; r = parent[r] {
		rooms = append(rooms, r)
	}
	for i, j := 0, len(rooms)-1; i < j; i, j = i+1, j-1 {
		rooms[i], rooms[j] = rooms[j], rooms[i]
	}
	return rooms, true
}
