// Package spatial implements a chunk-independent coordinate -> block id index
// used for fast point lookups such as raycasts.
package spatial

const (
	defaultCapacity = 64
	none            = -1
)

// Grid is an open-addressing hash table from integer voxel coordinates to
// block ids. Entries live in parallel dense arrays; the bucket table points
// at the first entry of each collision chain and next links the rest.
type Grid struct {
	xs, ys, zs []int32
	ids        []uint16
	next       []int32
	table      []int32
	count      int
}

// NewGrid returns an empty grid with room for capacity entries before the
// first growth.
func NewGrid(capacity int) *Grid {
	g := &Grid{}
	g.allocate(max(capacity, 1))
	return g
}

// Hash mixes a coordinate triple into an unsigned 32-bit value.
func Hash(x, y, z int32) uint32 {
	return uint32(x)*73856093 ^ uint32(y)*19349663 ^ uint32(z)*83492791
}

func (g *Grid) allocate(capacity int) {
	g.xs = make([]int32, capacity)
	g.ys = make([]int32, capacity)
	g.zs = make([]int32, capacity)
	g.ids = make([]uint16, capacity)
	g.next = make([]int32, capacity)
	g.table = make([]int32, tableSize(capacity))
	for i := range g.table {
		g.table[i] = none
	}
	g.count = 0
}

func tableSize(capacity int) int {
	return max(capacity+capacity/2, 1)
}

func (g *Grid) bucket(x, y, z int32) int {
	return int(Hash(x, y, z) % uint32(len(g.table)))
}

// Len returns the number of live entries.
func (g *Grid) Len() int { return g.count }

// Cap returns the dense store capacity.
func (g *Grid) Cap() int { return len(g.ids) }

func (g *Grid) find(x, y, z int32) (idx, prev int32) {
	prev = none
	for i := g.table[g.bucket(x, y, z)]; i != none; i = g.next[i] {
		if g.xs[i] == x && g.ys[i] == y && g.zs[i] == z {
			return i, prev
		}
		prev = i
	}
	return none, none
}

// Get returns the id stored at the coordinate; ok is false when absent.
func (g *Grid) Get(x, y, z int32) (id uint16, ok bool) {
	i, _ := g.find(x, y, z)
	if i == none {
		return 0, false
	}
	return g.ids[i], true
}

// Set inserts or updates an entry. Setting id 0 removes the coordinate.
func (g *Grid) Set(x, y, z int32, id uint16) {
	if id == 0 {
		g.Remove(x, y, z)
		return
	}
	if i, _ := g.find(x, y, z); i != none {
		g.ids[i] = id
		return
	}
	if g.count == len(g.ids) {
		g.grow()
	}
	i := int32(g.count)
	g.xs[i], g.ys[i], g.zs[i], g.ids[i] = x, y, z, id
	b := g.bucket(x, y, z)
	g.next[i] = g.table[b]
	g.table[b] = i
	g.count++
}

// Remove deletes the coordinate and keeps storage dense by moving the last
// live entry into the freed slot.
func (g *Grid) Remove(x, y, z int32) bool {
	i, prev := g.find(x, y, z)
	if i == none {
		return false
	}
	g.unlink(g.bucket(x, y, z), i, prev)

	last := int32(g.count - 1)
	if i != last {
		lb := g.bucket(g.xs[last], g.ys[last], g.zs[last])
		if g.table[lb] == last {
			g.table[lb] = i
		} else {
			p := g.table[lb]
			for g.next[p] != last {
				p = g.next[p]
			}
			g.next[p] = i
		}
		g.xs[i], g.ys[i], g.zs[i] = g.xs[last], g.ys[last], g.zs[last]
		g.ids[i] = g.ids[last]
		g.next[i] = g.next[last]
	}
	g.ids[last] = 0
	g.next[last] = none
	g.count--
	return true
}

func (g *Grid) unlink(b int, i, prev int32) {
	if prev == none {
		g.table[b] = g.next[i]
	} else {
		g.next[prev] = g.next[i]
	}
}

func (g *Grid) grow() {
	xs, ys, zs, ids := g.xs[:g.count], g.ys[:g.count], g.zs[:g.count], g.ids[:g.count]
	g.allocate(max(2*len(g.ids), defaultCapacity))
	for i := range ids {
		g.Set(xs[i], ys[i], zs[i], ids[i])
	}
}

// Reset drops every entry and shrinks back to the default capacity.
func (g *Grid) Reset() {
	g.allocate(defaultCapacity)
}

// Each calls fn for every live entry in storage order.
func (g *Grid) Each(fn func(x, y, z int32, id uint16)) {
	for i := 0; i < g.count; i++ {
		fn(g.xs[i], g.ys[i], g.zs[i], g.ids[i])
	}
}

// chainLength reports the length of the chain that holds the coordinate's
// bucket; used by tests to check growth keeps chains short.
func (g *Grid) chainLength(x, y, z int32) int {
	n := 0
	for i := g.table[g.bucket(x, y, z)]; i != none; i = g.next[i] {
		n++
	}
	return n
}
