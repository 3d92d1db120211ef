// Package index implements the substring index over catalog names.
//
// The index is a generalized suffix automaton built over the case-folded
// UTF-8 bytes of every name. Each prefix of each name marks the automaton
// state it ends in with the owning id. The states whose strings occur at a
// given position are exactly the ancestors of that position's state in the
// suffix-link tree, so the ids containing a substring are the marks found in
// the link-tree subtree of the substring's state. Subtrees are laid out as
// contiguous ranges by an Euler tour at build time, which makes a query a walk
// of len(query) transitions followed by a scan of the matching marks.
//
// Matching on bytes is equivalent to matching on runes for valid UTF-8 input.
//
// An Index is immutable after Build and safe for concurrent queries.
package index

import (
	"sort"

	"golang.org/x/text/cases"
)

// Entry is one (id, name) pair to index.
type Entry struct {
	ID   int
	Name string
}

type edge struct {
	b  byte
	to int32
}

type state struct {
	length int32
	link   int32
	edges  []edge
}

// Index answers "which ids have a name containing s".
type Index struct {
	states []state
	root   [256]int32

	// tin/tout give, per state, the half-open Euler range of its link subtree.
	tin  []int32
	tout []int32
	// marks holds owner ids ordered by the tin of their state; markOff[i] is
	// the first mark of the state with tin i.
	marks   []int
	markOff []int32

	entries int
}

// Fold case-folds s the same way names are folded at build time. Folding is
// rune by rune with no context rules, so a folded substring is always a
// substring of the folded whole.
func Fold(s string) string {
	// A Caser is stateful, so each call gets its own.
	return cases.Fold().String(s)
}

// Build indexes entries. Entries with an empty name are skipped. Distinct ids
// may share a name.
func Build(entries []Entry) *Index {
	b := newBuilder(entries)
	n := 0
	for _, e := range entries {
		name := Fold(e.Name)
		if name == "" {
			continue
		}
		last := int32(0)
		for i := 0; i < len(name); i++ {
			last = b.extend(last, name[i])
			b.markState = append(b.markState, last)
			b.markID = append(b.markID, e.ID)
		}
		n++
	}
	return b.finish(n)
}

// Query returns the ids whose name contains s, case-insensitively, in
// ascending order and without duplicates. An empty s matches nothing: callers
// that want "everything" should iterate the catalog instead.
func (x *Index) Query(s string) []int {
	if x == nil || s == "" {
		return nil
	}
	q := Fold(s)
	p := int32(0)
	for i := 0; i < len(q); i++ {
		p = x.next(p, q[i])
		if p < 0 {
			return nil
		}
	}

	marks := x.marks[x.markOff[x.tin[p]]:x.markOff[x.tout[p]]]
	seen := make(map[int]struct{}, len(marks))
	ids := make([]int, 0, len(marks))
	for _, id := range marks {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len is the number of indexed names.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return x.entries
}

// States is the automaton size, useful for diagnostics.
func (x *Index) States() int {
	if x == nil {
		return 0
	}
	return len(x.states)
}

func (x *Index) next(p int32, c byte) int32 {
	if p == 0 {
		return x.root[c]
	}
	for _, e := range x.states[p].edges {
		if e.b == c {
			return e.to
		}
	}
	return -1
}

type builder struct {
	Index
	markState []int32
	markID    []int
}

func newBuilder(entries []Entry) *builder {
	total := 0
	for _, e := range entries {
		total += len(e.Name)
	}
	b := &builder{
		markState: make([]int32, 0, total),
		markID:    make([]int, 0, total),
	}
	b.states = make([]state, 1, 2*total+1)
	b.states[0] = state{link: -1}
	for i := range b.root {
		b.root[i] = -1
	}
	return b
}

func (b *builder) setNext(p int32, c byte, to int32) {
	if p == 0 {
		b.root[c] = to
		return
	}
	edges := b.states[p].edges
	for i := range edges {
		if edges[i].b == c {
			edges[i].to = to
			return
		}
	}
	b.states[p].edges = append(edges, edge{b: c, to: to})
}

func (b *builder) add(length int32) int32 {
	b.states = append(b.states, state{length: length, link: -1})
	return int32(len(b.states) - 1)
}

func (b *builder) clone(q int32, length int32) int32 {
	src := b.states[q]
	id := b.add(length)
	b.states[id].link = src.link
	b.states[id].edges = append([]edge(nil), src.edges...)
	return id
}

// extend appends byte c after the state last and returns the state of the
// extended prefix. It handles the generalized case where the transition
// already exists because an earlier name shares the prefix.
func (b *builder) extend(last int32, c byte) int32 {
	if q := b.next(last, c); q >= 0 {
		if b.states[last].length+1 == b.states[q].length {
			return q
		}
		clone := b.clone(q, b.states[last].length+1)
		for p := last; p >= 0 && b.next(p, c) == q; p = b.states[p].link {
			b.setNext(p, c, clone)
		}
		b.states[q].link = clone
		return clone
	}

	cur := b.add(b.states[last].length + 1)
	p := last
	for p >= 0 && b.next(p, c) < 0 {
		b.setNext(p, c, cur)
		p = b.states[p].link
	}
	if p < 0 {
		b.states[cur].link = 0
		return cur
	}

	q := b.next(p, c)
	if b.states[p].length+1 == b.states[q].length {
		b.states[cur].link = q
		return cur
	}
	clone := b.clone(q, b.states[p].length+1)
	for ; p >= 0 && b.next(p, c) == q; p = b.states[p].link {
		b.setNext(p, c, clone)
	}
	b.states[q].link = clone
	b.states[cur].link = clone
	return cur
}

// finish lays out the suffix-link tree and groups marks by subtree.
func (b *builder) finish(entries int) *Index {
	n := len(b.states)

	// Children of each state in the link tree, CSR style.
	childOff := make([]int32, n+1)
	for s := 1; s < n; s++ {
		childOff[b.states[s].link+1]++
	}
	for i := 1; i <= n; i++ {
		childOff[i] += childOff[i-1]
	}
	children := make([]int32, n)
	fill := append([]int32(nil), childOff[:n]...)
	for s := 1; s < n; s++ {
		parent := b.states[s].link
		children[fill[parent]] = int32(s)
		fill[parent]++
	}

	tin := make([]int32, n)
	tout := make([]int32, n)
	cursor := append([]int32(nil), childOff[:n]...)
	stack := []int32{0}
	clock := int32(0)
	tin[0] = clock
	clock++
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if cursor[top] < childOff[top+1] {
			child := children[cursor[top]]
			cursor[top]++
			tin[child] = clock
			clock++
			stack = append(stack, child)
			continue
		}
		tout[top] = clock
		stack = stack[:len(stack)-1]
	}

	markOff := make([]int32, n+1)
	for _, s := range b.markState {
		markOff[tin[s]+1]++
	}
	for i := 1; i <= n; i++ {
		markOff[i] += markOff[i-1]
	}
	marks := make([]int, len(b.markState))
	pos := append([]int32(nil), markOff[:n]...)
	for i, s := range b.markState {
		t := tin[s]
		marks[pos[t]] = b.markID[i]
		pos[t]++
	}

	return &Index{
		states:  b.states,
		root:    b.root,
		tin:     tin,
		tout:    tout,
		marks:   marks,
		markOff: markOff,
		entries: entries,
	}
}
