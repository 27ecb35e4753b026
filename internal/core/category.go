// Package core holds the expenditure category forest and the logic that
// aggregates it into display tables.
package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("category not found")
	ErrAmbiguousName    = fmt.Errorf("ambiguous category name: %w", ErrNotFound)
	ErrDuplicateName    = errors.New("duplicate category name")
	ErrSelfParent       = errors.New("category cannot be its own child")
	ErrAlreadyAttached  = errors.New("category already has a parent")
	ErrDepthMismatch    = errors.New("child depth must be parent depth + 1")
	ErrUnknownCategory  = errors.New("unknown category id")
	ErrMissingAgeGroup  = errors.New("missing age group")
	ErrEmptyName        = errors.New("empty category name")
	ErrNegativeDepth    = errors.New("negative category depth")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrEmptyForest      = errors.New("forest has no root categories")
	ErrInvalidSelection = errors.New("selection is not part of the displayed table")
)

// NoParent marks a root category.
const NoParent CategoryID = -1

// CategoryID indexes a category inside its Forest.
type CategoryID int

// Category is a node of the expenditure forest. Parent and Children are
// arena indices; the forest owns every node.
type Category struct {
	ID       CategoryID
	Name     string
	Parent   CategoryID
	Children []CategoryID
	Depth    int
	Values   map[string]Money
}

// HasChildren reports whether the category can be drilled into.
func (c *Category) HasChildren() bool {
	return len(c.Children) > 0
}

// ValueFor returns the amount recorded for the given age group label.
func (c *Category) ValueFor(ageGroup string) (Money, error) {
	v, ok := c.Values[ageGroup]
	if !ok {
		return Money{}, fmt.Errorf("%w %q for category %q", ErrMissingAgeGroup, ageGroup, c.Name)
	}
	return v, nil
}

// Forest is an arena of categories. It is built once by a loader and must
// not be mutated after it has been handed to readers.
type Forest struct {
	nodes  []*Category
	byName map[string][]CategoryID
}

func NewForest() *Forest {
	return &Forest{byName: make(map[string][]CategoryID)}
}

// Add creates a detached category. Names are unique across the forest.
func (f *Forest) Add(name string, depth int, values map[string]Money) (CategoryID, error) {
	if name == "" {
		return NoParent, ErrEmptyName
	}
	if depth < 0 {
		return NoParent, fmt.Errorf("%w: %q at depth %d", ErrNegativeDepth, name, depth)
	}
	if len(f.byName[name]) > 0 {
		return NoParent, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	vals := make(map[string]Money, len(values))
	for k, v := range values {
		if v.Cents < 0 {
			return NoParent, fmt.Errorf("%w: %q %s=%d", ErrNegativeAmount, name, k, v.Cents)
		}
		vals[k] = v
	}
	id := CategoryID(len(f.nodes))
	f.nodes = append(f.nodes, &Category{
		ID:     id,
		Name:   name,
		Parent: NoParent,
		Depth:  depth,
		Values: vals,
	})
	f.byName[name] = append(f.byName[name], id)
	return id, nil
}

// AttachChild appends child to parent's children and points child back at
// parent. Nothing is mutated when an error is returned.
func (f *Forest) AttachChild(parent, child CategoryID) error {
	p, err := f.Get(parent)
	if err != nil {
		return err
	}
	c, err := f.Get(child)
	if err != nil {
		return err
	}
	if parent == child || p.Name == c.Name {
		return fmt.Errorf("%w: %q", ErrSelfParent, p.Name)
	}
	if c.Parent != NoParent {
		return fmt.Errorf("%w: %q", ErrAlreadyAttached, c.Name)
	}
	if c.Depth != p.Depth+1 {
		return fmt.Errorf("%w: %q (depth %d) under %q (depth %d)", ErrDepthMismatch, c.Name, c.Depth, p.Name, p.Depth)
	}
	p.Children = append(p.Children, child)
	c.Parent = parent
	return nil
}

// Get returns the category with the given id.
func (f *Forest) Get(id CategoryID) (*Category, error) {
	if id < 0 || int(id) >= len(f.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, id)
	}
	return f.nodes[id], nil
}

// FindByLevel returns every category at the given depth. The order is the
// insertion order, callers sort through BuildTable.
func (f *Forest) FindByLevel(level int) []*Category {
	var out []*Category
	for _, n := range f.nodes {
		if n.Depth == level {
			out = append(out, n)
		}
	}
	return out
}

// FindByName returns the unique category with that name.
func (f *Forest) FindByName(name string) (*Category, error) {
	ids := f.byName[name]
	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	case 1:
		return f.nodes[ids[0]], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d categories", ErrAmbiguousName, name, len(ids))
	}
}

// Children resolves the children of c in their stored order.
func (f *Forest) Children(c *Category) []*Category {
	out := make([]*Category, 0, len(c.Children))
	for _, id := range c.Children {
		out = append(out, f.nodes[id])
	}
	return out
}

// Parent returns the parent of c, if any.
func (f *Forest) Parent(c *Category) (*Category, bool) {
	if c.Parent == NoParent {
		return nil, false
	}
	return f.nodes[c.Parent], true
}

// TopLevelAncestor walks the parent links up to the root of c's tree.
func (f *Forest) TopLevelAncestor(c *Category) *Category {
	cur := c
	for cur.Parent != NoParent {
		cur = f.nodes[cur.Parent]
	}
	return cur
}

// Lineage returns the names from c's top-level ancestor down to c.
func (f *Forest) Lineage(c *Category) []string {
	names := []string{c.Name}
	for cur, ok := f.Parent(c); ok; cur, ok = f.Parent(cur) {
		names = append(names, cur.Name)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return names
}

// Roots is FindByLevel(0).
func (f *Forest) Roots() []*Category {
	return f.FindByLevel(0)
}

// All returns every category in insertion order.
func (f *Forest) All() []*Category {
	return append([]*Category(nil), f.nodes...)
}

func (f *Forest) Len() int {
	return len(f.nodes)
}

// Record is one flat row as a loader reads it: pre-order, with an explicit
// level.
type Record struct {
	Name   string
	Level  int
	Values map[string]Money
}

// BuildForest wires pre-ordered records into a forest. Each record is
// attached to the closest preceding record one level above it; a record
// that skips a level is rejected.
func BuildForest(records []Record) (*Forest, error) {
	f := NewForest()
	// stack[d] is the most recent category seen at depth d
	var stack []CategoryID
	for i, r := range records {
		if r.Level > len(stack) {
			return nil, fmt.Errorf("record %d %q: %w (level %d after level %d)", i, r.Name, ErrDepthMismatch, r.Level, len(stack)-1)
		}
		id, err := f.Add(r.Name, r.Level, r.Values)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		stack = stack[:r.Level]
		if r.Level > 0 {
			if err := f.AttachChild(stack[r.Level-1], id); err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
		}
		stack = append(stack, id)
	}
	if len(f.Roots()) == 0 {
		return nil, ErrEmptyForest
	}
	return f, nil
}

// Records flattens the forest back into pre-ordered records, the inverse
// of BuildForest.
func (f *Forest) Records() []Record {
	out := make([]Record, 0, len(f.nodes))
	var walk func(c *Category)
	walk = func(c *Category) {
		vals := make(map[string]Money, len(c.Values))
		for k, v := range c.Values {
			vals[k] = v
		}
		out = append(out, Record{Name: c.Name, Level: c.Depth, Values: vals})
		for _, child := range f.Children(c) {
			walk(child)
		}
	}
	for _, r := range f.Roots() {
		walk(r)
	}
	return out
}
