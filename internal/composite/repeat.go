package composite

import (
	"context"
	"fmt"
	"time"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// Iterator is one named axis of a Repeat's Cartesian product. Order among
// Iterators is significant: it is the order rows are generated in and the
// order their names are tried against FixedArgs for the key-collision check
// (spec.md §4.7).
type Iterator struct {
	Name   string
	Values []any
}

// RowFactory builds one child task from a fully-merged row (this iteration's
// values plus the fixed arguments).
type RowFactory func(row map[string]any) (aqueduct.Task, error)

// RepeatTask is the Go realization of repeater.py's RepeaterTask: its
// requirements are the Cartesian product of Iterators, each row merged with
// FixedArgs and passed through Factory; its artifact is the composite of
// every child's artifact.
type RepeatTask struct {
	aqueduct.BaseTask

	Class     aqueduct.ClassName
	Iterators []Iterator
	FixedArgs map[string]any
	Factory   RowFactory
}

// NewRepeat validates the iterators/fixed-args key disjointness spec.md
// §4.7 requires ("rejects at construction time any key appearing in both
// iterators and fixed_args") and returns the aggregate task.
func NewRepeat(class aqueduct.ClassName, factory RowFactory, iterators []Iterator, fixedArgs map[string]any) (*RepeatTask, error) {
	for _, it := range iterators {
		if _, collides := fixedArgs[it.Name]; collides {
			return nil, fmt.Errorf("composite: key %q is assigned both as an iterator and as a fixed parameter", it.Name)
		}
	}
	return &RepeatTask{Class: class, Iterators: iterators, FixedArgs: fixedArgs, Factory: factory}, nil
}

func (t *RepeatTask) ClassName() aqueduct.ClassName { return t.Class }

func (t *RepeatTask) Args() aqueduct.Args {
	iterators := make([]any, len(t.Iterators))
	for i, it := range t.Iterators {
		iterators[i] = map[string]any{"name": it.Name, "values": it.Values}
	}
	return aqueduct.Args{Keyed: map[string]any{
		"fixed_args": t.FixedArgs,
		"iterators":  iterators,
	}}
}

// rows computes the Cartesian product of t.Iterators, each entry merged with
// FixedArgs, in the same nested-loop order itertools.product uses: the last
// iterator varies fastest.
func (t *RepeatTask) rows() []map[string]any {
	if len(t.Iterators) == 0 {
		row := make(map[string]any, len(t.FixedArgs))
		for k, v := range t.FixedArgs {
			row[k] = v
		}
		return []map[string]any{row}
	}

	rows := []map[string]any{{}}
	for _, it := range t.Iterators {
		next := make([]map[string]any, 0, len(rows)*len(it.Values))
		for _, base := range rows {
			for _, v := range it.Values {
				row := make(map[string]any, len(base)+1)
				for k, bv := range base {
					row[k] = bv
				}
				row[it.Name] = v
				next = append(next, row)
			}
		}
		rows = next
	}

	for _, row := range rows {
		for k, v := range t.FixedArgs {
			row[k] = v
		}
	}
	return rows
}

func (t *RepeatTask) children() ([]aqueduct.Task, error) {
	rows := t.rows()
	children := make([]aqueduct.Task, 0, len(rows))
	for _, row := range rows {
		child, err := t.Factory(row)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func (t *RepeatTask) Requirements(ctx context.Context) (aqueduct.WorkTree, error) {
	children, err := t.children()
	if err != nil {
		return nil, err
	}
	tree := make([]any, len(children))
	for i, c := range children {
		tree[i] = c
	}
	return tree, nil
}

func (t *RepeatTask) Artifact(ctx context.Context) (aqueduct.Artifact, error) {
	children, err := t.children()
	if err != nil {
		return nil, err
	}

	var artifacts []aqueduct.Artifact
	for _, c := range children {
		a, err := c.Artifact(ctx)
		if err != nil {
			return nil, err
		}
		if a != nil {
			artifacts = append(artifacts, a)
		}
	}
	if len(artifacts) == 0 {
		return nil, nil
	}
	return &aqueduct.CompositeArtifact{Children: artifacts}, nil
}

func (t *RepeatTask) UpdatedAt() time.Time { return time.Time{} }

// Run passes the resolved requirements (each child's own result, in row
// order) straight through: a repeat node exists to fan out the Cartesian
// product, not to further combine it, so its own result is simply the list
// a consumer's requirements resolution already substituted in for it.
// (original_source's repeater.py's own run is an unimplemented stub; this
// is DESIGN.md's resolution of that gap into a useful identity.)
func (t *RepeatTask) Run(ctx context.Context, requirements any) (any, error) {
	return requirements, nil
}
