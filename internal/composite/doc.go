// Package composite implements spec.md §4.7's two combinators over task
// descriptors: Apply wraps a task's result with a pure function without
// disturbing its requirements, and Repeat builds an aggregate task whose
// requirements are the Cartesian product of a set of named iterators mapped
// through a per-row task constructor.
//
// Grounded on original_source/src/aqueduct/task/apply.py's instance-wrapping
// branch (TaskWithApply; the class-wrapping branch has no Go equivalent,
// since Go has no runtime class synthesis) and
// original_source/src/aqueduct/task/repeater.py's RepeaterTask.
package composite
