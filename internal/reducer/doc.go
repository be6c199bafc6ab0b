// Package reducer folds the operation log into member state.
//
// The fold is a pure function of the log: the same operations in the same
// slice order always produce the same State, and folding one more
// operation into a previous result equals folding the longer log from
// scratch:
//
//	ApplyOne(Reduce(L), o) == Reduce(append(L, o))
//
// Operations that cannot be applied (unknown type, missing member, bad
// payload, violated precondition) are dropped with a DropError and a
// warning. A drop never aborts the fold.
//
// Dispatch is a table keyed by op.Type. The table must cover every type in
// op.Types(); reducer_test.go enforces this.
package reducer
