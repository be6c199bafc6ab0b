// Package member holds the derived, immutable view of the trust network:
// individual members, the folded State, and published Snapshots.
//
// Nothing in this package decides what an operation means; that is the
// reducer's job. Values here only offer copy-returning transitions so the
// reducer can never alias a published snapshot.
package member
