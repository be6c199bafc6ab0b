// Package harness runs operation-log scenarios against the reducer and
// the snapshot publisher.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: five_verifiers_can_flag
//	description: "A member with five verifiers may flag"
//	thresholds:
//	  to_verify: 1
//	  to_flag: 5
//	log:
//	  - creator_uid: m1
//	    type: CREATE_MEMBER
//	    data: { username: m1, full_name: "Member One" }
//	  - creator_uid: m2
//	    type: VERIFY
//	    data: { to_uid: m1 }
//	assertions:
//	  - type: is_verified
//	    member: m1
//	  - type: can_flag
//	    member: m1
//	    expect: false
//
// Log entries use the wire format accepted by op.Decode. An entry without
// an id is given "op-N" where N is its 1-based position in the log.
//
// # Assertion Types
//
//   - exists: the member is present in the final state
//   - is_verified, good_standing, can_flag: boolean member predicates
//   - can_create: ability check for op_type and an optional member
//   - missing_member: the ability check for op_type reports a missing member
//   - verified_by_count, flag_count: size of verified_by or open flags
//   - balance: exact decimal balance
//   - dropped: the operation was dropped, optionally with a given code
//
// Boolean assertions default to expect: true.
//
// # Execution
//
// Every scenario is stored in a fresh in-memory store, then folded twice:
// once from scratch and once operation by operation through a Publisher.
// The two states must have the same digest. Assertions run against the
// full fold.
package harness
