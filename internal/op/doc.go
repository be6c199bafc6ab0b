// Package op defines the operation log record consumed by the trust network
// state engine.
//
// An Operation is immutable once appended to the log. The set of operation
// types is closed: Types lists every recognized tag, and tags outside that
// set decode to an Unknown payload instead of failing so that older readers
// keep working against newer logs.
//
// Key design constraints:
//   - Ordering is the position in the log (Seq / slice order), never CreatedAt
//   - Payloads are typed per operation type; amounts stay decimal strings
//   - All JSON tags use snake_case to match the persisted wire shape
//   - Digests use canonical JSON (sorted keys, NFC strings, no floats)
package op
