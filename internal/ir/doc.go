// Package ir provides the plain data model shared by every rulekit package.
//
// This package contains type definitions, their JSON encoding, and the
// canonical serialization used for content hashes. All other internal
// packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Rules, conditions and actions are immutable once a session starts
//   - Condition and Action are sealed sum types; the JSON "type" field
//     selects the variant and unknown variants decode to UnknownCondition
//     or UnknownAction instead of failing the whole project
//   - Project snapshot JSON uses the authoring tool's camelCase names;
//     engine-produced records (tick results) use snake_case
//   - Time is accumulated seconds supplied by the host, never wall clock
package ir
