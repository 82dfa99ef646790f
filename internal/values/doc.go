// Package values implements the Value Store: the named counters and flags
// shared by every rule in a play session.
//
// Names resolve against the authored name first and the id second, so
// conditions written against either keep working. Counters stay clamped to
// their bounds after every mutation; arithmetic that leaves the range of
// exactly representable integers is clamped and reported as an overflow.
//
// A Store is owned by one session and is not safe for concurrent use.
package values
