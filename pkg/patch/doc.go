// Package patch defines the capability contract of the shared patch registry.
//
// Patch and PatchSet are implemented by the canonical store and by every
// adapter that forwards to a store created by another copy of this code. The
// package also holds the ordering model applied whenever a list is read and
// the error values shared by all implementations.
//
// # Ordering
//
// Records run by priority, highest first. Records with equal priority run in
// insertion order, which is captured by the per-list index assigned when the
// record was added. The before and after hints are stored and exposed but do
// not take part in ordering.
package patch
