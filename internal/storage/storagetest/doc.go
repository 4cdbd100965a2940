// Package storagetest provides a conformance test suite for the MTP
// storage engine's object-graph invariants (spec.md §3, §4.3). It
// exercises a *storage.Storage the way the responder does, so the
// engine's create/read/write/delete/copy/move surface is verified
// independently of the responder and transport layers that sit above
// it.
//
// Usage:
//
//	func TestConformance(t *testing.T) {
//	    storagetest.RunConformanceSuite(t, storagetest.NewFilesystemFactory())
//	}
package storagetest
