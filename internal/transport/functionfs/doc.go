// Package functionfs drives a USB FunctionFS gadget (spec.md §4.5): it
// writes the descriptor and strings blocks to ep0, then runs four
// goroutines standing in for the original transport's four cooperating OS
// threads — a control reader (ep0), a bulk reader (ep2), a bulk writer
// (ep1), and an interrupt writer (ep3).
package functionfs
