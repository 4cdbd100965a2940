// Package responder implements the MTP responder state machine: one
// event-loop goroutine that receives containers and transport signals
// from a mailbox channel, dispatches commands through a fixed operation
// table, and drives the storage engine, device-info provider, property
// registry, and extension chain to produce responses and events
// (spec.md §4.6, §5).
package responder
