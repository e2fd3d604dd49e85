// Package schedule holds the validated posting schedule and the window
// resolver.
//
// A schedule is a list of daily time windows ("13:00 for 2 hours, at most
// 2 posts"). The resolver answers one question: given the current time and
// the persisted per-occurrence counters, which window (if any) may run a
// task right now. Resolution is pure; all writes stay in the scheduler
// loop and the store.
package schedule
