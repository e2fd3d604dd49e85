// Package scheduler runs the posting loop.
//
// One goroutine owns everything: it acquires the singleton lock at
// startup, polls the window resolver, dispatches at most one upload per
// tick, and records consumed window slots durably before the media list
// is updated. Upload failures are contained to their item; corrupt
// persisted state stops the loop instead of risking duplicate posts.
package scheduler
