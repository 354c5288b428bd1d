// Package watch keeps the primary store in step with its auxiliary
// directory while a process is running.
//
// A Watcher listens for filesystem events on the auxiliary directory,
// debounces them and then runs a synchronization callback. A second callback
// runs on a fixed period, which the CLI uses for backup checks. Both run on
// one goroutine, so the store sees a single writer.
package watch
