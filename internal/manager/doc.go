// Package manager owns the lifecycle of loaded model resources. It is
// structured into small files by concern:
//
//   - manager.go: Manager type, constructor, catalog lookups, active pointer.
//   - config.go: Config and package defaults.
//   - types.go: LoadedModel and state.
//   - backend.go: Backend/Model interfaces implemented by inference runtimes.
//   - load.go: GetOrLoad with per-name single-flight.
//   - ops.go: SwitchActive.
//   - lease.go: Acquire/AcquireActive and the Lease guard.
//   - admission.go: per-model generation slots and wait queue.
//   - unload.go: guarded Unload and Close.
//   - preload.go: concurrent startup loads.
//   - errors.go, events.go, metrics.go, status_report.go.
//
// Concurrency model:
//
// The loaded set and the active pointer change only under mu. Reads of the
// loaded set are lock-free. SwitchActive and Unload are serialized by opMu;
// loads of unrelated names never wait on it. In-flight counts are per-name
// atomics that Acquire and Lease.Release update without taking mu. Unload
// marks the model closing before reading the count, and Acquire increments the
// count before checking the mark, so a model is never destroyed under a lease.
// Close uses the same mark and then waits for each count to drain before
// freeing.
//
// Build tags and runtimes:
//
//   - In-process llama (go-llama.cpp) is enabled with `-tags=llama`.
//     Files: backend_llama.go, llama_cgo.go.
//     Without the tag backend_llama_stub.go reports the dependency as
//     unavailable so default builds stay CGO-free.
package manager
