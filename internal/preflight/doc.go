// Package preflight checks that the machine can run mdsearch for a given
// root before anything is indexed.
//
// The checks cover:
//   - The root exists and can be listed
//   - The data directory is writable
//   - Free disk space for the catalog (minimum 50MB)
//   - File descriptor limits for the watcher and socket
//   - The Linux inotify watch limit against the directories under the root
//   - The daemon socket path length
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, preflight.Target{Root: root, DataDir: dataDir})
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
