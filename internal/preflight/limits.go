package preflight

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
)

const (
	// MinFileDescriptors is the recommended file descriptor limit.
	MinFileDescriptors = 1024

	// maxSocketPath is the longest unix socket path the kernel accepts,
	// without the trailing NUL.
	maxSocketPathLinux  = 107
	maxSocketPathDarwin = 103
)

// inotifyWatchesFile holds the per-user inotify watch limit on Linux.
var inotifyWatchesFile = "/proc/sys/fs/inotify/max_user_watches"

// CheckFileDescriptors checks the open file limit. A low limit degrades
// watching, so it is reported as a warning.
func (c *Checker) CheckFileDescriptors() CheckResult {
	result := CheckResult{
		Name: "file_descriptors",
	}

	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (recommended: %d)", rLimit.Cur, MinFileDescriptors)
	if rLimit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "Run 'ulimit -n 10240' to increase the limit"
		return result
	}

	result.Status = StatusPass
	return result
}

// CheckWatchLimit compares the number of directories under root with the
// inotify watch limit. fsnotify needs one watch per directory; when the
// limit is too low the watcher falls back to polling.
func (c *Checker) CheckWatchLimit(ctx context.Context, root string) CheckResult {
	result := CheckResult{
		Name: "watch_limit",
	}

	if runtime.GOOS != "linux" {
		result.Status = StatusPass
		result.Message = "not applicable on " + runtime.GOOS
		return result
	}

	data, err := os.ReadFile(inotifyWatchesFile)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot read inotify limit: %v", err)
		return result
	}
	limit, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("cannot parse inotify limit %q", strings.TrimSpace(string(data)))
		return result
	}

	dirs := countDirs(ctx, root)
	result.Message = fmt.Sprintf("%d directories, limit %d", dirs, limit)
	if dirs > limit {
		result.Status = StatusWarn
		result.Details = "The watcher will poll instead. Raise fs.inotify.max_user_watches with sysctl."
		return result
	}

	result.Status = StatusPass
	return result
}

// countDirs counts the directories the watcher would watch: root and
// every non-hidden directory below it.
func countDirs(ctx context.Context, root string) int {
	n := 0
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		n++
		return nil
	})
	return n
}

// CheckSocketPath checks that the daemon socket path fits in a unix
// socket address.
func (c *Checker) CheckSocketPath(path string) CheckResult {
	result := CheckResult{
		Name:     "socket_path",
		Required: true,
		Details:  path,
	}

	maxLen := maxSocketPathLinux
	if runtime.GOOS == "darwin" {
		maxLen = maxSocketPathDarwin
	}
	result.Message = fmt.Sprintf("%d bytes (maximum: %d)", len(path), maxLen)
	if len(path) > maxLen {
		result.Status = StatusFail
		result.Details = "Set server.socket_path or MDSEARCH_SOCKET to a shorter path"
		return result
	}

	result.Status = StatusPass
	return result
}
