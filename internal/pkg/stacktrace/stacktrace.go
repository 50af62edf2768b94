// Package stacktrace condenses raw goroutine stacks for log output.
package stacktrace

import "strings"

// InternalPaths extracts the internal/ source locations from a raw
// stack trace, one "internal/<pkg>/<file>.go:<line>" entry per frame.
// Frames outside the application tree are dropped.
func InternalPaths(stack []byte) []string {
	var paths []string

	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)

		idx := strings.Index(line, "/internal/")
		if idx == -1 || !strings.Contains(line, ".go:") {
			continue
		}

		frame := line[idx+1:]
		if end := strings.IndexByte(frame, ' '); end != -1 {
			frame = frame[:end]
		}
		paths = append(paths, frame)
	}

	return paths
}
