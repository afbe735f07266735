// Package stacktrace condenses goroutine dumps into the frames that belong to this module.
package stacktrace

import "strings"

const internalMarker = "/internal/"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of the
// dump that points inside an internal package. Frames of the stacktrace
// package itself are skipped.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)
		idx := strings.Index(line, internalMarker)
		if idx == -1 || !strings.Contains(line, ".go:") {
			continue
		}

		frame := line[idx+1:]
		if sp := strings.IndexByte(frame, ' '); sp != -1 {
			frame = frame[:sp]
		}
		if strings.HasPrefix(frame, "internal/pkg/stacktrace/") {
			continue
		}
		paths = append(paths, frame)
	}
	return paths
}
