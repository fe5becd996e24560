// Package transcoder adapts the ffmpeg and ffprobe command-line tools to
// typed Go calls.
//
// It supports:
//   - Probing a file for container and stream metadata ([Transcoder.Probe])
//   - Converting to a target container with optional bitrates and trimming
//     ([Transcoder.Transcode])
//   - Capturing a single 640px-wide JPEG frame ([Transcoder.ExtractThumbnail])
//   - Named quality tiers ([LookupPreset]) with a permissive fallback to medium
//
// Every call blocks until the tool exits. A failure reported by the tool is a
// [*ToolError]; a binary that cannot be started wraps [ErrToolUnavailable].
// The package never deletes input or output files; callers own them.
//
// Both binaries must be installed and reachable via PATH or configured
// explicitly through [Options].
package transcoder
