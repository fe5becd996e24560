// Package workspace owns the service's working directory and the temporary
// files each request creates inside it.
//
// A [Job] is created at the start of every media request and gets its own
// directory, <workdir>/<jobID>. Every path the job hands out through
// [Job.InputPath], [Job.DownloadPath] or [Job.OutputPath] lives there, and
// [Job.Cleanup] removes the directory exactly once, whatever the outcome of
// the request. Side files a muxer writes next to its output (HLS segments,
// image sequences) are removed along with it. Removal failures are logged and counted
// but never returned, so cleanup cannot mask the result being sent.
//
// File names combine a millisecond timestamp with a random job identifier,
// so concurrent jobs never share a path even within the same millisecond.
//
// [Workspace.Sweep] removes files and job directories abandoned by a crashed
// process; the janitor started with [Workspace.StartJanitor] runs it
// periodically.
package workspace
