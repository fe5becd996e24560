// Package ingest turns an incoming request into a local input file.
//
// Two sources are supported: a multipart upload, where the first file part in
// the body is accepted whatever its field name, and a remote URL fetched over
// HTTP or HTTPS. Every file written here is registered with the caller's
// [workspace.Job] so it is removed with the rest of the job's files.
package ingest
