// Package handlers provides the HTTP request handlers for the ffmpeg
// microservice.
//
// It includes handlers for:
//   - Probing uploaded media for metadata
//   - Converting uploaded or remote video to another container
//   - Extracting a JPEG thumbnail from uploaded video
//   - Converting uploaded audio
//   - Health, liveness, readiness and version information
//
// Every media request runs as one [workspace.Job]: the input is resolved to a
// local file, the tool runs, the result is read into memory and all temporary
// files are removed before the JSON response is written. Binary results are
// returned base64-encoded in the response body.
package handlers
