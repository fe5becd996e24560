// Package logging provides a small leveled logger for the ffmpeg microservice.
//
// Supported levels:
//   - DEBUG: argument lists passed to ffmpeg, per-part upload details
//   - INFO: lifecycle and per-job outcomes
//   - WARN: recoverable problems such as failed temp-file removal
//   - ERROR: tool and download failures
//   - FATAL: startup errors that terminate the process
//
// The level comes from DEBUG=true or LOG_LEVEL and can be overridden at
// runtime with [SetLevel].
package logging
