// Package memory sets the Go runtime soft memory limit (GOMEMLIMIT) from the
// container memory limit.
//
// Go detects CPU quotas on its own but not memory limits, so a container
// that is close to its limit can be OOM-killed before the garbage collector
// reacts. Call [ConfigureFromEnv] first thing in main.
//
// # Environment Variables
//
//   - GOMEMLIMIT: standard Go variable. When set it wins and nothing is changed.
//   - MEMORY_LIMIT: container memory limit, either in bytes or as a size such
//     as "2GiB". Usually injected with the Kubernetes Downward API.
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, between 0 and
//     1. Defaults to 0.75.
//
// ffmpeg runs as a child process, so its memory counts against the container
// limit but not against the Go heap.
//
// # Kubernetes Configuration
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.6"
package memory
