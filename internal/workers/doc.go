/*
Package workers sizes concurrency limits from the CPUs available to the
process.

runtime.NumCPU reports the host CPU count even when a container quota
allows far fewer. GOMAXPROCS follows the quota, so a pod limited to 2 cores
on a 64-core node gets 2 here rather than 64:

	workers.Available() // 2
	workers.ForCPU(0)   // 2
	workers.Count(1.5, 0) // 3

ffmpeg encodes are CPU-bound, so the service can shed load above a cap on
concurrent tool processes, read with [ParseLimit] from MAX_CONCURRENT_TOOLS:

	limit, err := workers.ParseLimit("auto") // one process per CPU
	limit, err := workers.ParseLimit("4")    // at most four
	limit, err := workers.ParseLimit("")     // unlimited (0)
*/
package workers
