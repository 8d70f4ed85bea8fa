// Package domain defines the core entities of the sample analysis agent:
// batches, work items, group results, progress snapshots and the shared
// error taxonomy used to classify failures across the processing pipeline.
package domain
