package app

import "time"

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IngestRun tracks one `eivu ingest` invocation. It lives in memory only;
// the log lines carry its ID.
type IngestRun struct {
	ID     string
	Root   string
	Bucket string
	Status string // StatusSuccess unless some file failed

	Completed  []string // ids of files that reached completed
	Duplicates int
	Failed     int
	Bytes      int64
}

// NewIngestRun creates a run whose ID is derived from start.
func NewIngestRun(root, bucket string, start time.Time) *IngestRun {
	return &IngestRun{
		ID:     start.UTC().Format("20060102T150405Z"),
		Root:   root,
		Bucket: bucket,
		Status: StatusSuccess,
	}
}

func (r *IngestRun) recordCompleted(fileID string, size int64) {
	r.Completed = append(r.Completed, fileID)
	r.Bytes += size
}

func (r *IngestRun) recordDuplicate() {
	r.Duplicates++
}

func (r *IngestRun) recordFailure() {
	r.Failed++
	r.Status = StatusError
}

// Total returns how many files the run looked at.
func (r *IngestRun) Total() int {
	return len(r.Completed) + r.Duplicates + r.Failed
}
