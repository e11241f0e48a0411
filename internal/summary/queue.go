package summary

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/peterbourgon/diskv/v3"
)

const queueKey = "nuuko_summary_queue"

// QueuedJob is one deferred generation request. Only the request parameters
// are persisted; entries are re-read from the store at flush time so a job
// always summarizes current data.
type QueuedJob struct {
	ID         string     `json:"id"`
	CreatedAt  time.Time  `json:"createdAt"`
	Cadence    string     `json:"cadence"`
	RangeStart *time.Time `json:"rangeStart,omitempty"`
	RangeEnd   *time.Time `json:"rangeEnd,omitempty"`
}

// Queue is a persisted FIFO of deferred jobs. Progress is written after
// every mutation so a restart resumes exactly where it left off.
type Queue struct {
	mu   sync.Mutex
	kv   *diskv.Diskv
	jobs []QueuedJob
}

// NewQueue loads any persisted jobs from dir.
func NewQueue(dir string) (*Queue, error) {
	q := &Queue{kv: diskv.New(diskv.Options{
		BasePath:     dir,
		CacheSizeMax: 256 * 1024,
	})}
	if q.kv.Has(queueKey) {
		data, err := q.kv.Read(queueKey)
		if err != nil {
			return nil, fmt.Errorf("read queue: %w", err)
		}
		if err := json.Unmarshal(data, &q.jobs); err != nil {
			return nil, fmt.Errorf("decode queue: %w", err)
		}
	}
	return q, nil
}

func (q *Queue) persistLocked() error {
	data, err := json.Marshal(q.jobs)
	if err != nil {
		return err
	}
	return q.kv.Write(queueKey, data)
}

// Enqueue appends a job at the tail.
func (q *Queue) Enqueue(job QueuedJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return q.persistLocked()
}

// Dequeue pops the head job. ok is false when the queue is empty.
func (q *Queue) Dequeue() (QueuedJob, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return QueuedJob{}, false, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, true, q.persistLocked()
}

// Requeue puts a failed job back at the head, preserving FIFO order for
// everything behind it.
func (q *Queue) Requeue(job QueuedJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append([]QueuedJob{job}, q.jobs...)
	return q.persistLocked()
}

// Len reports the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
