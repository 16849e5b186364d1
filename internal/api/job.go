package api

import (
	"sort"
	"sync"
	"time"
)

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusSuccess    JobStatus = "success"
	StatusFailed     JobStatus = "failed"
)

type Job struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"` // 0-100
	Message     string    `json:"message"`
	DownloadURL string    `json:"download_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Error       string    `json:"error,omitempty"`
}

// JobManager tracks render jobs in memory. Jobs do not survive a restart;
// the final video file is the only persistent artifact.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

func (jm *JobManager) CreateJob(id, topic string) *Job {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	job := &Job{
		ID:        id,
		Topic:     topic,
		Status:    StatusPending,
		Progress:  0,
		Message:   "Queued",
		CreatedAt: time.Now(),
	}
	jm.jobs[id] = job
	return job
}

func (jm *JobManager) GetJob(id string) (*Job, bool) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	job, ok := jm.jobs[id]
	return job, ok
}

func (jm *JobManager) GetAllJobs() []*Job {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	list := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		list = append(list, job)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (jm *JobManager) UpdateProgress(id string, progress int, message string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if job, ok := jm.jobs[id]; ok {
		job.Status = StatusProcessing
		job.Progress = progress
		job.Message = message
	}
}

func (jm *JobManager) CompleteJob(id string, downloadURL string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if job, ok := jm.jobs[id]; ok {
		job.Status = StatusSuccess
		job.Progress = 100
		job.Message = "Completed"
		job.DownloadURL = downloadURL
	}
}

func (jm *JobManager) FailJob(id string, errStr string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if job, ok := jm.jobs[id]; ok {
		job.Status = StatusFailed
		job.Message = "Failed"
		job.Error = errStr
	}
}
