package domain

// JobMode distinguishes a scratch "run" from a graded "submit".
type JobMode string

const (
	JobModeRun    JobMode = "run"
	JobModeSubmit JobMode = "submit"
)

// JobStatus is the lifecycle state of a judge queue entry.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// JobTestCaseResult is one per-test-case outcome written back by a worker.
type JobTestCaseResult struct {
	Input          string         `json:"input"`
	ExpectedOutput string         `json:"expectedOutput"`
	ActualOutput   string         `json:"actualOutput"`
	Status         TestCaseStatus `json:"status"`
}

// Job is a code-execution request tracked in the shared cache for the
// lifetime of its TTL.
type Job struct {
	JobID     string              `json:"jobId"`
	Mode      JobMode             `json:"mode"`
	Language  JudgeLanguage       `json:"language"`
	Code      string              `json:"code"`
	UserID    string              `json:"userId,omitempty"`
	ProblemID string              `json:"problemId,omitempty"`
	TestCases []TestCase          `json:"testCases,omitempty"`
	Status    JobStatus           `json:"status"`
	Score     int                 `json:"score"`
	Passed    int                 `json:"passed"`
	Total     int                 `json:"total"`
	Results   []JobTestCaseResult `json:"results,omitempty"`
	Persisted bool                `json:"persisted"`
}
