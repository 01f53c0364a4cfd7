package judge

import (
	"encoding/json"
	"strconv"

	"github.com/Divy1030/duelcore/internal/domain"
)

// JobFields is the Redis hash encoding of a domain.Job: HSET only accepts
// string values, so every numeric and nested field round-trips through a
// string form here.
type JobFields map[string]string

// EncodeJob converts a domain.Job into the Redis hash field set both the
// enqueueing client and the worker pool write with HSET.
func EncodeJob(j domain.Job) (JobFields, error) {
	fields := JobFields{
		"jobId":    j.JobID,
		"mode":     string(j.Mode),
		"language": string(j.Language),
		"code":     j.Code,
		"status":   string(j.Status),
		"score":    strconv.Itoa(j.Score),
		"passed":   strconv.Itoa(j.Passed),
		"total":    strconv.Itoa(j.Total),
	}
	if j.UserID != "" {
		fields["userId"] = j.UserID
	}
	if j.ProblemID != "" {
		fields["problemId"] = j.ProblemID
	}
	if j.Persisted {
		fields["persisted"] = "true"
	} else {
		fields["persisted"] = "false"
	}
	if len(j.TestCases) > 0 {
		b, err := json.Marshal(j.TestCases)
		if err != nil {
			return nil, err
		}
		fields["testCases"] = string(b)
	}
	if len(j.Results) > 0 {
		b, err := json.Marshal(j.Results)
		if err != nil {
			return nil, err
		}
		fields["results"] = string(b)
	}
	return fields, nil
}

// DecodeJob coerces a Redis hash's string fields back into a domain.Job,
// the inverse of EncodeJob.
func DecodeJob(raw map[string]string) (domain.Job, error) {
	j := domain.Job{
		JobID:     raw["jobId"],
		Mode:      domain.JobMode(raw["mode"]),
		Language:  domain.JudgeLanguage(raw["language"]),
		Code:      raw["code"],
		UserID:    raw["userId"],
		ProblemID: raw["problemId"],
		Status:    domain.JobStatus(raw["status"]),
		Persisted: raw["persisted"] == "true",
	}
	j.Score, _ = strconv.Atoi(raw["score"])
	j.Passed, _ = strconv.Atoi(raw["passed"])
	j.Total, _ = strconv.Atoi(raw["total"])

	if raw["testCases"] != "" {
		if err := json.Unmarshal([]byte(raw["testCases"]), &j.TestCases); err != nil {
			return domain.Job{}, err
		}
	}
	if raw["results"] != "" {
		if err := json.Unmarshal([]byte(raw["results"]), &j.Results); err != nil {
			return domain.Job{}, err
		}
	}
	return j, nil
}
