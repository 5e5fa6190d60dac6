package artjob

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/atelier/internal/model"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		want     time.Duration
	}{
		{"1回目の失敗は1分", 1, 1 * time.Minute},
		{"2回目の失敗は2分", 2, 2 * time.Minute},
		{"3回目の失敗は4分", 3, 4 * time.Minute},
		{"4回目の失敗は8分", 4, 8 * time.Minute},
		{"上限は1時間", 10, 1 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateBackoff(tt.attempts); got != tt.want {
				t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.attempts, got, tt.want)
			}
		})
	}
}

func TestApplyFailure_RequeuesWithBackoff(t *testing.T) {
	job := &model.ArtJob{
		ID:     "job-1",
		Status: model.ArtJobStatusRunning,
	}
	before := time.Now()

	ApplyFailure(job, "timeout", DefaultMaxAttempts)

	if job.Status != model.ArtJobStatusQueued {
		t.Errorf("Status = %q, want queued", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", job.Attempts)
	}
	if job.LastError != "timeout" {
		t.Errorf("LastError = %q, want timeout", job.LastError)
	}
	wantNext := before.Add(1 * time.Minute)
	if job.NextAttemptAt.Before(wantNext) || job.NextAttemptAt.After(wantNext.Add(time.Second)) {
		t.Errorf("NextAttemptAt = %v, want ~%v", job.NextAttemptAt, wantNext)
	}
}

func TestApplyFailure_MaxAttemptsMarksFailed(t *testing.T) {
	job := &model.ArtJob{
		ID:       "job-1",
		Status:   model.ArtJobStatusRunning,
		Attempts: DefaultMaxAttempts - 1,
	}

	ApplyFailure(job, "timeout", DefaultMaxAttempts)

	if job.Status != model.ArtJobStatusFailed {
		t.Errorf("Status = %q, want failed", job.Status)
	}
	if job.Attempts != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", job.Attempts, DefaultMaxAttempts)
	}
	if !strings.Contains(job.LastError, "timeout") {
		t.Errorf("LastError = %q, should contain the reason", job.LastError)
	}
}

func TestApplySuccess(t *testing.T) {
	job := &model.ArtJob{
		ID:        "job-1",
		Status:    model.ArtJobStatusRunning,
		Attempts:  2,
		LastError: "previous failure",
	}

	ApplySuccess(job, "https://cdn.example.com/art/job-1.png")

	if job.Status != model.ArtJobStatusDone {
		t.Errorf("Status = %q, want done", job.Status)
	}
	if job.ResultURL != "https://cdn.example.com/art/job-1.png" {
		t.Errorf("ResultURL = %q", job.ResultURL)
	}
	if job.LastError != "" {
		t.Errorf("LastError = %q, want empty", job.LastError)
	}
}
