// Package backend talks to the external RAG/OCR service. Work is submitted
// as a job and its result polled later; nothing here knows how the answer
// or the extracted text is produced.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/sethvargo/go-retry"
)

type JobKind string

const (
	// JobChat asks for an assistant reply to Message in ChatID.
	JobChat JobKind = "chat"
	// JobOCR asks for text extraction from the blob at StorageKey.
	JobOCR JobKind = "ocr"
)

type Job struct {
	Kind        JobKind `json:"kind"`
	UserID      string  `json:"userId"`
	ChatID      string  `json:"chatId,omitempty"`
	DocumentID  string  `json:"documentId,omitempty"`
	Message     string  `json:"message,omitempty"`
	StorageKey  string  `json:"storageKey,omitempty"`
	ContentType string  `json:"contentType,omitempty"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the state of a job. Output holds the reply or the extracted
// text once Status is completed; Error explains a failed job.
type Result struct {
	Status Status `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (r Result) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// Backend is the job interface of the RAG/OCR service. Transport failures
// wrap common.ErrorBackendUnavailable.
type Backend interface {
	Submit(ctx context.Context, job Job) (string, error)
	Poll(ctx context.Context, jobID string) (Result, error)
}

// Await polls jobID every interval until the job is completed or failed.
// It gives up with ctx's error when ctx ends first.
func Await(ctx context.Context, b Backend, jobID string, interval time.Duration) (Result, error) {
	var res Result
	err := retry.Do(ctx, retry.NewConstant(interval), func(ctx context.Context) error {
		r, err := b.Poll(ctx, jobID)
		if err != nil {
			if errors.Is(err, common.ErrorBackendUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		if !r.Terminal() {
			return retry.RetryableError(errPending)
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("await job %s: %w", jobID, err)
	}
	return res, nil
}

var errPending = errors.New("job pending")
