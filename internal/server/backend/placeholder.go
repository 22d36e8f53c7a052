package backend

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/google/uuid"
)

// PlaceholderReply is the assistant answer used while no RAG service is
// configured.
const PlaceholderReply = "This is a placeholder response. The Python backend will provide RAG-based responses and OCR text extraction once implemented."

// Placeholder is an in-process Backend for running without the external
// service. Chat jobs complete at once with PlaceholderReply; OCR jobs stay
// pending.
type Placeholder struct {
	mu   sync.Mutex
	jobs map[string]Result
}

func NewPlaceholder() *Placeholder {
	return &Placeholder{jobs: make(map[string]Result)}
}

func (p *Placeholder) Submit(_ context.Context, job Job) (string, error) {
	res := Result{Status: StatusPending}
	if job.Kind == JobChat {
		res = Result{Status: StatusCompleted, Output: PlaceholderReply}
	}

	id := uuid.NewString()
	p.mu.Lock()
	p.jobs[id] = res
	p.mu.Unlock()
	return id, nil
}

func (p *Placeholder) Poll(_ context.Context, jobID string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	res, ok := p.jobs[jobID]
	if !ok {
		return Result{}, common.ErrorNotFound
	}
	if res.Terminal() {
		delete(p.jobs, jobID)
	}
	return res, nil
}
