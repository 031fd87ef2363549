// Package intake is a durable request queue kept in the document store.
// Requests are documents of type "request" whose status moves from pending
// to processing to done or failed. Results are stored as their own documents
// and linked back by id.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Yates-Labs/storyforge/internal/memory"
	"github.com/Yates-Labs/storyforge/internal/story"
)

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Document types written by the queue.
const (
	TypeRequest = "request"
	TypeResult  = "pipeline_result"
)

var (
	// ErrNoPending is returned by Claim when the queue is empty.
	ErrNoPending = errors.New("no pending request")

	// ErrNoDocuments is returned by NewQueue without a document store.
	ErrNoDocuments = errors.New("intake requires a document store")
)

// Request is one queued story idea.
type Request struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Query     string    `json:"query"`
	Status    Status    `json:"status"`
	ResultID  string    `json:"result_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Runner runs the pipeline for a claimed request.
type Runner interface {
	Run(ctx context.Context, query string) (*story.Result, error)
}

// Queue hands out requests newest first. Claim is not atomic across
// processes; run a single worker per database.
type Queue struct {
	docs   memory.DocumentStore
	logger *log.Logger
	newID  func() string
}

// Option configures a Queue.
type Option func(*Queue)

// WithLogger sets the queue logger.
func WithLogger(logger *log.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger.WithPrefix("intake")
		}
	}
}

// NewQueue creates a queue over docs.
func NewQueue(docs memory.DocumentStore, opts ...Option) (*Queue, error) {
	if docs == nil {
		return nil, ErrNoDocuments
	}
	q := &Queue{
		docs:   docs,
		logger: log.New(io.Discard),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Submit queues query and returns the document id of the request.
func (q *Queue) Submit(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: a story idea is required", story.ErrInvalidInput)
	}

	id, err := q.docs.Insert(ctx, memory.Document{
		Content: query,
		Metadata: memory.Metadata{
			"type":       TypeRequest,
			"status":     string(StatusPending),
			"request_id": q.newID(),
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("submit request: %w", err)
	}

	q.logger.Info("request submitted", "id", id)
	return id, nil
}

// Claim takes the most recent pending request and marks it processing.
func (q *Queue) Claim(ctx context.Context) (*Request, error) {
	doc, err := q.docs.FindLatest(ctx, memory.Filter{
		"type":   TypeRequest,
		"status": string(StatusPending),
	})
	if errors.Is(err, memory.ErrNotFound) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("find pending request: %w", err)
	}

	if err := q.docs.Update(ctx, doc.ID, memory.Metadata{"status": string(StatusProcessing)}); err != nil {
		return nil, fmt.Errorf("claim request %s: %w", doc.ID, err)
	}

	req := requestFrom(doc)
	req.Status = StatusProcessing
	q.logger.Info("request claimed", "id", req.ID, "request_id", req.RequestID)
	return req, nil
}

// Complete stores res and marks the request done, or failed when res is nil
// or unsuccessful.
func (q *Queue) Complete(ctx context.Context, id string, res *story.Result) error {
	patch := memory.Metadata{"status": string(StatusFailed)}

	if res != nil {
		body, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		resultID, err := q.docs.Insert(ctx, memory.Document{
			Content: string(body),
			Metadata: memory.Metadata{
				"type":       TypeResult,
				"request_id": id,
				"run_id":     res.RunID,
				"success":    res.Success,
			},
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("store result: %w", err)
		}
		patch["result_id"] = resultID
		if res.Success {
			patch["status"] = string(StatusDone)
		} else {
			patch["error"] = res.Error
		}
	}

	if err := q.docs.Update(ctx, id, patch); err != nil {
		return fmt.Errorf("complete request %s: %w", id, err)
	}
	q.logger.Info("request completed", "id", id, "status", patch["status"])
	return nil
}

// Get returns the request with id.
func (q *Queue) Get(ctx context.Context, id string) (*Request, error) {
	doc, err := q.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Metadata.String("type") != TypeRequest {
		return nil, memory.ErrNotFound
	}
	return requestFrom(doc), nil
}

// Result returns the stored pipeline result of a completed request.
func (q *Queue) Result(ctx context.Context, req *Request) (*story.Result, error) {
	if req.ResultID == "" {
		return nil, memory.ErrNotFound
	}
	doc, err := q.docs.Get(ctx, req.ResultID)
	if err != nil {
		return nil, err
	}
	var res story.Result
	if err := json.Unmarshal([]byte(doc.Content), &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Process claims one request, runs it and records the outcome. It returns
// ErrNoPending when there is nothing to do.
func (q *Queue) Process(ctx context.Context, runner Runner) (*Request, error) {
	req, err := q.Claim(ctx)
	if err != nil {
		return nil, err
	}

	res, runErr := runner.Run(ctx, req.Query)
	if runErr != nil {
		q.logger.Error("request failed", "id", req.ID, "err", runErr)
	}
	if res == nil {
		res = &story.Result{Query: req.Query, Error: "no result"}
		if runErr != nil {
			res.Error = runErr.Error()
		}
	}

	// The request is finalised even when ctx was cancelled mid-run.
	if err := q.Complete(context.WithoutCancel(ctx), req.ID, res); err != nil {
		return req, err
	}

	req.Status = StatusDone
	if !res.Success {
		req.Status = StatusFailed
		req.Error = res.Error
	}
	return req, runErr
}

func requestFrom(doc *memory.Document) *Request {
	return &Request{
		ID:        doc.ID,
		RequestID: doc.Metadata.String("request_id"),
		Query:     doc.Content,
		Status:    Status(doc.Metadata.String("status")),
		ResultID:  doc.Metadata.String("result_id"),
		Error:     doc.Metadata.String("error"),
		CreatedAt: doc.CreatedAt,
	}
}
