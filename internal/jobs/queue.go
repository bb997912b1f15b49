package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskScanAll is one full orchestration pass: scan every registered
	// folder, sweep stale entries, then identify.
	TaskScanAll = "scan:all"
)

// Queue wraps the asynq client/server pair. The worker runs with a
// concurrency of one: scanning and identification are deliberately
// sequential, never parallel.
type Queue struct {
	client    *asynq.Client
	server    *asynq.Server
	mux       *asynq.ServeMux
	inspector *asynq.Inspector
}

func NewQueue(redisAddr string) *Queue {
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 1,
			Queues:      map[string]int{"default": 1},
		},
	)
	return &Queue{
		client:    client,
		server:    server,
		mux:       asynq.NewServeMux(),
		inspector: asynq.NewInspector(redisOpt),
	}
}

func isTaskConflict(err error) bool {
	if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "task ID conflicts") || strings.Contains(msg, "duplicate task")
}

// EnqueueUnique schedules a task with a deterministic task ID so at most one
// instance is ever pending or running. A conflicting enqueue first tries to
// clear a lingering completed task and retry; a still-active task means a
// pass is in flight and the trigger is silently dropped.
func (q *Queue) EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	opts = append(opts, asynq.TaskID(uniqueID))
	task := asynq.NewTask(taskType, data, opts...)
	if _, err = q.client.Enqueue(task); err == nil {
		return nil
	}
	if !isTaskConflict(err) {
		return fmt.Errorf("enqueue: %w", err)
	}

	if delErr := q.inspector.DeleteTask("default", uniqueID); delErr == nil {
		if _, err = q.client.Enqueue(task); err == nil {
			return nil
		}
	}
	if isTaskConflict(err) {
		log.Printf("Queue: task %s (%s) already active, skipping", taskType, uniqueID)
		return nil
	}
	return fmt.Errorf("enqueue: %w", err)
}

// EnqueueScanPass triggers one orchestration pass after the given delay.
// Burst triggers coalesce: the unique ID suppresses duplicates while a pass
// is pending or running.
func (q *Queue) EnqueueScanPass(delay time.Duration) error {
	var opts []asynq.Option
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	return q.EnqueueUnique(TaskScanAll, ScanAllPayload{}, "scan:all", opts...)
}

func (q *Queue) RegisterHandler(taskType string, handler asynq.Handler) {
	q.mux.Handle(taskType, handler)
}

func (q *Queue) Start(ctx context.Context) error {
	log.Println("Job queue worker starting...")
	return q.server.Start(q.mux)
}

func (q *Queue) Stop() {
	q.server.Shutdown()
	q.client.Close()
	q.inspector.Close()
}
