package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

// Starter starts archive workflows on a task queue.
type Starter struct {
	client    client.Client
	taskQueue string
}

// NewStarter creates a Starter.
func NewStarter(c client.Client, taskQueue string) *Starter {
	return &Starter{client: c, taskQueue: taskQueue}
}

// StartArchive starts ArchiveCaptureWorkflow and returns its workflow id
// without waiting for it to finish.
func (s *Starter) StartArchive(ctx context.Context, input ArchiveInput) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        "archive-" + uuid.NewString(),
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, ArchiveCaptureWorkflow, input)
	if err != nil {
		return "", fmt.Errorf("start archive workflow: %w", err)
	}
	return run.GetID(), nil
}

// Register adds the archive workflow and its activities to a worker.
func Register(w worker.Registry, acts *ArchiveActivities) {
	w.RegisterWorkflow(ArchiveCaptureWorkflow)
	w.RegisterActivity(acts)
}
