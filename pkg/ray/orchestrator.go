package ray

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eventual-Inc/daft-launcher/shared"
)

// Session is the tunnel side of the orchestrator: something holding local
// ports open that must be released once the job result is known.
type Session interface {
	Close()
}

// JobOutcome is the result of a submitted job after it reached a terminal
// status.
type JobOutcome struct {
	ID     string
	Status JobStatus
}

// Orchestrator runs the submit-and-await workflow:
// connecting, submitted, streaming, terminal.
type Orchestrator struct {
	// Client talks to the job endpoint over the active tunnel.
	Client *JobClient
	// ConnectRetry bounds the wait for the endpoint's listener. This is
	// the only automatic retry in the system.
	ConnectRetry shared.RetryCfg
	// Out receives the job's log lines in arrival order.
	Out io.Writer
}

// NewOrchestrator builds an orchestrator with the default connect budget.
func NewOrchestrator(client *JobClient) *Orchestrator {
	return &Orchestrator{
		Client: client,
		ConnectRetry: shared.RetryCfg{
			Attempts: 5,
			Delay:    time.Second,
		},
		Out: os.Stdout,
	}
}

// SubmitAndAwait submits the working directory and entrypoint as one job and
// follows it to a terminal status. The tunnel session is closed on every
// exit path, including panic unwind; it exists only to reach the endpoint
// and must not outlive the result.
func (o *Orchestrator) SubmitAndAwait(ctx context.Context, tun Session, workingDir, entrypoint string) (*JobOutcome, error) {
	defer tun.Close()

	if err := shared.Retry(ctx, o.ConnectRetry, o.Client.Ping); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnreachable, err)
	}

	id, err := o.Client.Submit(workingDir, entrypoint)
	if err != nil {
		return nil, err
	}
	shared.LogLevel("info", "submitted job %s", id)

	if err := o.Client.TailLogs(ctx, id, o.Out); err != nil {
		return nil, err
	}

	status, err := o.Client.Status(id)
	if err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return nil, fmt.Errorf("%w: job %s reports %s", ErrPrematureStreamEnd, id, status)
	}

	return &JobOutcome{ID: id, Status: status}, nil
}
