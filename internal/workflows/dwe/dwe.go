// Package dwe is the Durable Workflow Engine Adapter (spec.md §4.5): a thin
// wrapper over go.temporal.io/sdk that derives workflow ids from the target
// resource, applies the default retry policy of spec.md §5, and exposes
// submit/signal/query/cancel as the only way the rest of CPSTO touches the
// workflow engine.
package dwe

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
)

// TaskQueue names the single queue the computor-worker process drains;
// spec.md §5 describes "parallel workers consuming task queues" without
// mandating more than one queue, so CPSTO uses one per process type.
const TaskQueue = "cpsto-default"

// DefaultRetryPolicy implements spec.md §5's stated defaults:
// initial_interval=1s, coefficient=2.0, max_interval=5min, max_attempts=5.
var DefaultRetryPolicy = &temporal.RetryPolicy{
	InitialInterval:    time.Second,
	BackoffCoefficient: 2.0,
	MaximumInterval:    5 * time.Minute,
	MaximumAttempts:    5,
}

// Activity timeout tiers from spec.md §5: "fast DB activities ≤ 30s;
// provider calls ≤ 2min; repository clone/push ≤ 10min; archive downloads
// heartbeat every ≤ 30s".
const (
	TimeoutDBActivity       = 30 * time.Second
	TimeoutProviderActivity = 2 * time.Minute
	TimeoutRepositoryOp     = 10 * time.Minute
	HeartbeatInterval       = 30 * time.Second
)

// Adapter wraps a Temporal client with the conventions CPSTO's workflows
// and the computorctl CLI both rely on.
type Adapter struct {
	Client client.Client
}

// Dial connects to the Temporal frontend at hostPort in namespace.
func Dial(hostPort, namespace string) (*Adapter, error) {
	c, err := client.Dial(client.Options{HostPort: hostPort, Namespace: namespace})
	if err != nil {
		return nil, errors.Wrap(err, "dial temporal frontend")
	}
	return &Adapter{Client: c}, nil
}

// Close releases the underlying Temporal client connection.
func (a *Adapter) Close() {
	a.Client.Close()
}

// NewWorker constructs a worker.Worker bound to TaskQueue; callers register
// workflow and activity implementations on it before calling Run.
func (a *Adapter) NewWorker() worker.Worker {
	return worker.New(a.Client, TaskQueue, worker.Options{})
}

// DeployHierarchyWorkflowID derives the stable workflow id for a
// DeployHierarchy run from the organization path, matching spec.md §5's
// "deriving workflow_id from the resource" ordering guarantee.
func DeployHierarchyWorkflowID(organizationPath string) string {
	return fmt.Sprintf("deploy-hierarchy-%s", organizationPath)
}

// GenerateAssignmentsWorkflowID derives the stable, per-course workflow id
// spec.md §5 names directly: "deploy-course-<course_id>".
func GenerateAssignmentsWorkflowID(courseID int64) string {
	return fmt.Sprintf("deploy-course-%d", courseID)
}

// GenerateStudentTemplateWorkflowID derives the per-course workflow id for
// GenerateStudentTemplate, serialized independently of GenerateAssignments
// since the two write to different repositories.
func GenerateStudentTemplateWorkflowID(courseID int64) string {
	return fmt.Sprintf("generate-template-%d", courseID)
}

// CatalogSyncWorkflowID derives the workflow id for one ingestion run,
// scoped by repository so two uploads to different repositories never
// collide or serialize against each other.
func CatalogSyncWorkflowID(repositoryID int64, uploadRef string) string {
	return fmt.Sprintf("catalog-sync-%d-%s", repositoryID, uploadRef)
}

// Submit starts workflowFn under workflowID on TaskQueue. A second
// submission against a resource whose workflow is still running fails
// with WorkflowExecutionAlreadyStarted rather than being silently attached
// to the running run or queued (spec.md §4.5: "rejecting start-if-exists");
// once the earlier run has closed, the same workflowID may be started again.
func (a *Adapter) Submit(ctx context.Context, workflowID string, workflowFn any, args ...any) (client.WorkflowRun, error) {
	opts := client.StartWorkflowOptions{
		ID:                                       workflowID,
		TaskQueue:                                TaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowExecutionTimeout:                 24 * time.Hour,
	}
	run, err := a.Client.ExecuteWorkflow(ctx, opts, workflowFn, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "submit workflow %s", workflowID)
	}
	return run, nil
}

// Signal delivers a named signal with payload to a running workflow,
// matching spec.md §4.5's "signals may cancel or parameter-adjust".
func (a *Adapter) Signal(ctx context.Context, workflowID, signalName string, payload any) error {
	if err := a.Client.SignalWorkflow(ctx, workflowID, "", signalName, payload); err != nil {
		return errors.Wrapf(err, "signal workflow %s", workflowID)
	}
	return nil
}

// Cancel requests cooperative cancellation of a running workflow (spec.md
// §5: "cancellation propagates to the currently running activity via a
// cooperative cancel channel").
func (a *Adapter) Cancel(ctx context.Context, workflowID string) error {
	if err := a.Client.CancelWorkflow(ctx, workflowID, ""); err != nil {
		return errors.Wrapf(err, "cancel workflow %s", workflowID)
	}
	return nil
}

// Query issues a read-only query against a running or completed workflow.
func (a *Adapter) Query(ctx context.Context, workflowID, queryType string, result any) error {
	val, err := a.Client.QueryWorkflow(ctx, workflowID, "", queryType)
	if err != nil {
		return errors.Wrapf(err, "query workflow %s", workflowID)
	}
	return val.Get(result)
}

// Status reports workflowID's run state as one of spec.md §4.5's
// RUNNING/COMPLETED/FAILED/CANCELED, matching the REST query surface's
// `GET /system/hierarchy/status/{workflow_id}` contract.
func (a *Adapter) Status(ctx context.Context, workflowID string) (string, error) {
	desc, err := a.Client.DescribeWorkflowExecution(ctx, workflowID, "")
	if err != nil {
		return "", errors.Wrapf(err, "describe workflow %s", workflowID)
	}
	switch desc.WorkflowExecutionInfo.GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING, enumspb.WORKFLOW_EXECUTION_STATUS_CONTINUED_AS_NEW:
		return "RUNNING", nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "COMPLETED", nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED, enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return "FAILED", nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED, enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "CANCELED", nil
	default:
		return desc.WorkflowExecutionInfo.GetStatus().String(), nil
	}
}
