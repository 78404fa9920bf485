package observability

const (
	AttrSessionID  = "session.id"
	AttrTaskID     = "task.id"
	AttrTaskRole   = "task.role"
	AttrTaskStatus = "task.status"
	AttrPriority   = "task.priority"
	AttrAgentID    = "agent.id"
	AttrErrorType  = "error.type"

	SpanOrchestratorIteration = "orchestrator.iteration"
	SpanOrchestratorDispatch  = "orchestrator.dispatch_task"
	SpanPoolAcquire           = "pool.acquire"
	SpanCheckpointCreate      = "checkpoint.create"

	DefaultServiceName = "meshseeks"
	DefaultMetricsPath = "/metrics"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
)
