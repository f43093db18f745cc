package jobs

// 任务名称，同时用于调度器接口 /scheduler/jobs/:name/run.
const (
	JobLookupRefresh  = "lookup.refresh"
	JobPendingAnalyze = "analysis.pending"
)
