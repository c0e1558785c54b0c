package types

import "github.com/yeisme/blobdrive/pkg/scheduler"

// SchedulerJobsResponse 定时任务状态. 调度器未启用时 Jobs 为空.
type SchedulerJobsResponse struct {
	Jobs    []scheduler.JobInfo `json:"jobs"`
	Waiting int                 `json:"waiting"`
}
