package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/blobdrive/pkg/internal/types"
	"github.com/yeisme/blobdrive/pkg/middleware"
	"github.com/yeisme/blobdrive/pkg/scheduler"
)

// SchedulerJobs 返回所有定时任务的状态.
//
//	@Summary	定时任务状态
//	@Tags		系统
//	@Produce	json
//	@Success	200	{object}	types.SchedulerJobsResponse
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusOK, types.SchedulerJobsResponse{Jobs: []scheduler.JobInfo{}})
		return
	}

	c.JSON(http.StatusOK, types.SchedulerJobsResponse{Jobs: sched.GetJobInfos(), Waiting: sched.JobsWaitingInQueue()})
}

// SchedulerRunJob 立即运行指定任务.
//
//	@Summary	立即运行任务
//	@Tags		系统
//	@Produce	json
//	@Param		name	path		string	true	"任务名"
//	@Success	202		{object}	types.MessageResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Failure	503		{object}	types.ErrorResponse
//	@Router		/api/v1/scheduler/jobs/{name}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: "scheduler disabled"})
		return
	}

	name := c.Param("name")
	if err := sched.RunNow(name); err != nil {
		c.JSON(http.StatusNotFound, types.ErrorResponse{Error: "job not found", Details: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, types.MessageResponse{Message: "job " + name + " triggered"})
}
