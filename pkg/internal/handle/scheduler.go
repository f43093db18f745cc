package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hsk3232/DevelopProject/pkg/middleware"
	"github.com/hsk3232/DevelopProject/pkg/scheduler"
)

func getScheduler(c *gin.Context) (*scheduler.Scheduler, bool) {
	sched := middleware.GetScheduler(c)
	if sched == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler disabled"})

		return nil, false
	}

	return sched, true
}

// SchedulerJobs 返回所有定时任务信息.
//
//	@Summary	定时任务列表
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string][]scheduler.JobInfo
//	@Router		/api/v1/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.GetJobInfos()})
}

// SchedulerRunJob 立即执行一次指定任务.
//
//	@Summary	立即执行任务
//	@Tags		调度器
//	@Produce	json
//	@Param		id	path		string	true	"任务名称"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{id}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	name := c.Param("id")
	if _, exists := sched.GetJobInfo(name); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})

		return
	}

	if err := sched.RunNow(name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered", "job": name})
}

// SchedulerStopJobs 停止所有任务.
//
//	@Summary	停止所有任务
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/stop [post]
func SchedulerStopJobs(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	if err := sched.StopJobs(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "jobs stopped"})
}

// SchedulerRemoveJob 根据 id 删除任务.
//
//	@Summary	删除任务
//	@Tags		调度器
//	@Produce	json
//	@Param		id	path		string	true	"任务 ID"
//	@Success	200	{object}	map[string]string
//	@Failure	400	{object}	map[string]string
//	@Router		/api/v1/scheduler/jobs/{id} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})

		return
	}

	if err := sched.RemoveJob(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}

// SchedulerQueueWaiting 返回队列中等待的任务数.
//
//	@Summary	等待中的任务数
//	@Tags		调度器
//	@Produce	json
//	@Success	200	{object}	map[string]int
//	@Router		/api/v1/scheduler/queue/waiting [get]
func SchedulerQueueWaiting(c *gin.Context) {
	sched, ok := getScheduler(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"waiting": sched.JobsWaitingInQueue()})
}
