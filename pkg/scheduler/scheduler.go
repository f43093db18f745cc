// Package scheduler 基于 gocron/v2 运行后台定时任务（参考数据刷新、待分析文件补偿），并记录每个任务的运行状态.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	nlog "github.com/hsk3232/DevelopProject/pkg/log"
)

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	StatusError     JobStatus = "error"
)

// JobFunc 任务函数，返回的错误记录到 JobInfo.Error.
type JobFunc func(ctx context.Context) error

// JobInfo 任务运行信息.
type JobInfo struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	CronExpr    string        `json:"cron_expr"`
	NextRun     time.Time     `json:"next_run"`
	LastRun     time.Time     `json:"last_run"`
	LastSuccess time.Time     `json:"last_success,omitempty"`
	LastElapsed time.Duration `json:"last_elapsed"`
	Runs        int           `json:"runs"`
	Failures    int           `json:"failures"`
	Status      JobStatus     `json:"status"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Scheduler 定时任务调度器. 同名任务不会重叠执行.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
	infos     map[string]*JobInfo
	ids       map[uuid.UUID]string
	mu        sync.RWMutex
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler 创建调度器.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	sched := &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		infos:     make(map[string]*JobInfo),
		ids:       make(map[uuid.UUID]string),
		logger:    *nlog.Component("scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}

	return sched, nil
}

// AddCron 按 cron 表达式注册任务. 上一次未结束时本次触发顺延.
func (s *Scheduler) AddCron(name, cronExpr string, job JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.run(name, job) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	s.jobs[name] = j
	s.ids[j.ID()] = name
	s.infos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		Status:    StatusScheduled,
		CreatedAt: time.Now(),
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("added cron job")

	return nil
}

// RunNow 立即执行一次指定任务.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, exists := s.jobs[name]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	return job.RunNow()
}

// run 执行任务并记录状态，panic 记为失败.
func (s *Scheduler) run(name string, job JobFunc) {
	start := time.Now()
	s.setStatus(name, func(info *JobInfo) {
		info.Status = StatusRunning
		info.LastRun = start
	})

	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job: %v", r)
		}

		s.setStatus(name, func(info *JobInfo) {
			info.Runs++
			info.LastElapsed = time.Since(start)

			if err != nil {
				info.Failures++
				info.Status = StatusError
				info.Error = err.Error()

				return
			}

			info.Status = StatusScheduled
			info.Error = ""
			info.LastSuccess = time.Now()
		})

		if err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("job failed")
		} else {
			s.logger.Debug().Str("job", name).Dur("elapsed", time.Since(start)).Msg("job finished")
		}
	}()

	err = job(s.ctx)
}

// RemoveJob 按 ID 删除任务.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name, exists := s.ids[id]; exists {
		delete(s.jobs, name)
		delete(s.infos, name)
		delete(s.ids, id)
	}

	return s.scheduler.RemoveJob(id)
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("starting scheduler")
	s.scheduler.Start()
}

// Stop 取消运行中任务的 context 并关闭调度器.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")
	s.cancel()

	return s.scheduler.Shutdown()
}

// StopJobs 停止所有任务的调度，调度器本身保持运行.
func (s *Scheduler) StopJobs() error {
	return s.scheduler.StopJobs()
}

// JobsWaitingInQueue 等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// GetJobInfos 按名称排序返回所有任务信息.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	jobs := make([]JobInfo, 0, len(s.infos))
	handles := make([]gocron.Job, 0, len(s.infos))

	for name, info := range s.infos {
		jobs = append(jobs, *info)
		handles = append(handles, s.jobs[name])
	}
	s.mu.RUnlock()

	for i := range jobs {
		jobs[i].NextRun = s.nextRun(handles[i])
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

// GetJobInfo 返回单个任务信息.
func (s *Scheduler) GetJobInfo(name string) (JobInfo, bool) {
	s.mu.RLock()
	info, ok := s.infos[name]
	job := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return JobInfo{}, false
	}

	out := *info
	out.NextRun = s.nextRun(job)

	return out, true
}

// nextRun 查询下次执行时间. 调度器启动前或任务已停止时为零值.
func (s *Scheduler) nextRun(job gocron.Job) time.Time {
	if job == nil {
		return time.Time{}
	}

	next, err := job.NextRun()
	if err != nil {
		s.logger.Debug().Err(err).Str("job", job.Name()).Msg("query next run")

		return time.Time{}
	}

	return next
}

func (s *Scheduler) setStatus(name string, fn func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, ok := s.infos[name]; ok {
		fn(info)
	}
}
