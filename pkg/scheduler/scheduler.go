// Package scheduler 提供定时任务调度功能，使用 gocron/v2 库.
// 每个任务以名称登记，调度器记录运行状态供 /scheduler/jobs 展示.
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

	"github.com/yeisme/blobdrive/pkg/log"
)

// JobStatus 表示任务的状态类型.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled" // 任务已调度
	StatusRunning   JobStatus = "running"   // 任务正在运行
	StatusError     JobStatus = "error"     // 最近一次运行出错
)

// JobInfo 表示定时任务的信息，用于可视化和监控.
type JobInfo struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CronExpr    string    `json:"cron_expr"`
	NextRun     time.Time `json:"next_run"`
	LastRun     time.Time `json:"last_run"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	Runs        int64     `json:"runs"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Task 任务函数，返回的错误记录在任务状态中.
type Task func(ctx context.Context) error

// Scheduler 是定时任务调度器的实现.
type Scheduler struct {
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job // 以任务名称为键
	jobInfos  map[string]*JobInfo   // 以任务名称为键
	mu        sync.RWMutex
	logger    zerolog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler 创建调度器. base 为所有任务共享的上下文，Stop 时取消.
func NewScheduler(base context.Context) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(base)

	return &Scheduler{
		scheduler: s,
		jobs:      make(map[string]gocron.Job),
		jobInfos:  make(map[string]*JobInfo),
		logger:    log.Component("scheduler"),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// AddCron 添加一个基于 cron 表达式的定时任务. 同一任务不会并发运行.
func (s *Scheduler) AddCron(name, cronExpr string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job with name %s already exists", name)
	}

	j, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() { s.run(name, task) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}

	now := time.Now()
	nextRun, _ := j.NextRun()

	s.jobs[name] = j
	s.jobInfos[name] = &JobInfo{
		ID:        j.ID().String(),
		Name:      name,
		CronExpr:  cronExpr,
		NextRun:   nextRun,
		Status:    StatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info().Str("job", name).Str("cron", cronExpr).Msg("added cron job")

	return nil
}

// RunNow 立即触发一次任务，不影响原有调度.
func (s *Scheduler) RunNow(name string) error {
	j, err := s.GetJobByName(name)
	if err != nil {
		return err
	}

	return j.RunNow()
}

// run 执行任务并记录状态，panic 记为错误.
func (s *Scheduler) run(name string, task Task) {
	s.setStatus(name, StatusRunning, nil)

	start := time.Now()

	var err error

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic in job: %v", r)
			}
		}()

		err = task(s.ctx)
	}()

	s.mu.Lock()
	if info, ok := s.jobInfos[name]; ok {
		info.LastRun = start
		info.Runs++
		info.UpdatedAt = time.Now()

		if err == nil {
			info.LastSuccess = info.UpdatedAt
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.setStatus(name, StatusError, err)
		s.logger.Error().Err(err).Str("job", name).Dur("took", time.Since(start)).Msg("job failed")

		return
	}

	s.setStatus(name, StatusScheduled, nil)
	s.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// RemoveJobByName 通过名称移除任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[name]
	if !exists {
		return fmt.Errorf("job with name %s does not exist", name)
	}

	if err := s.scheduler.RemoveJob(job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	delete(s.jobInfos, name)

	s.logger.Info().Str("job", name).Msg("removed job")

	return nil
}

// RemoveJob 通过 ID 移除任务.
func (s *Scheduler) RemoveJob(id uuid.UUID) error {
	s.mu.RLock()

	var name string

	for n, j := range s.jobs {
		if j.ID() == id {
			name = n
			break
		}
	}
	s.mu.RUnlock()

	if name == "" {
		return fmt.Errorf("job %s does not exist", id)
	}

	return s.RemoveJobByName(name)
}

// GetJobByName 通过名称获取任务.
func (s *Scheduler) GetJobByName(name string) (gocron.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[name]
	if !exists {
		return nil, fmt.Errorf("job with name %s does not exist", name)
	}

	return job, nil
}

// Start 启动调度器.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("starting scheduler")
	s.scheduler.Start()
}

// Stop 停止调度器并等待运行中的任务结束.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")
	s.cancel()

	return s.scheduler.Shutdown()
}

// StopJobs 停止所有任务的调度，不关闭调度器.
func (s *Scheduler) StopJobs() error {
	return s.scheduler.StopJobs()
}

// JobsWaitingInQueue 排队等待执行的任务数.
func (s *Scheduler) JobsWaitingInQueue() int {
	return s.scheduler.JobsWaitingInQueue()
}

// GetJobInfos 返回所有定时任务的信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobInfo, 0, len(s.jobInfos))

	for name, info := range s.jobInfos {
		if nextRun, err := s.jobs[name].NextRun(); err == nil {
			info.NextRun = nextRun
		}

		jobs = append(jobs, *info)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })

	return jobs
}

func (s *Scheduler) setStatus(name string, status JobStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if info, exists := s.jobInfos[name]; exists {
		info.Status = status
		info.Error = ""

		if err != nil {
			info.Error = err.Error()
		}

		info.UpdatedAt = time.Now()
	}
}
