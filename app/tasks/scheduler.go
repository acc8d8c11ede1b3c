package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ainewshq/ainews/app/database"
	"github.com/ainewshq/ainews/app/digest"
	"github.com/ainewshq/ainews/app/fetch"
	"github.com/ainewshq/ainews/app/news"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Options carries the scheduler knobs so callers pass configuration
// explicitly instead of reading a global.
type Options struct {
	Interval    time.Duration
	WorkerCount int
	// SummaryHour is the UTC hour after which the daily summary is
	// generated automatically. A negative value disables it.
	SummaryHour int
}

type Scheduler struct {
	orchestrator *fetch.Orchestrator
	extractor    *fetch.Extractor
	articleStore database.ArticleStore
	summarizer   *digest.Summarizer
	sender       SummarySender
	interval     time.Duration
	workerCount  int
	summaryHour  int
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	taskQueue    chan TaskInterface
}

func NewScheduler(orchestrator *fetch.Orchestrator, extractor *fetch.Extractor,
	articleStore database.ArticleStore, summarizer *digest.Summarizer,
	sender SummarySender, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		orchestrator: orchestrator,
		extractor:    extractor,
		articleStore: articleStore,
		summarizer:   summarizer,
		sender:       sender,
		interval:     opts.Interval,
		workerCount:  opts.WorkerCount,
		summaryHour:  opts.SummaryHour,
		ctx:          ctx,
		cancel:       cancel,
		taskQueue:    make(chan TaskInterface, 300),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueTasks()
			}
		}
	}()

}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewFetchCycleTask(s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue FetchCycleTask", "error", err)
	}
}

func (s *Scheduler) enqueueTasks() {
	if err := s.EnqueueTask(NewFetchCycleTask(s.orchestrator)); err != nil {
		slog.Warn("Failed to enqueue FetchCycleTask", "error", err)
	}

	today := news.DateKey(time.Now().UTC())
	if err := s.EnqueueTask(NewEnrichArticlesTask(s.extractor, s.articleStore, today)); err != nil {
		slog.Warn("Failed to enqueue EnrichArticlesTask", "date", today, "error", err)
	}

	s.maybeEnqueueSummary()
}

// maybeEnqueueSummary schedules today's summary once the configured hour has
// passed and no summary exists yet.
func (s *Scheduler) maybeEnqueueSummary() {
	if s.summarizer == nil || s.summaryHour < 0 {
		return
	}

	now := time.Now().UTC()
	if now.Hour() < s.summaryHour {
		return
	}

	existing, err := s.summarizer.GetSummary(now)
	if err != nil {
		slog.Warn("Failed to check for existing summary", "error", err)
		return
	}
	if existing != nil {
		return
	}

	if err := s.EnqueueTask(NewGenerateSummaryTask(s.summarizer, s.sender, now)); err != nil {
		slog.Warn("Failed to enqueue GenerateSummaryTask", "error", err)
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "subject", task.GetSubject(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			// Tracked in the WaitGroup so Stop cannot close the queue
			// while a re-enqueue is pending.
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()

				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(retryDelay):
				}

				if retryErr := s.EnqueueTask(task); retryErr != nil {
					slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
