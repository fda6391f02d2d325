package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/emd5953/leaseIQ-sub000/internal/config"
	"github.com/emd5953/leaseIQ-sub000/internal/contracts"
	"github.com/emd5953/leaseIQ-sub000/internal/logging"
	"github.com/emd5953/leaseIQ-sub000/internal/models"
	"github.com/emd5953/leaseIQ-sub000/internal/services"
)

// TaskType defines the type of a background task.
const (
	TypeListingIngest = "listing:ingest"
	TypeAlertEvaluate = "alert:evaluate"
)

// Queue names.
const (
	QueueIngest = "ingest"
	QueueAlerts = "alerts"
)

const ingestMaxRetry = 5

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of asynq.Client the API needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewListingIngestTask wraps a candidate for asynchronous ingestion.
func NewListingIngestTask(c models.ListingCandidate) (*asynq.Task, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal candidate: %w", err)
	}
	return asynq.NewTask(TypeListingIngest, payload, asynq.Queue(QueueIngest), asynq.MaxRetry(ingestMaxRetry)), nil
}

// EnqueueListingIngest enqueues c and returns the task id.
func EnqueueListingIngest(ctx context.Context, client Enqueuer, c models.ListingCandidate) (string, error) {
	task, err := NewListingIngestTask(c)
	if err != nil {
		return "", err
	}
	info, err := client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue ingest task: %w", err)
	}
	return info.ID, nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
// It holds dependencies needed by task handlers.
type TaskProcessor struct {
	ingestionService services.IIngestionService
	alertService     services.IAlertService
	logger           *slog.Logger
}

func NewTaskProcessor(
	ingestionService services.IIngestionService,
	alertService services.IAlertService,
	logger *slog.Logger,
) *TaskProcessor {
	return &TaskProcessor{
		ingestionService: ingestionService,
		alertService:     alertService,
		logger:           logger,
	}
}

// Mux registers every handler of the processor.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeListingIngest, p.HandleListingIngestTask)
	mux.HandleFunc(TypeAlertEvaluate, p.HandleAlertEvaluateTask)
	return mux
}

// SetupServer configures an Asynq server. The caller runs it with the
// processor's Mux.
func SetupServer(rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
			Queues: map[string]int{
				QueueIngest: 6,
				QueueAlerts: 3,
				"default":   1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				logger.Error("task failed", "type", task.Type(), "retried", retried, logging.Err(err))
			}),
		},
	)
}

// NewScheduler registers the periodic alert evaluation.
func NewScheduler(rdb *redis.Client, cfg *config.Config) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{Location: time.UTC})
	task := asynq.NewTask(TypeAlertEvaluate, nil)
	// Unique keeps a slow pass from overlapping the next one.
	if _, err := scheduler.Register(cfg.AlertCron, task, asynq.Queue(QueueAlerts), asynq.Unique(10*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register alert schedule %q: %w", cfg.AlertCron, err)
	}
	return scheduler, nil
}

// --- Task Handlers ---

// HandleListingIngestTask ingests one scraped candidate. Malformed payloads
// and validation failures are not retried.
func (p *TaskProcessor) HandleListingIngestTask(ctx context.Context, t *asynq.Task) error {
	candidate, err := contracts.DecodeCandidate(t.Payload())
	if err != nil {
		p.logger.Warn("rejected ingest payload", logging.Err(err))
		return fmt.Errorf("invalid ingest payload: %v: %w", err, asynq.SkipRetry)
	}

	res, err := p.ingestionService.IngestDetailed(ctx, candidate)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			p.logger.Warn("rejected candidate", "source", candidate.Source.Name, "source_id", candidate.Source.ID, logging.Err(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		// Conflicts, vanished merge targets and store failures are retried from scratch.
		return err
	}

	p.logger.Info("ingest task processed",
		"listing_id", res.Listing.ID,
		"created", res.Created,
		"duplicates", res.DuplicateCount,
		"source", candidate.Source.Name,
	)
	return nil
}

// HandleAlertEvaluateTask runs one alert pass over every enabled saved search.
func (p *TaskProcessor) HandleAlertEvaluateTask(ctx context.Context, t *asynq.Task) error {
	summary, err := p.alertService.EvaluateAll(ctx)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		p.logger.Warn("alert pass had failures", "failed", summary.Failed, "searches", summary.Searches)
	}
	return nil
}
