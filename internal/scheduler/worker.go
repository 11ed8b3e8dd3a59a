package scheduler

import (
	"context"
	"fmt"

	projectssvc "leadmarket_backend/internal/projects/service"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes background tasks. Project creation retries here until it
// sticks; the settlement that spawned it is already committed and is never
// rolled back.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	projects *projectssvc.Service
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, projects *projectssvc.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		projects: projects,
		log:      log,
	}

	mux.HandleFunc(TaskProjectCreate, w.handleProjectCreate)

	return w, nil
}

func (w *Worker) handleProjectCreate(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProjectCreatePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	quoteID, err := uuid.Parse(payload.QuoteID)
	if err != nil {
		return err
	}
	homeownerID, err := uuid.Parse(payload.HomeownerID)
	if err != nil {
		return err
	}
	professionalID, err := uuid.Parse(payload.ProfessionalID)
	if err != nil {
		return err
	}

	_, err = w.projects.CreateFromSettlement(ctx, leadID, quoteID, homeownerID, professionalID)
	if err != nil {
		w.log.Error("project creation failed, task will retry", "quote_id", quoteID, "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
