package adapter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hibiken/asynq"

	"petchat/internal/infrastructure/logger"
	"petchat/internal/infrastructure/queue/port"
)

// ===================== Client =====================

// AsynqClient implements port.Client using github.com/hibiken/asynq
// and Redis as the backing store.
type AsynqClient struct {
	client *asynq.Client
}

// NewAsynqClient constructs a client backed by the Redis instance at redisURL.
func NewAsynqClient(redisURL string) (*AsynqClient, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse REDIS_URL: %w", err)
	}
	c := asynq.NewClient(opt)
	return &AsynqClient{client: c}, nil
}

// Ensure interface is satisfied
var _ port.Client = (*AsynqClient)(nil)

func (a *AsynqClient) Enqueue(ctx context.Context, t port.Task, opts ...port.EnqueueOption) (string, error) {
	if t.Type == "" {
		return "", errors.New("asynq: task type is required")
	}
	var op port.EnqueueOption
	if len(opts) > 0 {
		// Only the first option is honored.
		op = opts[0]
	}
	info, err := a.client.EnqueueContext(ctx, asynq.NewTask(t.Type, t.Payload), asynqOptions(op)...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return op.TaskID, nil
	}
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

func asynqOptions(op port.EnqueueOption) []asynq.Option {
	var out []asynq.Option
	if op.Queue != "" {
		out = append(out, asynq.Queue(op.Queue))
	}
	if op.MaxRetry > 0 {
		out = append(out, asynq.MaxRetry(op.MaxRetry))
	}
	if op.TaskID != "" {
		out = append(out, asynq.TaskID(op.TaskID))
	}
	return out
}

func (a *AsynqClient) Close() error {
	return a.client.Close()
}

// ===================== Server =====================

// AsynqServer implements port.Server using github.com/hibiken/asynq
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewAsynqServer constructs a worker server.
// queues is a CSV like "realtime=6,default=1"; empty means "default=1".
func NewAsynqServer(redisURL string, concurrency int, queues string) (*AsynqServer, error) {
	if redisURL == "" {
		return nil, errors.New("asynq: redis url is required")
	}
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("asynq: parse REDIS_URL: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 10
	}

	weights := parseQueueWeights(queues)
	if len(weights) == 0 {
		weights = map[string]int{"default": 1}
	}

	log := logger.Component("asynq")
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      weights,
		Logger:      zerologAdapter{},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			log.Warn().Err(err).
				Str("task", task.Type()).
				Int("retried", retried).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	})
	return &AsynqServer{server: srv, mux: asynq.NewServeMux()}, nil
}

// Ensure interface is satisfied
var _ port.Server = (*AsynqServer)(nil)

func (s *AsynqServer) Register(taskType string, h port.Handler) {
	s.mux.HandleFunc(taskType, func(ctx context.Context, t *asynq.Task) error {
		pt := port.Task{Type: t.Type(), Payload: t.Payload()}
		err := h(ctx, pt)
		if errors.Is(err, port.ErrSkipRetry) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	})
}

// Run starts the server and blocks until the context is canceled, then gracefully shuts down.
func (s *AsynqServer) Run(ctx context.Context) error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	<-ctx.Done()
	s.server.Shutdown()
	return nil
}

// Stop gracefully shuts down the server.
func (s *AsynqServer) Stop(_ context.Context) error {
	s.server.Shutdown()
	return nil
}

// zerologAdapter routes asynq's internal logging through the service logger.
type zerologAdapter struct{}

func (zerologAdapter) Debug(args ...interface{}) {
	logger.Debug().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (zerologAdapter) Info(args ...interface{}) {
	logger.Info().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (zerologAdapter) Warn(args ...interface{}) {
	logger.Warn().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (zerologAdapter) Error(args ...interface{}) {
	logger.Error().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

func (zerologAdapter) Fatal(args ...interface{}) {
	logger.Fatal().Str("component", "asynq").Msg(fmt.Sprint(args...))
}

// parseQueueWeights parses strings like "critical=6,default=3,low=1" into a map.
func parseQueueWeights(s string) map[string]int {
	res := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		name := strings.TrimSpace(kv[0])
		if name == "" {
			continue
		}
		w := 1
		if len(kv) == 2 {
			if i, err := strconv.Atoi(strings.TrimSpace(kv[1])); err == nil && i > 0 {
				w = i
			}
		}
		res[name] = w
	}
	return res
}
