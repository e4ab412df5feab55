package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"studio_sales_backend/internal/leads/holds"
	"studio_sales_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Sweeper is implemented by holds.Manager.
type Sweeper interface {
	Sweep(ctx context.Context) (holds.SweepReport, error)
}

// Client enqueues on-demand sweeps, e.g. from the admin API.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}
	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSweep asks the worker for an immediate sweep. Duplicate requests
// inside uniqueFor collapse into one task.
func (c *Client) EnqueueSweep(ctx context.Context, reason string, uniqueFor time.Duration) error {
	task, err := NewHoldSweepTask(HoldSweepPayload{Reason: reason})
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(0)}
	if uniqueFor > 0 {
		opts = append(opts, asynq.Unique(uniqueFor))
	}
	_, err = c.client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueue(); q != "" {
		return q
	}
	return "default"
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
