package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// HandleFunc processes one job. A returned error dead-letters the delivery.
type HandleFunc func(ctx context.Context, jobID string) error

// Consumer feeds queued jobs to a fixed pool of workers.
type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	logger      *zap.Logger
}

func NewConsumer(url, queue string, concurrency int, logger *zap.Logger) (*Consumer, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	// never hold more unacked deliveries than workers
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, concurrency: concurrency, logger: logger}, nil
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Run consumes until ctx is done or the broker closes the delivery
// channel. In-flight jobs finish before Run returns.
func (c *Consumer) Run(ctx context.Context, handle HandleFunc) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	jobs := make(chan amqp.Delivery, c.concurrency*2)
	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.process(ctx, workerID, d, handle)
			}
		}(i)
	}

	c.logger.Info("worker started", zap.String("queue", c.queue), zap.Int("concurrency", c.concurrency))

	var runErr error
loop:
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("worker shutting down")
			break loop
		case d, ok := <-msgs:
			if !ok {
				runErr = errors.New("rabbitmq: delivery channel closed")
				break loop
			}
			jobs <- d
		}
	}
	close(jobs)
	wg.Wait()
	return runErr
}

func (c *Consumer) process(ctx context.Context, workerID int, d amqp.Delivery, handle HandleFunc) {
	var m JobMessage
	if err := json.Unmarshal(d.Body, &m); err != nil || m.JobID == "" {
		c.logger.Warn("bad job message", zap.Int("worker", workerID), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	// jobs already handed to a worker run to completion
	if err := handle(context.WithoutCancel(ctx), m.JobID); err != nil {
		c.logger.Error("job failed",
			zap.Int("worker", workerID),
			zap.String("job_id", m.JobID),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err),
		)
		_ = d.Nack(false, false)
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Warn("ack failed", zap.Int("worker", workerID), zap.String("job_id", m.JobID), zap.Error(err))
	}
}
