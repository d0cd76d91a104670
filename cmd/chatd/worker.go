package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/suPer8Hu/gemini-chat/internal/chat"
	"github.com/suPer8Hu/gemini-chat/internal/store/rabbitmq"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume queued sends from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWorker(ctx)
		},
	}
}

func runWorker(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.RabbitURL == "" {
		return errors.New("RABBIT_URL is not set")
	}

	consumer, err := rabbitmq.NewConsumer(a.cfg.RabbitURL, a.cfg.RabbitQueue, a.cfg.WorkerConcurrency, a.logger.Named("worker"))
	if err != nil {
		return err
	}
	defer consumer.Close()

	runner := chat.NewJobRunner(a.chatRepo, a.dispatcher, a.logger.Named("jobs"))
	err = consumer.Run(ctx, runner.Handle)
	if ctx.Err() != nil {
		return nil
	}
	return err
}
