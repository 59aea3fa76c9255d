package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/BartekS5/archimport/internal/queue"
	"github.com/spf13/cobra"
)

func NewWorkerCmd() *cobra.Command {
	var queueName string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run import jobs from the RabbitMQ queue",
		RunE: func(c *cobra.Command, args []string) error {
			a, err := newApp(c.OutOrStdout(), c.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.Close()

			if queueName == "" {
				queueName = a.cfg.Queue.Name
			}
			consumer, err := queue.NewConsumer(a.cfg.Queue.URL, queueName, a.cfg.Queue.Prefetch, a.runJob)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return consumer.Start(ctx)
		},
	}

	cmd.Flags().StringVarP(&queueName, "queue", "q", "", "Queue to consume (default IMPORT_QUEUE)")
	return cmd
}

// JobRequest turns a queued job into an import request with the command defaults.
func JobRequest(job queue.Job) ImportRequest {
	o := job.Options
	req := ImportRequest{
		File:         job.FilePath,
		Mapping:      job.Mapping,
		Sector:       job.Sector,
		Output:       o.Output,
		OutputFile:   o.OutputFile,
		Repository:   o.Repository,
		Parent:       o.Parent,
		Culture:      o.Culture,
		Update:       o.Update != "",
		MatchField:   o.Update,
		UpdateMode:   o.UpdateMode,
		DryRun:       o.DryRun,
		ValidateOnly: o.ValidateOnly,
		Limit:        o.Limit,
		Skip:         o.Skip,
		Sheet:        o.Sheet,
		SkipHeader:   true,
		Delimiter:    o.Delimiter,
	}
	if req.Output == "" {
		req.Output = OutputImport
	}
	if req.Delimiter == "" {
		req.Delimiter = "auto"
	}
	return req
}

func (a *app) runJob(ctx context.Context, job queue.Job) error {
	_, err := a.runImport(ctx, JobRequest(job), io.Discard)
	return err
}
