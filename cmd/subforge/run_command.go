package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subforge/internal/config"
	"subforge/internal/queue"
	"subforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued jobs",
		Long:  "Drains the queue and exits. With --watch, keeps polling for new jobs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueStore(func(cfg *config.Config, store *queue.Store) error {
				logger, err := ctx.newLogger(!watch)
				if err != nil {
					return err
				}
				deps, err := workflow.BuildDeps(cfg, logger)
				if err != nil {
					return err
				}
				if workers <= 0 {
					workers = cfg.Pipeline.Workers
				}
				runner, err := workflow.NewRunner(cfg, store, deps, logger, workflow.Options{Workers: workers})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if !watch {
					handled, err := runner.Drain(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Processed %d job(s)\n", handled)
					return nil
				}

				runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				if err := runner.Start(runCtx); err != nil {
					return err
				}
				fmt.Fprintf(out, "Watching queue with %d worker(s); press Ctrl-C to stop\n", workers)
				<-runCtx.Done()
				runner.Stop()
				fmt.Fprintln(out, "Stopped")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep running and poll for new jobs")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent jobs (defaults to pipeline.workers)")
	return cmd
}
