package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Suryanshpandey5492/WebVision/pkg/agent"
	"github.com/Suryanshpandey5492/WebVision/pkg/store"
	"github.com/Suryanshpandey5492/WebVision/pkg/types"
)

type runFlags struct {
	budget      int
	concurrency int
	copy        bool
	json        bool
	plain       bool
	profileInfo string
}

func newRunCmd(c *cli) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [task...]",
		Short: "Run one or more tasks and print their answers",
		Long: `Run answers each argument as a separate task. Quote multi-word tasks.
With no arguments, tasks are read from standard input, one per line.`,
		Example: `  webvision run "What is the capital of France?"
  webvision run --json --concurrency 2 "task one" "task two"
  cat tasks.txt | webvision run --plain`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := args
			if len(tasks) == 0 {
				var err error
				if tasks, err = readTasks(cmd.InOrStdin()); err != nil {
					return err
				}
			}
			if len(tasks) == 0 {
				return errors.New("no task given")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Warnf("shutdown: %v", err)
				}
			}()
			var st store.Store
			if c.cfg.Store.DSN != "" {
				st = a.store
			}
			return runTasks(ctx, cmd, a.agent, st, tasks, f)
		},
	}
	cmd.Flags().IntVar(&f.budget, "budget", 0, "step budget per task (default from config)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "tasks to run at once")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "copy the answers to the clipboard")
	cmd.Flags().BoolVar(&f.json, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "disable the live progress view")
	cmd.Flags().StringVar(&f.profileInfo, "profile-info", "", "context about the target to include in prompts")
	return cmd
}

// runTasks runs tasks on r, records them in st and prints the results.
func runTasks(ctx context.Context, cmd *cobra.Command, r agent.Runner, st store.Store, tasks []string, f *runFlags) error {
	var opts []agent.RunOption
	if f.budget > 0 {
		opts = append(opts, agent.WithBudget(f.budget))
	}
	if f.profileInfo != "" {
		opts = append(opts, agent.WithProfileInfo(f.profileInfo))
	}

	out := cmd.OutOrStdout()
	var (
		results  []agent.BatchResult
		batchErr error
	)
	work := func(ctx context.Context, sink types.EventSink) error {
		runOpts := opts
		if sink != nil {
			runOpts = append(append([]agent.RunOption(nil), opts...), agent.WithRunEvents(sink))
		}
		results, batchErr = agent.RunBatch(ctx, r, tasks, f.concurrency, runOpts...)
		return batchErr
	}

	if !f.plain && !f.json && isTerminal(out) {
		_ = withProgress(ctx, cmd.ErrOrStderr(), work)
	} else {
		_ = work(ctx, nil)
	}

	if st != nil {
		now := time.Now()
		for _, res := range results {
			if res.Result.RunID == "" {
				continue
			}
			if err := st.Save(ctx, store.FromResult(res.Task, res.Result, now)); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to record run %s: %v\n", res.Result.RunID, err)
			}
		}
	}

	var err error
	if f.json {
		err = writeJSON(out, toOutputs(results), isTerminal(out))
	} else {
		err = writeText(out, results)
	}
	if err != nil {
		return err
	}

	if f.copy {
		if text := answers(results); text != "" {
			if err := clipboard.WriteAll(text); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "copy to clipboard: %v\n", err)
			}
		}
	}
	return batchErr
}

// readTasks returns the non-blank lines of r.
func readTasks(r io.Reader) ([]string, error) {
	var tasks []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			tasks = append(tasks, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tasks: %w", err)
	}
	return tasks, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}
