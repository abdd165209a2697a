package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/throttled/ratefunc"
)

func newDebounceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debounce",
		Short: "Print a stdin line once input has been quiet for the delay",
		Long: `Read events from stdin, one per line, and print a line only when no
other line followed it within the delay. A burst of lines prints its last
line once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			delay := a.cfg.Debounce.Delay
			out := cmd.OutOrStdout()
			start := time.Now()

			loop := ratefunc.NewLoop(ratefunc.LoopLogger(a.log))
			fn, err := ratefunc.Debounce(func(line string) {
				a.log.Info("debounce fired",
					zap.String("line", line),
					zap.Duration("elapsed", time.Since(start)))
				fmt.Fprintln(out, line)
			}, ratefunc.Delay(delay), ratefunc.WithScheduler(loop), ratefunc.WithLogger(a.log))
			if err != nil {
				return err
			}

			return pump(cmd.Context(), loop, cmd.InOrStdin(), delay+settleMargin, fn)
		},
	}
	cmd.Flags().Duration("delay", 300*time.Millisecond, "quiet period before a line is printed")
	bindFlag(cmd.Flags(), "delay", "debounce.delay")
	return cmd
}
