package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/throttled/ratefunc"
)

func newThrottleCmd(a *app) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "throttle",
		Short: "Print stdin lines at most once per cooldown",
		Long: `Read events from stdin, one per line, and print a line only if no other
line was printed during the last cooldown. Other lines are dropped.

With a store driver other than none, the cooldown is kept in the store
under --key, so several processes sharing the store and key are throttled
together.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openStore(a.cfg.Store, a.log)
			if err != nil {
				return err
			}
			defer closeQuietly(a.log, closeStore)

			out := cmd.OutOrStdout()
			start := time.Now()
			loop := ratefunc.NewLoop(ratefunc.LoopLogger(a.log))
			opts := append([]ratefunc.Option{
				ratefunc.WithScheduler(loop),
				ratefunc.WithLogger(a.log),
			}, storeOptions(st, key)...)

			fn, err := ratefunc.Throttle(func(line string) {
				a.log.Debug("throttle fired",
					zap.String("line", line),
					zap.Duration("elapsed", time.Since(start)))
				fmt.Fprintln(out, line)
			}, ratefunc.Delay(a.cfg.Throttle.Cooldown), opts...)
			if err != nil {
				return err
			}

			return pump(cmd.Context(), loop, cmd.InOrStdin(), 0, fn)
		},
	}
	cmd.Flags().Duration("cooldown", 500*time.Millisecond, "window after a printed line during which lines are dropped")
	cmd.Flags().StringVar(&key, "key", "throttle", "store key shared by cooperating processes")
	bindFlag(cmd.Flags(), "cooldown", "throttle.cooldown")
	return cmd
}
