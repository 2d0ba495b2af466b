package challenge

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/golangdaddy/roadchain/pkg/challenge"
	"github.com/golangdaddy/roadchain/pkg/cmd/util"
)

var (
	date     string
	days     int
	noStatus bool
)

func NewChallengeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "prints the daily challenge",
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now()
			if date != "" {
				var err error
				if day, err = time.Parse(time.DateOnly, date); err != nil {
					return fmt.Errorf("invalid --date %q: %w", date, err)
				}
			}
			done := ""
			if !noStatus && date == "" {
				var err error
				if done, err = completedDate(cmd.Context()); err != nil {
					return err
				}
			}
			return printChallenges(cmd.OutOrStdout(), day, days, done)
		},
	}
	cmd.Flags().StringVar(&date, "date", "",
		"day to print (YYYY-MM-DD, default today)")
	cmd.Flags().IntVar(&days, "days", 1,
		"number of consecutive days to print")
	cmd.Flags().BoolVar(&noStatus, "no-status", false,
		"do not read the completion status from the store")
	return cmd
}

func completedDate(ctx context.Context) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := util.InitLogging(); err != nil {
		return "", err
	}
	st, err := util.OpenStore()
	if err != nil {
		return "", err
	}
	defer st.Close()
	return st.CompletedChallengeDate(ctx)
}

// printChallenges writes n days of challenges starting at day. A challenge
// whose date equals completed is marked done.
func printChallenges(out io.Writer, day time.Time, n int, completed string) error {
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		ch := challenge.ForDay(day.AddDate(0, 0, i))
		status := ""
		if completed != "" && ch.Date == completed {
			status = " [completed]"
		}
		if _, err := fmt.Fprintf(out, "%s  %-16s %-8s reach %d %s, reward %d%s\n",
			ch.Date, ch.Title, ch.Difficulty, ch.Target, ch.Unit, ch.Reward, status); err != nil {
			return err
		}
	}
	return nil
}
