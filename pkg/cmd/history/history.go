package history

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/golangdaddy/roadchain/pkg/cmd/util"
	"github.com/golangdaddy/roadchain/pkg/models"
)

var limit int

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "prints the high score and the latest races",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := util.InitLogging(); err != nil {
				return err
			}
			st, err := util.OpenStore()
			if err != nil {
				return err
			}
			defer st.Close()

			best, err := st.HighScore(ctx)
			if err != nil {
				return err
			}
			h, err := st.History(ctx)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), best, h, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10,
		"number of races to print (0 prints all)")
	return cmd
}

func printHistory(out io.Writer, best int, h *models.History, n int) error {
	fmt.Fprintf(out, "high score: %d\n", best)
	last, ok := h.Latest()
	if !ok {
		fmt.Fprintln(out, "no races yet")
		return nil
	}
	fmt.Fprintf(out, "last race: %d with %s\n", last.Score, last.CarUsed)
	fmt.Fprintf(out, "best of %d stored races: %d\n", h.Len(), h.BestScore())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLAYED\tCAR\tSCORE\tDISTANCE\tAVOIDED\tBONUS\tLAP\t")
	for i, e := range h.Entries {
		if n > 0 && i >= n {
			break
		}
		mark := ""
		if e.IsNewHighScore {
			mark = " *"
		}
		fmt.Fprintf(w, "%s\t%s\t%d%s\t%dm\t%d\t%d\t%s\t\n",
			e.Timestamp.Local().Format(time.DateTime), e.CarUsed, e.Score, mark, e.Distance,
			e.ObstaclesAvoided, e.BonusBoxesCollected, e.LapTime.Round(100*time.Millisecond))
	}
	return w.Flush()
}
