package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geoinsight/geoinsight/pkg/client"
)

func newRankingsCommand(opts *RootOptions) *cobra.Command {
	params := client.RankingsParams{}

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Rank regions by activity in a domain",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.Rankings(cmd.Context(), params)
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "RANK\tREGION\tVALUE\tMOM%%\tYOY%%\tTREND\n")
			for _, row := range resp.Rows {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					row.Rank, row.Label, fmtOpt(row.Value),
					fmtOpt(row.MoMPct), fmtOpt(row.YoYPct), row.Trend)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&params.Domain, "domain", "", "activity domain: population|sales")
	cmd.Flags().StringVar(&params.Period, "period", "", "period: YYYY or YYYY-MM")
	cmd.Flags().StringVar(&params.Level, "level", "", "spatial level: emd|sig|sido")
	cmd.Flags().IntVar(&params.TopK, "top-k", 0, "number of rows (default 10, max 100)")
	return cmd
}

func newAnomaliesCommand(opts *RootOptions) *cobra.Command {
	params := client.AnomalyParams{}

	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Find regions deviating from their own history",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.Anomalies(cmd.Context(), params)
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "REGION\tVALUE\tZ-SCORE\tMOM%%\tANOMALY\n")
			for _, row := range resp.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
					row.Label, fmtOpt(row.Value), fmtOpt(row.ZScore),
					fmtOpt(row.MoMPct), row.IsAnomaly)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&params.Domain, "domain", "", "activity domain: population|sales")
	cmd.Flags().StringVar(&params.Period, "period", "", "period: YYYY or YYYY-MM")
	cmd.Flags().StringVar(&params.Level, "level", "", "spatial level: emd|sig|sido")
	cmd.Flags().Float64Var(&params.ZThreshold, "z-threshold", 0, "anomaly threshold in standard deviations (default 2.0)")
	return cmd
}

func newCompareCommand(opts *RootOptions) *cobra.Command {
	params := client.CompareParams{}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare foot traffic against sales for one region",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			resp, err := c.Compare(cmd.Context(), params)
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: correlation %s (%s)\n",
				resp.Region, fmtOpt(resp.Correlation), resp.Interpretation)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "MONTH\tFOOT TRAFFIC\tSALES\n")
			for _, row := range resp.Rows {
				fmt.Fprintf(w, "%s\t%s\t%s\n", row.Date, fmtOpt(row.FootTraffic), fmtOpt(row.Sales))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&params.Region, "region", "", "region name (required)")
	cmd.Flags().StringVar(&params.Period, "period", "", "period: YYYY or YYYY-MM")
	cmd.Flags().StringVar(&params.PeriodFrom, "from", "", "start of an explicit period range")
	cmd.Flags().StringVar(&params.PeriodTo, "to", "", "end of an explicit period range")
	cmd.Flags().StringSliceVar(&params.Domains, "domains", nil, "domains to compare: population,sales")
	cmd.Flags().StringVar(&params.Level, "level", "", "spatial level: emd|sig|sido")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}
