package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"museatlas/internal/titles"
	"museatlas/internal/wordpool"
)

var (
	titlesCount   int
	titlesNoAPI   bool
	titlesExplain bool
)

var titlesCmd = &cobra.Command{
	Use:   "titles",
	Short: "Print generated artwork titles",
	Long: `Fetch the museum catalog once and print a batch of titles. When the
catalog cannot be reached the built-in word lists are used.`,
	RunE: runTitles,
}

func init() {
	titlesCmd.Flags().IntVarP(&titlesCount, "count", "n", titles.DefaultCount, "Number of titles")
	titlesCmd.Flags().BoolVar(&titlesNoAPI, "no-api", false, "Use only the built-in word lists")
	titlesCmd.Flags().BoolVar(&titlesExplain, "explain", false, "Show which template produced each title")
	rootCmd.AddCommand(titlesCmd)
}

func runTitles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pools := wordpool.Fallback()
	if !titlesNoAPI {
		loader := wordpool.NewLoader(wordpool.Config{
			URL:     cfg.Catalog.URL,
			Timeout: cfg.Catalog.Timeout.ToDuration(),
		}, log.Logger)
		pools = loader.Load(context.Background(), func(msg string) {
			log.Debug().Str("status", msg).Msg("catalog")
		})
		if pools.Degraded {
			fmt.Fprintln(cmd.ErrOrStderr(), pools.Status)
		}
	}

	for _, t := range titles.NewComposer(nil).Compose(pools, !titlesNoAPI, titlesCount) {
		if titlesExplain {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", titles.ShapeOf(t), t)
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), t)
	}
	return nil
}
