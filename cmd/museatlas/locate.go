package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"museatlas/internal/geocode"
	"museatlas/internal/soundscape"
)

var locateCmd = &cobra.Command{
	Use:   "locate <city>",
	Short: "Geocode a city and show which ambience it would play",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLocate,
}

func init() {
	rootCmd.AddCommand(locateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	city := strings.Join(args, " ")

	geo := geocode.NewClient(geocode.Config{
		BaseURL:   cfg.Geocode.BaseURL,
		UserAgent: cfg.Geocode.UserAgent,
		Timeout:   cfg.Geocode.Timeout.ToDuration(),
	}, log.Logger)

	place, err := geo.Lookup(cmd.Context(), city)
	if err != nil {
		return err
	}

	table, err := loadCities(cfg.Soundscape)
	if err != nil {
		return err
	}
	key := soundscape.EffectiveCityKey(city, place.DisplayName)
	url, mapped := table.Resolve(key)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", place.DisplayName)
	fmt.Fprintf(out, "  lat %.5f  lon %.5f\n", place.Latitude, place.Longitude)
	if mapped {
		fmt.Fprintf(out, "  ambience %s\n", url)
	} else {
		fmt.Fprintf(out, "  ambience %s (default)\n", url)
	}
	return nil
}
