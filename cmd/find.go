package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/feedfirst/pantry-cli/internal/pantry"
	"github.com/feedfirst/pantry-cli/internal/resolve"
	"github.com/feedfirst/pantry-cli/internal/search"
	"github.com/feedfirst/pantry-cli/pkg/ipinfo"
	"github.com/feedfirst/pantry-cli/pkg/nominatim"
)

var (
	findTop        int
	findRadius     float64
	findAutolocate bool
)

var findCmd = &cobra.Command{
	Use:   "find [address|postal code|lat,lon]",
	Short: "Find the nearest food pantries to a location",
	Long: `Resolves a location and ranks the pantry dataset by distance from it.

The location may be given three ways, in order of precedence:
  - a "lat,lon" coordinate pair, used directly with no network call
  - free text (street address, city, postal code), geocoded via Nominatim
  - --autolocate, which approximates your position from your IP address

Examples:
  pantry-cli find "350 E Market St, Akron, OH"
  pantry-cli find 41.0813,-81.5190 --top 3
  pantry-cli find --autolocate --radius 25`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := pantry.Load(cfg.Dataset.Path)
		if err != nil {
			return err
		}

		geocoder := nominatim.NewClient(cfg.Geocode.UserAgent,
			nominatim.WithBaseURL(cfg.Geocode.BaseURL),
			nominatim.WithTimeout(time.Duration(cfg.Geocode.TimeoutSecs)*time.Second),
			nominatim.WithRateLimit(cfg.Geocode.RateRPS),
		)
		locator := ipinfo.NewClient(
			ipinfo.WithBaseURL(cfg.Autolocate.BaseURL),
			ipinfo.WithTimeout(time.Duration(cfg.Autolocate.TimeoutSecs)*time.Second),
		)

		var input string
		if len(args) == 1 {
			input = strings.TrimSpace(args[0])
		}

		params := search.Params{TopN: findTop}
		if cmd.Flags().Changed("radius") {
			params.RadiusKm = &findRadius
		}

		return runFind(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(),
			records, geocoder, locator, input, findAutolocate, params)
	},
}

func init() {
	findCmd.Flags().IntVarP(&findTop, "top", "n", 1, "return the N nearest pantries")
	findCmd.Flags().Float64VarP(&findRadius, "radius", "r", 0, "maximum search radius in km")
	findCmd.Flags().BoolVar(&findAutolocate, "autolocate", false, "approximate your location from your IP address")
	rootCmd.AddCommand(findCmd)
}

// runFind is the full find pipeline: resolve origin, rank the dataset,
// interactively pick when ambiguous, render.
func runFind(ctx context.Context, out io.Writer, in io.Reader, records []pantry.Record,
	g resolve.Geocoder, l resolve.Locator, input string, autolocate bool, params search.Params) error {

	reader := bufio.NewReader(in)

	res, err := resolveOrigin(ctx, out, reader, g, l, input, autolocate)
	if err != nil {
		return err
	}
	reportOrigin(out, res)

	results, err := search.Nearest(res.Coord, records, params)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		// A valid outcome, not a failure: exit 0 with a distinct message.
		fmt.Fprintln(out, "No pantries found within the given radius or dataset.")
		return nil
	}

	idx := 0
	if len(results) > 1 {
		idx, err = selectResult(out, reader, results)
		if err != nil {
			return err
		}
	}

	chosen := results[idx]
	fmt.Fprintf(out, "Selected pantry: %s\n", chosen.Record.Name)
	fmt.Fprintf(out, "Address: %s\n", chosen.Record.Address)
	fmt.Fprintf(out, "Distance: %.2f km\n", chosen.DistanceKm)
	fmt.Fprintf(out, "Location: %s\n", chosen.Record.Location)
	return nil
}

// resolveOrigin runs the selected resolution strategy. An autolocate failure
// is recoverable: the user is prompted for manual input. Geocode failures are
// surfaced to the caller, which exits non-zero.
func resolveOrigin(ctx context.Context, out io.Writer, in *bufio.Reader,
	g resolve.Geocoder, l resolve.Locator, input string, autolocate bool) (*resolve.Resolution, error) {

	strategy := resolve.Select(input, autolocate, g, l)
	if strategy == nil {
		manual, err := promptLine(out, in, "Enter your address (or 'lat,lon'): ")
		if err != nil {
			return nil, err
		}
		if strategy = resolve.Select(manual, false, g, l); strategy == nil {
			return nil, eris.New("find: no location provided")
		}
		input = manual
	}

	if strategy.Name() == string(resolve.SourceGeocode) && looksLikePostalCode(input) {
		fmt.Fprintln(out, "Detected postal code-like input; attempting geocoding.")
	}

	res, err := strategy.Resolve(ctx)
	if err == nil {
		return res, nil
	}
	if !eris.Is(err, resolve.ErrAutolocate) {
		return nil, err
	}

	// Autolocation is best-effort; fall back to manual entry.
	zap.L().Debug("autolocate failed", zap.Error(err))
	fmt.Fprintln(out, "Autolocate failed; please enter an address or coordinates.")
	manual, promptErr := promptLine(out, in, "Enter your address (or 'lat,lon'): ")
	if promptErr != nil {
		return nil, promptErr
	}
	strategy = resolve.Select(manual, false, g, l)
	if strategy == nil {
		return nil, err
	}
	return strategy.Resolve(ctx)
}

// reportOrigin tells the user where the search starts from and how that
// position was obtained, since geocoding and autolocation are approximations.
func reportOrigin(out io.Writer, res *resolve.Resolution) {
	switch res.Source {
	case resolve.SourceGeocode:
		fmt.Fprintf(out, "Geocoded to: %s (%s)\n", res.Coord, res.Label)
	case resolve.SourceAutolocate:
		if res.Label != "" {
			fmt.Fprintf(out, "Autolocated to: %s (%s)\n", res.Coord, res.Label)
		} else {
			fmt.Fprintf(out, "Autolocated to: %s\n", res.Coord)
		}
	default:
		fmt.Fprintf(out, "Searching from: %s\n", res.Coord)
	}
}

// selectResult shows a 1-indexed menu and blocks for one choice. Enter picks
// the first entry; anything out of range or non-numeric re-prompts. Only a
// read failure (closed input) ends the loop early.
func selectResult(out io.Writer, in *bufio.Reader, results []search.Result) (int, error) {
	fmt.Fprintln(out, "Multiple matches found:")
	for i, r := range results {
		fmt.Fprintf(out, "%d. %s - %s (%.2f km)\n", i+1, r.Record.Name, r.Record.Address, r.DistanceKm)
	}

	for {
		fmt.Fprintf(out, "Select 1-%d (or Enter to pick 1): ", len(results))
		line, err := in.ReadString('\n')
		choice := strings.TrimSpace(line)

		if choice == "" {
			if err != nil {
				return 0, eris.Wrap(err, "find: read selection")
			}
			return 0, nil
		}
		if n, convErr := strconv.Atoi(choice); convErr == nil && n >= 1 && n <= len(results) {
			return n - 1, nil
		}

		fmt.Fprintln(out, "Invalid choice; try again.")
		if err != nil {
			return 0, eris.Wrap(err, "find: read selection")
		}
	}
}

func promptLine(out io.Writer, in *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := in.ReadString('\n')
	trimmed := strings.TrimSpace(line)
	if trimmed == "" && err != nil {
		return "", eris.Wrap(err, "find: read input")
	}
	return trimmed, nil
}

// looksLikePostalCode reports whether the input is a short token containing a
// digit. Detection only drives a notice line; the input is geocoded as free
// text either way.
func looksLikePostalCode(s string) bool {
	t := strings.TrimSpace(s)
	if len(t) == 0 || len(t) > 10 {
		return false
	}
	for _, r := range t {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
