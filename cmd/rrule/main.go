// Command rrule is a reference driver for the rrule library: it parses an
// RRULE or RRULESET from its argument (or stdin) and prints the resulting
// occurrences, one RFC-3339 instant per line.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gocalrec/rrule"
)

var (
	fLimit   int
	fVerbose bool

	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	rootCmd = &cobra.Command{
		Use:   "rrule <RRULE-or-RRULESET-string>",
		Short: "Print the occurrences produced by an iCalendar recurrence rule",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}
)

func init() {
	rootCmd.Flags().IntVarP(&fLimit, "limit", "l", 100, "maximum number of occurrences to print (max 65535)")
	rootCmd.Flags().BoolVarP(&fVerbose, "verbose", "v", false, "log parse/validate/iterate stages to stderr")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if fVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if fLimit < 0 || fLimit > 65535 {
		return fmt.Errorf("rrule: --limit must be between 0 and 65535, got %d", fLimit)
	}

	text, err := readInput(args[0])
	if err != nil {
		return err
	}

	log.Debug().Msg("parsing recurrence text")
	set, err := rrule.StrToRRuleSet(text)
	if err != nil {
		log.Debug().Err(err).Msg("parse failed")
		return err
	}

	log.Debug().Int("limit", fLimit).Msg("iterating occurrences")
	w := bufio.NewWriter(cmd.OutOrStdout())
	defer w.Flush()

	count := 0
	it := set.Iterator()
	for count < fLimit {
		t, ok := it()
		if !ok {
			break
		}
		fmt.Fprintln(w, t.Format(time.RFC3339))
		count++
	}
	log.Debug().Int("printed", count).Msg("done")
	return nil
}

// readInput returns the RRULESET/RRULE text from arg, or from stdin (one
// content line per line, matching StrSliceToRRuleSet's input shape) when
// arg is "-".
func readInput(arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("rrule: reading stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
