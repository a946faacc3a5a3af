package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rohankatakam/feedbackd/internal/config"
	"github.com/rohankatakam/feedbackd/internal/models"
	"github.com/rohankatakam/feedbackd/internal/storage"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the recorded feedback, oldest first",
	Long: `Print the durable feedback log. The log is read without taking ownership, so
this works while the server is running (json, sqlite and postgres storage).

Formats: json, yaml, table. The default is table on a terminal and json otherwise.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "", "output format: json, yaml or table")
}

func runList(cmd *cobra.Command, args []string) error {
	if err := validate(config.ValidationContextList); err != nil {
		return err
	}

	log, err := storage.Snapshot(cmd.Context(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("read feedback log: %w", err)
	}

	format := listFormat
	if format == "" {
		format = "json"
		if term.IsTerminal(int(os.Stdout.Fd())) {
			format = "table"
		}
	}

	return writeLog(cmd.OutOrStdout(), log, format)
}

func writeLog(w io.Writer, log models.FeedbackLog, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(log)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(log)

	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tTIME\tEMOTION\tINTENSITY\tFEEDBACK\tCONTEXT")
		for i, rec := range log {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
				i+1,
				rec.Timestamp.Local().Format(time.DateTime),
				rec.EmotionType,
				rec.Intensity,
				singleLine(rec.Text),
				singleLine(rec.TriggerContext),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\n%d entries\n", len(log))
		return err

	default:
		return fmt.Errorf("unknown format %q (json, yaml, table)", format)
	}
}

// singleLine keeps a table row on one line for display; the log itself is untouched
func singleLine(s string) string {
	return strings.NewReplacer("\r\n", " ⏎ ", "\n", " ⏎ ", "\t", " ").Replace(s)
}
