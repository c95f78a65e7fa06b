package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sectionsDate string

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the headings of the day's note and the one that matches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(sectionsDate)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, stderrLogger(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.runner.Sections(cmd.Context(), day)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: %d headings\n", out.NoteTitle, len(out.Headings))
		for i, h := range out.Headings {
			marker := " "
			if out.Match != nil && h == out.Match.Date {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %3d. %s\n", marker, i+1, h)
		}
		switch {
		case !out.IsFullDoc:
			fmt.Fprintln(w, "note is a single day; it is used whole")
		case out.Match == nil:
			fmt.Fprintf(w, "no heading for %s\n", day.Format("2006-01-02"))
		default:
			fmt.Fprintf(w, "match: %s (%d characters)\n", out.Match.Date, len([]rune(out.Match.Content)))
		}
		return nil
	},
}

func init() {
	sectionsCmd.Flags().StringVar(&sectionsDate, "date", "", "day to look for as YYYY-MM-DD (default: today)")
}
