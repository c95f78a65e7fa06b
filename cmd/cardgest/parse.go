package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/cardgest/internal/cards"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse FILE",
	Short: "Parse a saved model reply into cards",
	Long: `Parse a saved model reply and print the cards it contains in normalised
Q:/A: form. Use - to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read reply: %w", err)
		}

		pairs := cards.Parse(string(data))
		w := cmd.OutOrStdout()
		if parseJSON {
			if pairs == nil {
				pairs = []cards.QAPair{}
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(pairs)
		}
		fmt.Fprint(w, cards.Format(pairs))
		fmt.Fprintf(cmd.ErrOrStderr(), "%d cards\n", len(pairs))
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "print cards as JSON")
}
