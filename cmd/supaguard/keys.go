package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Fetch the authority's key-set and list its keys",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := buildStack(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer s.Close()

		set, err := s.resolver.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "KID\tALG\tKTY\tFAMILY\tUSABLE\n")
		for _, e := range set.Entries() {
			usable := "yes"
			if _, err := e.PublicKey(""); err != nil {
				usable = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.KID, orDash(e.Alg), e.Kty, e.Family(), usable)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d keys from %s at %s\n", set.Len(), s.resolver.URL(), set.FetchedAt().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
