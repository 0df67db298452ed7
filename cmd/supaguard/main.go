// Command supaguard verifies Supabase session tokens, either as an HTTP service or
// one token at a time from the command line.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
