package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PaulFidika/supaguard/core"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [token]",
	Short: "Verify a token and print its claims",
	Long:  `Verify a token given as the argument, or read from stdin when none is given, and print its claims as JSON.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readToken(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		s, err := buildStack(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer s.Close()

		claims, err := s.verifier.Verify(cmd.Context(), token)
		if err != nil {
			return fmt.Errorf("token rejected (%s): %w", core.KindOf(err), err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(claims)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func readToken(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	if f, ok := stdin.(*os.File); ok {
		if st, err := f.Stat(); err == nil && st.Mode()&os.ModeCharDevice != 0 {
			return "", fmt.Errorf("no token given: pass it as an argument or pipe it on stdin")
		}
	}
	line, err := bufio.NewReader(io.LimitReader(stdin, 64<<10)).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "Bearer "))
	if line == "" {
		return "", fmt.Errorf("no token on stdin")
	}
	return line, nil
}
