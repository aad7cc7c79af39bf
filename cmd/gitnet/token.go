package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gitnet/internal/api"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the API bearer token",
}

var tokenHashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a bearer token for server.tokenHash",
	Long: `Read a token and print its bcrypt hash. Store the hash as server.tokenHash
in .gitnet/config.json; clients then send "Authorization: Bearer <token>".

The token is read without echo from a terminal, or from stdin when piped.

Examples:
  gitnet token hash
  echo -n "$TOKEN" | gitnet token hash`,
	Args: cobra.NoArgs,
	RunE: runTokenHash,
}

func init() {
	tokenCmd.AddCommand(tokenHashCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenHash(cmd *cobra.Command, args []string) error {
	token, err := readToken(os.Stdin, os.Stderr)
	if err != nil {
		return err
	}
	hash, err := api.HashToken(token)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

// readToken prompts on a terminal and reads one line otherwise.
func readToken(in *os.File, prompt io.Writer) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(prompt, "Token: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}
