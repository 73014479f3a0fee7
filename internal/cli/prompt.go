package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword reads a password from file, or prompts for it. On a
// terminal the input is not echoed; otherwise one line is read from stdin.
func (a *App) readPassword(file, prompt string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fmt.Fprint(a.stderr, prompt)
	if a.tty {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(a.stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password given")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *App) readLine(prompt string) string {
	fmt.Fprint(a.stderr, prompt)
	line, _ := a.stdin.ReadString('\n')
	return strings.TrimSpace(line)
}
