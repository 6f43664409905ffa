package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// TerminalPasswordReader disables echo when stdin is a terminal and falls back to
// reading plain lines when input is piped.
func TerminalPasswordReader(stdin *os.File, prompts io.Writer) PasswordReader {
	var piped *bufio.Reader
	return func(prompt string) (string, error) {
		if stdin == nil {
			return "", errors.New("stdin unavailable")
		}
		fmt.Fprint(prompts, prompt)

		fd := int(stdin.Fd())
		if term.IsTerminal(fd) {
			raw, err := term.ReadPassword(fd)
			fmt.Fprintln(prompts)
			if err != nil {
				return "", err
			}
			return string(raw), nil
		}

		if piped == nil {
			piped = bufio.NewReader(stdin)
		}
		line, err := piped.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		if errors.Is(err, io.EOF) && line == "" {
			return "", io.ErrUnexpectedEOF
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}
