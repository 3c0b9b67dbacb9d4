package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter reads the shell's line-oriented input.
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
	// tty is the descriptor of an interactive input, or -1.
	tty int
}

// NewPrompter reads from in and prints prompts to out. When in is a
// terminal, passwords are read without echo.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	p := &Prompter{scanner: bufio.NewScanner(in), out: out, tty: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = int(f.Fd())
	}
	return p
}

// Ask prints label and returns the next line without surrounding spaces.
// io.EOF is returned once input is exhausted.
func (p *Prompter) Ask(label string) (string, error) {
	line, err := p.AskRaw(label)
	return strings.TrimSpace(line), err
}

// AskRaw is Ask without trimming, for values such as passwords.
func (p *Prompter) AskRaw(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

// AskPassword reads a secret. On a terminal echo is switched off for the
// line; piped input is read like AskRaw.
func (p *Prompter) AskPassword(label string) (string, error) {
	if p.tty < 0 {
		return p.AskRaw(label)
	}
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	b, err := term.ReadPassword(p.tty)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// Confirm asks a yes/no question; anything but y or yes is no.
func (p *Prompter) Confirm(label string) (bool, error) {
	ans, err := p.Ask(label + " [y/N]: ")
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(ans) {
	case "y", "yes":
		return true, nil
	}
	return false, err
}

// Fields splits a command line into words. Double quotes group words and
// are removed; an unterminated quote runs to the end of the line.
func Fields(line string) []string {
	var (
		out    []string
		cur    strings.Builder
		quote  bool
		inWord bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quote = !quote
			inWord = true
		case !quote && (r == ' ' || r == '\t'):
			if inWord {
				out = append(out, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inWord {
		out = append(out, cur.String())
	}
	return out
}
