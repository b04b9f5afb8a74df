package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// prompter reads scans and answers from one input. Secrets are read
// without echo when the input is a terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
	tty bool
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.tty = true
	}
	return p
}

func (p *prompter) line(label string) (string, error) {
	if label != "" {
		fmt.Fprint(p.out, label)
	}
	raw, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || raw == "") {
		return "", err
	}
	return strings.TrimSpace(raw), nil
}

func (p *prompter) secret(label string) ([]byte, error) {
	if !p.tty {
		raw, err := p.line(label)
		return []byte(raw), err
	}
	fmt.Fprint(p.out, label)
	pw, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		wipe(pw)
		return nil, fmt.Errorf("secret input failed: %w", err)
	}
	return pw, nil
}

func (p *prompter) confirm(label string) (bool, error) {
	raw, err := p.line(label)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(raw) {
	case "y", "yes", "p", "proceed":
		return true, nil
	}
	return false, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
