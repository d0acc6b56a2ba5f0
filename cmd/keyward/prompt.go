// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// prompter reads answers line by line from the command's input. Prompts go
// to stderr so stdout stays machine-readable.
type prompter struct {
	in  *bufio.Reader
	out io.Writer

	// ttyFD is the terminal file descriptor, or -1 when input is not a terminal.
	ttyFD int
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	p := &prompter{
		in:    bufio.NewReader(in),
		out:   cmd.ErrOrStderr(),
		ttyFD: -1,
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.ttyFD = int(f.Fd())
	}
	return p
}

// ask prints the prompt and returns the next line without its line ending.
// End of input yields an empty answer.
func (p *prompter) ask(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("INPUT_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// askSecret is ask without echo when reading from a terminal.
func (p *prompter) askSecret(prompt string) (string, error) {
	if p.ttyFD < 0 {
		return p.ask(prompt)
	}
	fmt.Fprint(p.out, prompt)
	secret, err := term.ReadPassword(p.ttyFD)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", oops.Code("INPUT_FAILED").Wrap(err)
	}
	return string(secret), nil
}

// confirm asks a yes/no question; only y or yes confirms.
func (p *prompter) confirm(prompt string) (bool, error) {
	answer, err := p.ask(prompt)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// newPassword reads a password and its confirmation.
func (p *prompter) newPassword(username string) (string, error) {
	password, err := p.askSecret(fmt.Sprintf("Enter password for '%s': ", username))
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", oops.Code("ABORTED").Errorf("aborted: empty password")
	}
	confirmation, err := p.askSecret("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirmation {
		return "", oops.Code("ABORTED").Errorf("aborted: passwords do not match")
	}
	return password, nil
}
