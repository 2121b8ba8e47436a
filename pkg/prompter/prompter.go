package prompter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

var (
	in      *bufio.Reader = bufio.NewReader(os.Stdin)
	out     io.Writer     = os.Stdout
	stdinFd int           = int(os.Stdin.Fd())
)

// SetIO redirects prompts, mostly for tests. Password prompts read lines
// when the input is not a terminal.
func SetIO(r io.Reader, w io.Writer) {
	in = bufio.NewReader(r)
	out = w
	stdinFd = -1
	if f, ok := r.(*os.File); ok {
		stdinFd = int(f.Fd())
	}
}

func readLine() (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptString prompts user for a string input
func PromptString(label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptRequired repeats the prompt until a non-empty answer is given
func PromptRequired(label string) (string, error) {
	for {
		s, err := PromptString(label)
		if err != nil {
			return "", err
		}
		if s != "" {
			return s, nil
		}
		fmt.Fprintln(out, "A value is required.")
	}
}

// PromptPassword prompts user for a password (hidden input)
func PromptPassword(label string) (string, error) {
	fmt.Fprint(out, label)

	if stdinFd < 0 || !term.IsTerminal(stdinFd) {
		return readLine()
	}

	pw, err := term.ReadPassword(stdinFd)
	fmt.Fprintln(out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

// PromptConfirm prompts user for yes/no confirmation
func PromptConfirm(label string) (bool, error) {
	fmt.Fprint(out, label+" (y/n) ")
	line, err := readLine()
	if err != nil {
		return false, err
	}

	response := strings.TrimSpace(strings.ToLower(line))
	return response == "y" || response == "yes", nil
}

// PromptSelect prompts user to select from options
func PromptSelect(label string, options []string) (int, error) {
	fmt.Fprintln(out, label)
	for i, opt := range options {
		fmt.Fprintf(out, "%d) %s\n", i+1, opt)
	}

	fmt.Fprint(out, "Select option: ")
	line, err := readLine()
	if err != nil {
		return -1, err
	}

	selection, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return -1, fmt.Errorf("invalid selection %q", strings.TrimSpace(line))
	}
	if selection < 1 || selection > len(options) {
		return -1, fmt.Errorf("invalid selection")
	}

	return selection - 1, nil
}

// PromptMultilineString reads lines until an empty line or maxLines
func PromptMultilineString(label string, maxLines int) (string, error) {
	fmt.Fprintf(out, "%s (finish with an empty line):\n", label)

	var lines []string
	for len(lines) < maxLines {
		line, err := readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n"), nil
}
