package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"keyenv/config"
	"keyenv/config/models"

	"github.com/mattn/go-isatty"
)

// Selector handles interactive selection of the levels a user left out
type Selector struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewSelector creates a Selector reading answers from in and writing the menu
// to out
func NewSelector(in io.Reader, out io.Writer) *Selector {
	return &Selector{reader: bufio.NewReader(in), out: out}
}

// PromptSimple presents a numbered list and returns the chosen key. Pressing
// Enter keeps current when it is one of the items.
func (s *Selector) PromptSimple(label string, items []models.Item, current string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: no %s configured", config.ErrInvalidSelection, label)
	}

	hasCurrent := false
	fmt.Fprintf(s.out, "📋 Available %ss:\n", label)
	for i, item := range items {
		entry := fmt.Sprintf("  %2d. %s", i+1, describeItem(item))
		if item.Key == current {
			hasCurrent = true
			entry = fmt.Sprintf("  ➤ %2d. %s (current)", i+1, describeItem(item))
		}
		fmt.Fprintln(s.out, entry)
	}

	if hasCurrent {
		fmt.Fprintf(s.out, "\nSelect %s (1-%d) [Enter to use '%s']: ", label, len(items), current)
	} else {
		fmt.Fprintf(s.out, "\nSelect %s (1-%d): ", label, len(items))
	}

	input, err := s.reader.ReadString('\n')
	if err != nil && input == "" {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	input = strings.TrimSpace(input)

	if input == "" {
		if hasCurrent {
			return current, nil
		}
		return "", fmt.Errorf("%w: no %s selected", config.ErrInvalidSelection, label)
	}

	// Accept a key as well as a number
	for _, item := range items {
		if item.Key == input {
			return item.Key, nil
		}
	}

	index, err := strconv.Atoi(input)
	if err != nil || index < 1 || index > len(items) {
		return "", fmt.Errorf("%w: please enter a number between 1 and %d", config.ErrInvalidSelection, len(items))
	}
	return items[index-1].Key, nil
}

func describeItem(item models.Item) string {
	if item.Name == "" || item.Name == item.Key {
		return item.Key
	}
	return fmt.Sprintf("%s (%s)", item.Key, item.Name)
}

// isInteractiveTerminal checks if stdin is an interactive terminal
func isInteractiveTerminal() bool {
	// Check for CI/non-interactive environments first
	if isCIEnvironment() {
		return false
	}

	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}

	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// isCIEnvironment checks if we're running in a CI/CD environment
func isCIEnvironment() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"BUILD_NUMBER",
		"RUN_ID",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_HOME",
		"TRAVIS",
		"CIRCLECI",
		"TEAMCITY_VERSION",
	}

	for _, envVar := range ciVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}
