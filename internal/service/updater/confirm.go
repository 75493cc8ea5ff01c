package updater

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/oshokin/factorio-modupdate/internal/domain/mod"
)

// confirmationPrompt is shown after the plan.
const confirmationPrompt = "Do you want to update these mods? (yes/no): "

// PrintPlan writes one "name: old --> new" line per entry.
func PrintPlan(out io.Writer, plan mod.Plan) error {
	var builder strings.Builder

	builder.WriteString("\nMods to update:\n")

	for _, entry := range plan {
		builder.WriteString(entry.String())
		builder.WriteByte('\n')
	}

	_, err := io.WriteString(out, builder.String())

	return err
}

// Confirm prints the plan, asks the operator once and reports whether the answer is affirmative.
// End of input without an answer declines.
func Confirm(out io.Writer, in io.Reader, plan mod.Plan) (bool, error) {
	if err := PrintPlan(out, plan); err != nil {
		return false, fmt.Errorf("print plan: %w", err)
	}

	if _, err := io.WriteString(out, confirmationPrompt); err != nil {
		return false, fmt.Errorf("print prompt: %w", err)
	}

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read confirmation: %w", err)
	}

	return IsAffirmative(answer), nil
}

// IsAffirmative accepts "yes" and "y" in any case, ignoring surrounding whitespace.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}
