package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/halwest/tapline/internal/tap"
)

// ValidationResult holds schema validation output.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <message.json>",
		Short: "Validate a TAP message against the schema",
		Long: `Validate a TAP message file against the protocol schema without
dispatching it. Checks the envelope (protocol tag, version, exactly one
of query or operation) and every payload field.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, messagePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	raw, err := os.ReadFile(messagePath)
	if err != nil {
		formatter.Error("MESSAGE_READ", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read message", err)
	}

	if err := tap.ValidateBytes(raw); err != nil {
		result := ValidationResult{Valid: false, Errors: []string{err.Error()}}
		if formatErr := formatter.SuccessText(result, "INVALID: "+err.Error()); formatErr != nil {
			return formatErr
		}
		return NewExitError(ExitFailure, "message failed schema validation")
	}

	return formatter.SuccessText(ValidationResult{Valid: true}, "OK")
}
