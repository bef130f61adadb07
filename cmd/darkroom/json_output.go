package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// writeJSON renders payload as indented JSON on the command's stdout.
func writeJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
