package cmd

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

// printJSON writes v to stdout as a single JSON document.
func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// fail reports err on stdout in the machine-readable form and exits with status 1.
func fail(err error, extra map[string]any) {
	out := map[string]any{"error": err.Error()}
	for k, v := range extra {
		out[k] = v
	}
	_ = printJSON(out)
	exit(1)
}

// jobDescription resolves the job description from, in order, the --job-file flag,
// the --job-text flag and a base64 encoded positional argument.
func jobDescription(cmd *cobra.Command, encoded string) (string, error) {
	file, _ := cmd.Flags().GetString("job-file")
	text, _ := cmd.Flags().GetString("job-text")

	var jd string
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description: %w", err)
		}
		jd = string(data)
	case text != "":
		jd = text
	case encoded != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
		if err != nil {
			return "", fmt.Errorf("decoding job description: %w", err)
		}
		jd = string(data)
	}

	if strings.TrimSpace(jd) == "" {
		return "", errors.New("job description is required")
	}
	return jd, nil
}

func addJobFlags(cmd *cobra.Command) {
	cmd.Flags().String("job-file", "", "read the job description from a file")
	cmd.Flags().String("job-text", "", "job description as plain text")
	cmd.MarkFlagsMutuallyExclusive("job-file", "job-text")
}

// storeEnabled lets an explicit --store flag override storage.enabled.
func storeEnabled(cmd *cobra.Command, config *Config) bool {
	if cmd.Flags().Changed("store") {
		enabled, _ := cmd.Flags().GetBool("store")
		return enabled
	}
	return config.Storage.Enabled
}
