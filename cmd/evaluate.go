package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/pipeline"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <document> [base64-job-description]",
	Short: "Evaluate a resume against a job description and print the verdict as JSON",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := evaluate(cmd, args); err != nil {
			fail(err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	addJobFlags(evaluateCmd)
	evaluateCmd.Flags().Bool("store", false, "store the verdict (default from storage.enabled)")
}

func evaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	encoded := ""
	if len(args) > 1 {
		encoded = args[1]
	}

	jd, err := jobDescription(cmd, encoded)
	if err != nil {
		return err
	}

	p, closeStore, err := newPipeline(ctx, config, storeEnabled(cmd, config), log)
	if err != nil {
		return err
	}
	defer closeStore()

	log.Debug("evaluating resume", zap.String("document", args[0]), zap.String("version", version))

	result, err := p.Run(ctx, pipeline.Request{DocumentPath: args[0], JobDescription: jd})
	if err != nil {
		return err
	}

	encodedVerdict, err := result.Verdict.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding verdict: %w", err)
	}

	_, err = fmt.Fprintln(stdout, string(encodedVerdict))
	return err
}
