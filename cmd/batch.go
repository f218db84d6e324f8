package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resumatch/internal/pipeline"
)

var batchCmd = &cobra.Command{
	Use:   "batch <document>...",
	Short: "Evaluate several resumes and print the candidates above the threshold",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := batch(cmd, args); err != nil {
			fail(err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addJobFlags(batchCmd)
	batchCmd.Flags().Float64("threshold", pipeline.DefaultThreshold, "minimum overall match to shortlist a candidate")
	batchCmd.Flags().Int("concurrency", 1, "number of resumes evaluated at once")
	batchCmd.Flags().Bool("store", false, "store every verdict (default from storage.enabled)")

	viper.BindPFlag("batch.threshold", batchCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("batch.concurrency", batchCmd.Flags().Lookup("concurrency"))
}

type batchOutput struct {
	Qualifying []pipeline.Candidate `json:"qualifying"`
	Total      int                  `json:"total"`
	Failed     []pipeline.Failure   `json:"failed"`
}

func batch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	jd, err := jobDescription(cmd, "")
	if err != nil {
		return err
	}

	p, closeStore, err := newPipeline(ctx, config, storeEnabled(cmd, config), log)
	if err != nil {
		return err
	}
	defer closeStore()

	reqs := make([]pipeline.Request, 0, len(args))
	for _, doc := range args {
		reqs = append(reqs, pipeline.Request{DocumentPath: doc, JobDescription: jd})
	}

	items := p.RunBatch(ctx, reqs, config.Batch.Concurrency)

	return printJSON(batchOutput{
		Qualifying: pipeline.Shortlist(items, config.Batch.Threshold),
		Total:      len(items),
		Failed:     pipeline.Failures(items),
	})
}
