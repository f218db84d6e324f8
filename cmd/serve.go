package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation API over HTTP",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		if err := serve(); err != nil {
			fail(err, nil)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", ":8080", "address to listen on")

	viper.BindPFlag("server.listen", serveCmd.Flags().Lookup("listen"))
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	p, closeStore, err := newPipeline(ctx, config, config.Storage.Enabled, log)
	if err != nil {
		return err
	}
	defer closeStore()

	deps := server.Deps{Runner: p, Logger: log}

	notifier, err := newNotifier(ctx, config, log)
	if err != nil {
		log.Warn("email notifications disabled", zap.Error(err))
	} else {
		deps.Notifier = notifier
	}

	log.Info("starting the resumatch api", zap.String("version", version))

	return server.New(deps, server.Config{
		Listen:           config.Server.Listen,
		UploadDir:        config.Server.UploadDir,
		BatchConcurrency: config.Batch.Concurrency,
		Threshold:        config.Batch.Threshold,
	}).ListenAndServe(ctx)
}
