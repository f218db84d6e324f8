package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/resumatch/internal/notify"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errDeclined = errors.New("sending declined")

var notifyCmd = &cobra.Command{
	Use:   "notify <data.json>",
	Short: "Email the shortlisted candidates listed in a data file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := sendNotifications(cmd, args[0]); err != nil {
			fail(err, map[string]any{"success": false})
		}
	},
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before sending")
}

func sendNotifications(cmd *cobra.Command, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	data, err := notify.LoadData(path)
	if err != nil {
		return err
	}

	notifier, err := newNotifier(ctx, config, log)
	if err != nil {
		return err
	}

	if approve, _ := cmd.Flags().GetBool("auto-approve"); !approve {
		if err := confirm(len(data.Candidates)); err != nil {
			return err
		}
	}

	log.Info("sending notifications", zap.Int("candidates", len(data.Candidates)))

	return printJSON(notifier.Notify(ctx, data.Candidates, data.JobDescription))
}

func confirm(candidates int) error {
	prompt := promptui.Select{
		Label:  fmt.Sprintf("Send the match email to %d candidate(s)?", candidates),
		Items:  []string{PromptYes, PromptNo},
		Stdout: os.Stderr,
	}

	_, answer, err := prompt.Run()
	if err != nil {
		return err
	}
	if answer != PromptYes {
		return errDeclined
	}
	return nil
}
