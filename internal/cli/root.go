// Package cli wires the session coordinator and REST client into the
// console commands.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meetingsense/console/internal/api"
	"github.com/meetingsense/console/internal/config"
	"github.com/meetingsense/console/internal/session"
	"github.com/meetingsense/console/internal/store"
)

type Dependencies struct {
	Config config.Config
	Client *api.Client
	Coord  *session.Coordinator
	Store  *store.Store
}

func NewRootCmd(deps *Dependencies) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "meetingsense",
		Short:         "Console for the meeting attendance and recording server",
		Long:          "Creates meetings, runs face-recognition attendance, drives audio and video recording, and fetches post-meeting artifacts from a MeetingSense server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newCreateCmd(deps))
	rootCmd.AddCommand(newAttendCmd(deps))
	rootCmd.AddCommand(newRecordCmd(deps))
	rootCmd.AddCommand(newEndCmd(deps))
	rootCmd.AddCommand(newStatusCmd(deps))
	rootCmd.AddCommand(newResetCmd(deps))
	rootCmd.AddCommand(newReportCmd(deps))
	rootCmd.AddCommand(newRegisterCmd(deps))
	rootCmd.AddCommand(newDownloadCmd(deps))
	rootCmd.AddCommand(newEmailCmd(deps))

	return rootCmd
}

// waitForInterrupt blocks until Ctrl+C, SIGTERM or context cancellation.
func waitForInterrupt(ctx context.Context) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)
	select {
	case <-stop:
	case <-ctx.Done():
	}
}
