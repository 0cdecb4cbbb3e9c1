package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRecordCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Record the meeting until interrupted",
		Long:  "Starts video recording through the external tool and server-side audio recording, mirrors the microphone locally, and stops everything on Ctrl+C. Attendance, if running, is stopped first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, deps); err != nil {
				return err
			}
			if err := deps.Coord.StartRecording(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "recording, Ctrl+C to stop")
			waitForInterrupt(cmd.Context())

			return deps.Coord.StopRecording(context.Background())
		},
	}
}
