package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meetingsense/console/internal/api"
)

func newDownloadCmd(deps *Dependencies) *cobra.Command {
	var meetingID string
	var outPath string

	cmd := &cobra.Command{
		Use:   "download <summary|attendance|transcript|audio|video>",
		Short: "Download a post-meeting artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileType := api.FileType(args[0])
			if !api.ValidFileType(fileType) {
				return fmt.Errorf("unknown artifact type %q", args[0])
			}

			id, err := resolveMeetingID(deps, meetingID)
			if err != nil {
				return err
			}

			data, err := deps.Client.DownloadFile(cmd.Context(), id, fileType)
			if errors.Is(err, api.ErrStillProcessing) {
				return fmt.Errorf("%s for meeting %s is still processing, try again shortly", fileType, id)
			}
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = defaultArtifactName(id, fileType)
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (defaults to the cached meeting)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path")

	return cmd
}

func newEmailCmd(deps *Dependencies) *cobra.Command {
	var meetingID string
	var recipients []string

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Send the meeting summary email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveMeetingID(deps, meetingID)
			if err != nil {
				return err
			}
			if err := deps.Client.SendMeetingEmail(cmd.Context(), id, recipients); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "email queued")
			return nil
		},
	}

	cmd.Flags().StringVarP(&meetingID, "meeting", "m", "", "Meeting ID (defaults to the cached meeting)")
	cmd.Flags().StringSliceVarP(&recipients, "to", "t", nil, "Extra recipient (repeatable)")

	return cmd
}

// resolveMeetingID prefers an explicit flag and falls back to the cached
// meeting snapshot, which outlives the meeting itself so artifacts remain
// reachable after end.
func resolveMeetingID(deps *Dependencies, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cached, err := deps.Store.LoadMeeting()
	if err != nil {
		return "", err
	}
	if cached == nil || cached.ID == "" {
		return "", errors.New("no cached meeting, pass --meeting")
	}
	return cached.ID, nil
}

func defaultArtifactName(meetingID string, fileType api.FileType) string {
	ext := ".txt"
	switch fileType {
	case api.FileAudio:
		ext = ".wav"
	case api.FileVideo:
		ext = ".mp4"
	case api.FileSummary:
		ext = ".pdf"
	case api.FileAttendance:
		ext = ".csv"
	}
	return strings.Join([]string{"meeting", meetingID, string(fileType)}, "_") + ext
}
