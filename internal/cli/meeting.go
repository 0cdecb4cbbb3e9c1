package cli

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meetingsense/console/internal/api"
)

func newCreateCmd(deps *Dependencies) *cobra.Command {
	var agenda string
	var emails []string

	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meeting, err := deps.Coord.CreateMeeting(cmd.Context(), args[0], agenda, emails)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "meeting %s created (%s)\n", meeting.ID, meeting.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&agenda, "agenda", "a", "", "Meeting agenda")
	cmd.Flags().StringSliceVarP(&emails, "email", "e", nil, "Recipient email (repeatable)")

	return cmd
}

func newEndCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the current meeting and wait for post-processing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, deps); err != nil {
				return err
			}
			result, err := deps.Coord.EndMeeting(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "meeting %q ended, duration %s\n", result.DisplayTitle(), result.Duration)
			if len(result.Files) > 0 {
				names := make([]string, 0, len(result.Files))
				for name := range result.Files {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(out, "artifacts:")
				for _, name := range names {
					note := "processing"
					if ready, err := deps.Client.CheckFileExists(cmd.Context(), result.Folder, result.Files[name]); err == nil && ready {
						note = "ready"
					}
					fmt.Fprintf(out, "  %s\t%s\t%s\n", name, result.Files[name], note)
				}
				if ready, videoFile, err := deps.Client.CheckVideoFile(cmd.Context(), result.Folder); err == nil && ready {
					fmt.Fprintf(out, "  video\t%s\tready\n", videoFile)
				}
			}
			return nil
		},
	}
}

func newStatusCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and session status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := deps.Client.SystemStatus(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "meeting active\t%v\n", status.MeetingActive)
			fmt.Fprintf(w, "attendance active\t%v\n", status.AttendanceActive)
			fmt.Fprintf(w, "video recording\t%v\n", status.VideoRecordingActive)
			fmt.Fprintf(w, "audio recording\t%v\n", status.AudioRecordingActive)
			fmt.Fprintf(w, "camera active\t%v\n", status.CameraActive)
			fmt.Fprintf(w, "known persons\t%d\n", status.KnownPersons)
			fmt.Fprintf(w, "recognized now\t%d\n", status.RecognizedNow)
			if status.MeetingActive {
				if ms, err := deps.Client.MeetingStatus(cmd.Context()); err == nil {
					if meeting, ok := ms["meeting"].(map[string]interface{}); ok {
						if title, ok := meeting["title"].(string); ok {
							fmt.Fprintf(w, "meeting title\t%s\n", api.CleanTitle(title))
						}
					}
					if avail, ok := ms["transcript_available"].(bool); ok {
						fmt.Fprintf(w, "transcript available\t%v\n", avail)
					}
				}
			}
			if status.VideoRecordingActive {
				if confirmed, err := deps.Client.VideoRecordingStatus(cmd.Context()); err == nil {
					fmt.Fprintf(w, "recorder confirms\t%v\n", confirmed)
				}
			}
			if cached, _ := deps.Store.LoadMeeting(); cached != nil {
				fmt.Fprintf(w, "cached meeting\t%s (%s)\n", cached.ID, cached.DisplayTitle())
			}
			return w.Flush()
		},
	}
}

func newResetCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Force-stop everything and clear tracking state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, deps); err != nil {
				return err
			}
			return deps.Coord.Reset(cmd.Context())
		},
	}
}

// restoreSession re-adopts a previously created meeting before a command
// that needs one. A missing snapshot is not an error here; the operation
// itself rejects with a clear message when no meeting exists.
func restoreSession(cmd *cobra.Command, deps *Dependencies) error {
	if err := deps.Coord.Restore(cmd.Context()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not restore session: %v\n", err)
	}
	return nil
}
