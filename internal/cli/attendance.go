package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meetingsense/console/internal/api"
	"github.com/meetingsense/console/internal/capture"
	"github.com/meetingsense/console/internal/logging"
)

func newAttendCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "attend",
		Short: "Run attendance tracking until interrupted",
		Long:  "Starts face-recognition attendance on the server, streams the per-frame headline (detected, present, rate) and stops tracking on Ctrl+C.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := restoreSession(cmd, deps); err != nil {
				return err
			}
			if err := deps.Coord.StartAttendance(cmd.Context()); err != nil {
				return err
			}

			pollCtx, cancelPoll := context.WithCancel(cmd.Context())
			defer cancelPoll()
			if rate := deps.Config.Session.AttendancePollRate; rate > 0 {
				go pollAttendance(pollCtx, deps.Client, cmd.OutOrStdout(), rate)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "attendance running, Ctrl+C to stop")
			waitForInterrupt(cmd.Context())
			cancelPoll()

			// Teardown runs on a fresh context so an interrupt cannot abort
			// the stop call itself.
			return deps.Coord.StopAttendance(context.Background())
		},
	}
}

// pollAttendance reconciles the frame-derived headline against the server's
// authoritative report while attendance runs, printing the roster summary
// whenever it changes.
func pollAttendance(ctx context.Context, client *api.Client, out io.Writer, rate time.Duration) {
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	var last api.AttendanceSummary
	seen := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := client.Attendance(ctx)
			if err != nil {
				logging.Debugw("attendance poll failed", "err", err)
				continue
			}
			if seen && report.Summary == last {
				continue
			}
			last = report.Summary
			seen = true
			fmt.Fprintf(out, "roster: %d/%d present (%.0f%%)\n",
				report.Summary.Present, report.Summary.Total, report.Summary.AttendanceRate)
		}
	}
}

func newReportCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the attendance report for the current meeting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := deps.Client.Attendance(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tTIME")
			for _, record := range report.Records {
				fmt.Fprintf(w, "%s\t%s\t%s\n", record.Name, record.Status, record.Time)
			}
			fmt.Fprintf(w, "\ntotal %d\tpresent %d\tabsent %d\trate %.0f%%\n",
				report.Summary.Total, report.Summary.Present,
				report.Summary.Absent, report.Summary.AttendanceRate)
			return w.Flush()
		},
	}
}

func newRegisterCmd(deps *Dependencies) *cobra.Command {
	var photoPath string
	var voicePath string

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Register an attendee with a face photo and optional voice sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if photoPath == "" && voicePath == "" {
				return errors.New("at least one of --photo or --voice is required")
			}

			var photo []byte
			if photoPath != "" {
				data, err := os.ReadFile(photoPath)
				if err != nil {
					return fmt.Errorf("read photo: %w", err)
				}
				photo = data
			}

			var voiceWAV []byte
			if voicePath != "" {
				data, err := os.ReadFile(voicePath)
				if err != nil {
					return fmt.Errorf("read voice sample: %w", err)
				}
				decoder := capture.NewFFmpegTranscoder(deps.Config.Audio.RecorderCommand)
				voiceWAV, err = capture.NormalizeUpload(cmd.Context(), data,
					deps.Config.Audio.SampleRate, deps.Config.Audio.UploadMaxBytes, decoder)
				if err != nil {
					return fmt.Errorf("normalize voice sample: %w", err)
				}
			}

			if err := deps.Client.AddAttendee(cmd.Context(), name, photo, filepath.Base(photoPath), voiceWAV); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&photoPath, "photo", "p", "", "Face photo (jpg, png or webp)")
	cmd.Flags().StringVarP(&voicePath, "voice", "v", "", "Voice sample (wav, mp3, ogg, m4a or webm), converted to mono 16 kHz WAV before upload")

	return cmd
}
