package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"asamanthinks/internal/app"
	"asamanthinks/internal/tracker"
	"asamanthinks/internal/voice"
)

func newVoiceCmd(opts *rootOptions) *cobra.Command {
	var (
		release   bool
		chunkSize int
	)
	cmd := &cobra.Command{
		Use:   "voice <audio-file>",
		Short: "Transcribe and classify a recorded voice check-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dev := voice.FileDevice{Path: args[0], ChunkSize: chunkSize}
			a, _, err := opts.build(ctx, app.Options{Device: dev})
			if err != nil {
				return err
			}

			if err := a.Recorder.Start(ctx); err != nil {
				return fmt.Errorf("start recording: %w", err)
			}
			<-a.Recorder.Drained()
			audio, err := a.Recorder.Stop()
			if err != nil {
				return fmt.Errorf("stop recording: %w", err)
			}

			res, err := a.Session.ProcessVoice(ctx, audio)
			var report *tracker.ReleaseReport
			if release {
				r := a.Session.ReleaseObjects(ctx)
				report = &r
			}
			if err != nil {
				return err
			}
			return printCheckIn(cmd.OutOrStdout(), opts, res, report)
		},
	}
	cmd.Flags().BoolVar(&release, "release", true, "Delete the remote objects created by this run before exiting")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", voice.DefaultChunkSize, "Bytes read from the file per chunk")
	return cmd
}
