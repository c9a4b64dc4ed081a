package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"asamanthinks/internal/app"
	"asamanthinks/internal/domain"
	"asamanthinks/internal/session"
	"asamanthinks/internal/tracker"
)

func newCheckInCmd(opts *rootOptions) *cobra.Command {
	var (
		release bool
		state   string
	)
	cmd := &cobra.Command{
		Use:   "checkin [text...]",
		Short: "Classify a typed check-in",
		Long: `Classify a check-in and suggest music for it. The text is taken from the
arguments, or read from stdin when none are given. With --state the check-in
is built from one of the seven categories instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				selected domain.Category
				text     string
			)
			if cmd.Flags().Changed("state") {
				if len(args) > 0 {
					return errors.New("--state cannot be combined with check-in text")
				}
				c, err := domain.ParseCategory(state)
				if err != nil {
					return fmt.Errorf("invalid --state: %w", err)
				}
				selected = c
			} else {
				var err error
				if text, err = readCheckIn(cmd, args); err != nil {
					return err
				}
			}

			a, _, err := opts.build(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			var res session.CheckInResult
			if selected != "" {
				res, err = a.Session.SelectState(cmd.Context(), selected)
			} else {
				res, err = a.Session.CheckIn(cmd.Context(), text)
			}
			if err != nil {
				return err
			}

			var report *tracker.ReleaseReport
			if release {
				r := a.Session.ReleaseObjects(cmd.Context())
				report = &r
			}
			return printCheckIn(cmd.OutOrStdout(), opts, res, report)
		},
	}
	cmd.Flags().BoolVar(&release, "release", true, "Delete the remote objects created by this run before exiting")
	cmd.Flags().StringVar(&state, "state", "", "Check in by picking a category key (physical, etheric, astral, mental, causal, buddhic, atmic)")
	return cmd
}

func readCheckIn(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "How are you feeling? ")
		line, err := bufio.NewReader(f).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("reading check-in: %w", err)
		}
		return line, nil
	}
	b, err := io.ReadAll(io.LimitReader(in, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading check-in: %w", err)
	}
	return string(b), nil
}

type checkInOutput struct {
	session.CheckInResult
	Released *tracker.ReleaseReport `json:"released,omitempty"`
}

func printCheckIn(w io.Writer, opts *rootOptions, res session.CheckInResult, report *tracker.ReleaseReport) error {
	if !opts.pretty(w) {
		return printJSON(w, checkInOutput{CheckInResult: res, Released: report})
	}

	if res.Entry.Text != "" {
		fmt.Fprintf(w, "Entry:     %q (%s)\n", strings.TrimSpace(res.Entry.Text), res.Entry.Type)
	}
	if res.Record == nil {
		fmt.Fprintf(w, "State:     none (%s)\n", res.Outcome)
		if res.StateError != "" {
			fmt.Fprintf(w, "Error:     %s\n", res.StateError)
		}
	} else {
		info := res.Record.PrimaryState.Info()
		fmt.Fprintf(w, "State:     %s (%s, note %s), intensity %d/10\n", info.Name, info.Description, info.Note, res.Record.Intensity)
		if len(res.Record.SecondaryStates) > 0 {
			names := make([]string, 0, len(res.Record.SecondaryStates))
			for _, c := range res.Record.SecondaryStates {
				names = append(names, c.Info().Name)
			}
			fmt.Fprintf(w, "Also:      %s\n", strings.Join(names, ", "))
		}
		if res.Record.ChaosDetected {
			fmt.Fprintln(w, "Chaos:     detected")
		}
		if res.Record.OppositeAction != "" {
			fmt.Fprintf(w, "Try:       %s\n", res.Record.OppositeAction)
		}
		if res.Fallback {
			fmt.Fprintln(w, "Note:      the classification could not be read; showing the default state")
		}
	}
	if res.Track != nil {
		fmt.Fprintf(w, "Music:     %s\n", res.Track.Prompt)
	} else if res.MusicError != "" {
		fmt.Fprintf(w, "Music:     failed: %s\n", res.MusicError)
	}
	if report != nil {
		fmt.Fprintf(w, "Released:  %d/%d remote objects\n", report.Deleted, report.Attempted)
	}
	return nil
}
