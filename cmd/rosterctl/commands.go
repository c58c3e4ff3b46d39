package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/service"
)

const commandTimeout = 30 * time.Second

func newRootCmd(load func() (*app, error)) *cobra.Command {
	var asJSON bool

	root := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Inspect class calendars, rosters and attendance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(newCalendarCmd(load, &asJSON))
	root.AddCommand(newProgressCmd(load, &asJSON))
	root.AddCommand(newAttendanceCmd(load, &asJSON))
	root.AddCommand(newExportCmd(load))
	root.AddCommand(newRolloverCmd(load))
	return root
}

func withApp(load func() (*app, error), fn func(ctx context.Context, a *app) error) error {
	a, err := load()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx, a)
}

func newCalendarCmd(load func() (*app, error), asJSON *bool) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "calendar <class-id>",
		Short: "Show the navigable window and sessions per day for a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				view, _, err := a.schedule.CalendarView(ctx, args[0], month)
				if err != nil {
					return err
				}
				if *asJSON {
					return writeJSON(cmd.OutOrStdout(), view)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "class %s  month %s  (%s)\n", view.ClassID, view.Month, view.Timezone)
				_, _ = fmt.Fprintf(out, "window %s .. %s  prev=%t next=%t\n",
					view.Window.MinMonth.Format("2006-01-02"), view.Window.MaxMonth.Format("2006-01-02"),
					view.Navigation.CanGoPrev, view.Navigation.CanGoNext)
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "DAY\tSTATE\tSESSION")
				for _, day := range view.Days {
					for _, s := range day.Sessions {
						_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", day.Date, s.State, s.Title)
					}
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month to show (YYYY-MM), defaults to the current month")
	return cmd
}

func newProgressCmd(load func() (*app, error), asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <class-id>",
		Short: "Show completed versus scheduled sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				progress, _, err := a.roster.Progress(ctx, args[0])
				if err != nil {
					return err
				}
				if *asJSON {
					return writeJSON(cmd.OutOrStdout(), progress)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d/%d sessions completed (%.1f%%)\n", progress.Completed, progress.Total, progress.Percentage)
				return nil
			})
		},
	}
}

func newAttendanceCmd(load func() (*app, error), asJSON *bool) *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "attendance <class-id>",
		Short: "Show attendance per student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				var summaries []models.AttendanceSummary
				if studentID != "" {
					summary, err := a.roster.StudentAttendance(ctx, args[0], studentID)
					if err != nil {
						return err
					}
					summaries = append(summaries, *summary)
				} else {
					view, _, err := a.roster.RosterView(ctx, args[0])
					if err != nil {
						return err
					}
					summaries = view.Students
				}
				if *asJSON {
					return writeJSON(cmd.OutOrStdout(), summaries)
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "STUDENT\tPRESENT\tMARKED\tTOTAL\tPERCENT")
				for _, s := range summaries {
					_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f\n", s.StudentID, s.PresentCount, s.MarkedSessions, s.TotalSessions, s.Percentage)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "limit output to one student")
	return cmd
}

func newExportCmd(load func() (*app, error)) *cobra.Command {
	var format, outPath string
	cmd := &cobra.Command{
		Use:   "export <class-id>",
		Short: "Write the roster as CSV or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				file, err := a.exports.RosterExport(ctx, args[0], strings.ToLower(format))
				if err != nil {
					return err
				}
				if outPath == "" {
					outPath = file.Filename
				}
				if outPath == "-" {
					_, err = cmd.OutOrStdout().Write(file.Body)
					return err
				}
				if err := os.WriteFile(outPath, file.Body, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(file.Body))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", service.FormatCSV, "csv or pdf")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output path, - for stdout")
	return cmd
}

func newRolloverCmd(load func() (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Drop every cached class view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(load, func(ctx context.Context, a *app) error {
				if err := a.cache.Rollover(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "class view cache flushed")
				return nil
			})
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
