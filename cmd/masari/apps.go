package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/masari-app/masari/backend/internal/applications"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

const displayTimeLayout = "2006-01-02 15:04"

type appsOptions struct {
	output string
}

func newAppsCommand() *cobra.Command {
	opts := &appsOptions{}
	cmd := &cobra.Command{
		Use:   "apps",
		Short: "Inspect and edit job applications",
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format (table, json, yaml)")

	cmd.AddCommand(appsListCmd(opts))
	cmd.AddCommand(appsShowCmd(opts))
	cmd.AddCommand(appsAddCmd(opts))
	cmd.AddCommand(appsNoteCmd(opts))
	cmd.AddCommand(appsStatusCmd(opts))
	cmd.AddCommand(appsTimelineCmd(opts))
	cmd.AddCommand(appsCalendarCmd(opts))
	cmd.AddCommand(appsDeleteCmd())
	return cmd
}

// withApplications opens the runtime for the duration of fn.
func withApplications(ctx context.Context, fn func(ctx context.Context, rt *appRuntime) error) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.Close() //nolint:errcheck
	return fn(ctx, rt)
}

func errApplicationNotFound(id string) error {
	return fmt.Errorf("application %q not found", strings.TrimSpace(id))
}

func appsListCmd(opts *appsOptions) *cobra.Command {
	var filter applications.ListFilter
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			filter.Status = applications.Status(status)
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				list, err := rt.applications.ListApplications(ctx, filter)
				if err != nil {
					return err
				}
				if handled, err := printStructured(cmd.OutOrStdout(), format, list); handled {
					return err
				}
				tw := newTableWriter(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Company", "Position", "Status", "Applied", "Source", "Updated"})
				for _, app := range list {
					tw.AppendRow(table.Row{
						app.ID,
						app.Company,
						app.Position,
						app.Status.Label(rt.config.LabelLanguage),
						app.DateApplied,
						app.Source,
						app.UpdatedAt.In(rt.config.TimelineLocation).Format(displayTimeLayout),
					})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "", "Total", len(list)})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().StringVar(&filter.Source, "source", "", "source filter")
	cmd.Flags().StringVar(&filter.Search, "search", "", "case-insensitive search over company and position")
	cmd.Flags().StringVar(&filter.From, "from", "", "earliest dateApplied (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filter.To, "to", "", "latest dateApplied (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&filter.ActiveOnly, "active", false, "only in-flight applications")
	return cmd
}

func appsShowCmd(opts *appsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				app, found, err := rt.applications.GetApplication(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return errApplicationNotFound(args[0])
				}
				return printApplication(cmd, format, rt, app)
			})
		},
	}
}

func appsAddCmd(opts *appsOptions) *cobra.Command {
	var fields applications.ApplicationFields
	var status, jobType string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			fields.Status = applications.Status(status)
			fields.JobType = applications.JobType(jobType)
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				if strings.TrimSpace(fields.DateApplied) == "" {
					fields.DateApplied = time.Now().In(rt.config.TimelineLocation).Format(applications.DateLayout)
				}
				created, err := rt.applications.CreateApplication(ctx, fields)
				if err != nil {
					return err
				}
				return printApplication(cmd, format, rt, created)
			})
		},
	}
	cmd.Flags().StringVar(&fields.Company, "company", "", "company name")
	cmd.Flags().StringVar(&fields.Position, "position", "", "position title")
	cmd.Flags().StringVar(&fields.DateApplied, "date", "", "date applied (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&fields.Location, "location", "", "job location")
	cmd.Flags().StringVar(&fields.Source, "source", "", "where the job was found")
	cmd.Flags().StringVar(&status, "status", string(applications.StatusSaved), "initial status")
	cmd.Flags().StringVar(&jobType, "job-type", "", "job type (full_time, part_time, contract, internship, remote, hybrid, onsite)")
	cmd.Flags().StringVar(&fields.JobURL, "url", "", "job posting URL")
	cmd.Flags().StringVar(&fields.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("company")
	_ = cmd.MarkFlagRequired("position")
	return cmd
}

func appsNoteCmd(opts *appsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "note <id> <text>",
		Short: "Append a note to an application",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				updated, found, err := rt.applications.AddNote(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				if !found {
					return errApplicationNotFound(args[0])
				}
				return printApplication(cmd, format, rt, updated)
			})
		},
	}
}

func appsStatusCmd(opts *appsOptions) *cobra.Command {
	var at, location, notes string
	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move an application to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			var details *applications.InterviewDetails
			if strings.TrimSpace(at) != "" {
				scheduled, err := time.Parse(time.RFC3339, strings.TrimSpace(at))
				if err != nil {
					return fmt.Errorf("--at must be an RFC 3339 instant: %w", err)
				}
				details = &applications.InterviewDetails{DateTime: scheduled, Location: location, Notes: notes}
			}
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				updated, found, err := rt.applications.ChangeStatus(ctx, args[0], applications.Status(args[1]), details)
				if err != nil {
					return err
				}
				if !found {
					return errApplicationNotFound(args[0])
				}
				return printApplication(cmd, format, rt, updated)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "interview date and time (RFC 3339) for scheduling statuses")
	cmd.Flags().StringVar(&location, "location", "", "interview location")
	cmd.Flags().StringVar(&notes, "notes", "", "interview notes")
	return cmd
}

func appsTimelineCmd(opts *appsOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <id>",
		Short: "Show the chronological timeline of an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				timeline, found, err := rt.applications.Timeline(ctx, args[0])
				if err != nil {
					return err
				}
				if !found {
					return errApplicationNotFound(args[0])
				}
				groups := timeline.GroupByDay(rt.config.TimelineLocation)
				if handled, err := printStructured(cmd.OutOrStdout(), format, groups); handled {
					return err
				}
				tw := newTableWriter(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"Day", "Time", "Event", "Detail"})
				for _, group := range groups {
					for _, event := range group.Events {
						tw.AppendRow(table.Row{
							group.Day,
							event.Date.In(rt.config.TimelineLocation).Format("15:04"),
							describeEventKind(event, rt.config.LabelLanguage),
							describeEventDetail(event, rt),
						})
					}
					tw.AppendSeparator()
				}
				tw.Render()
				return nil
			})
		},
	}
}

func appsCalendarCmd(opts *appsOptions) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "List scheduled interview events across applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := parseOutputFormat(opts.output)
			if err != nil {
				return err
			}
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				fromInstant, err := parseCalendarBound(from, false, rt.config.TimelineLocation)
				if err != nil {
					return err
				}
				toInstant, err := parseCalendarBound(to, true, rt.config.TimelineLocation)
				if err != nil {
					return err
				}
				events, err := rt.applications.CalendarEvents(ctx, fromInstant, toInstant)
				if err != nil {
					return err
				}
				if handled, err := printStructured(cmd.OutOrStdout(), format, events); handled {
					return err
				}
				tw := newTableWriter(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"When", "Title", "Application", "Location", "Notes"})
				for _, event := range events {
					tw.AppendRow(table.Row{
						event.Date.In(rt.config.TimelineLocation).Format(displayTimeLayout),
						event.Title,
						event.ApplicationID,
						event.Location,
						event.Notes,
					})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "earliest day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest day (YYYY-MM-DD)")
	return cmd
}

func appsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an application and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApplications(cmd.Context(), func(ctx context.Context, rt *appRuntime) error {
				removed, err := rt.applications.DeleteApplication(ctx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return errApplicationNotFound(args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", strings.TrimSpace(args[0]))
				return nil
			})
		},
	}
}

func printApplication(cmd *cobra.Command, format string, rt *appRuntime, app applications.Application) error {
	if handled, err := printStructured(cmd.OutOrStdout(), format, app); handled {
		return err
	}
	location := rt.config.TimelineLocation
	tw := newTableWriter(cmd.OutOrStdout())
	tw.AppendRows([]table.Row{
		{"ID", app.ID},
		{"Company", app.Company},
		{"Position", app.Position},
		{"Status", app.Status.Label(rt.config.LabelLanguage)},
		{"Applied", app.DateApplied},
		{"Location", app.Location},
		{"Source", app.Source},
		{"Job type", app.JobType},
		{"URL", app.JobURL},
		{"Status changes", len(app.StatusHistory)},
		{"Notes", len(app.NotesHistory)},
		{"Calendar events", len(app.CalendarEvents)},
		{"Created", app.CreatedAt.In(location).Format(displayTimeLayout)},
		{"Updated", app.UpdatedAt.In(location).Format(displayTimeLayout)},
	})
	tw.Render()
	return nil
}

func describeEventKind(event applications.TimelineEvent, tag language.Tag) string {
	switch event.Kind {
	case applications.TimelineEventCreated:
		return "Created"
	case applications.TimelineEventStatusChange:
		return "Status: " + event.Status.Label(tag)
	default:
		return "Note"
	}
}

func describeEventDetail(event applications.TimelineEvent, rt *appRuntime) string {
	if event.Kind == applications.TimelineEventNote {
		return event.Note
	}
	if event.InterviewDetails == nil {
		return ""
	}
	detail := "scheduled " + event.InterviewDetails.DateTime.In(rt.config.TimelineLocation).Format(displayTimeLayout)
	if event.InterviewDetails.Location != "" {
		detail += " at " + event.InterviewDetails.Location
	}
	return detail
}

func parseCalendarBound(raw string, upper bool, location *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, nil
	}
	day, err := time.ParseInLocation(applications.DateLayout, trimmed, location)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q, expected YYYY-MM-DD", raw)
	}
	if upper {
		return day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}
	return day, nil
}
