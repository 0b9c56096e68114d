package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/queueview"
	"github.com/jwalitptl/telehealth-api/internal/service/queue"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
)

func newRootCmd(open opener) *cobra.Command {
	var (
		logLevel string
		a        *app
	)

	root := &cobra.Command{
		Use:           "queuectl",
		Short:         "Operate the telehealth patient queue",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = open(cmd.Context(), logLevel)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a != nil && a.close != nil {
				return a.close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	get := func() *app { return a }

	root.AddCommand(
		listCmd(get),
		statsCmd(get),
		nextCmd(get),
		advanceCmd(get),
		transitionCmd(get),
		forceStatusCmd(get),
		waitCmd(get),
		actionsCmd(),
		tokenCmd(get),
	)
	return root
}

func listCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List online bookings on a dashboard tab",
		RunE: func(cmd *cobra.Command, args []string) error {
			tabName, _ := cmd.Flags().GetString("tab")
			statuses, _ := cmd.Flags().GetStringSlice("status")
			provider, _ := cmd.Flags().GetString("provider")
			search, _ := cmd.Flags().GetString("search")

			tab, err := queueview.ParseTab(tabName)
			if err != nil {
				return err
			}
			filters := model.QueueFilters{PatientNameSearch: search}
			for _, s := range statuses {
				st, err := model.ParseStatus(s)
				if err != nil {
					return err
				}
				filters.Statuses = append(filters.Statuses, st)
			}
			if provider != "" {
				filters.ProviderName = &provider
			}

			a := get()
			bookings, err := a.bookings.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list bookings: %w", err)
			}
			model.SortBySchedule(bookings)
			printBookings(cmd.OutOrStdout(), queueview.FilterBookings(queueview.TabBookings(bookings, tab), filters), a)
			return nil
		},
	}
	cmd.Flags().String("tab", string(queueview.TabInOffice), "Tab: pre-booked, in-office or completed")
	cmd.Flags().StringSlice("status", nil, "Only these statuses")
	cmd.Flags().String("provider", "", "Only this provider")
	cmd.Flags().String("search", "", "Patient name or email contains")
	return cmd
}

func printBookings(w io.Writer, bookings []*model.Booking, a *app) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPATIENT\tAPPOINTMENT\tSTATUS\tPROVIDER\tWAITING")
	for _, b := range bookings {
		name := "Unknown Patient"
		if b.Patient != nil {
			name = b.Patient.FullName
		}
		provider := "-"
		if b.ProviderName != nil {
			provider = *b.ProviderName
		}
		wait := queueview.WaitTimes(b, a.now())
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%s\t%s\t%s\n",
			b.ID, name, b.AppointmentDate, b.AppointmentLabel(),
			model.GetStatusLabel(string(b.Status)), provider, queueview.FormatDuration(wait.Current))
	}
	tw.Flush()
}

func statsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count online bookings per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := get().queue.Stats(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			rows := []struct {
				status model.Status
				count  int
			}{
				{model.StatusPending, stats.Pending},
				{model.StatusConfirmed, stats.Confirmed},
				{model.StatusIntake, stats.Intake},
				{model.StatusReadyForProvider, stats.ReadyForProvider},
				{model.StatusProvider, stats.Provider},
				{model.StatusReadyForDischarge, stats.ReadyForDischarge},
				{model.StatusDischarged, stats.Discharged},
				{model.StatusCancelled, stats.Cancelled},
			}
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%d\n", model.GetStatusLabel(string(r.status)), r.count)
			}
			fmt.Fprintf(tw, "Total\t%d\n", stats.Total)
			return tw.Flush()
		},
	}
}

func nextCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next patient ready for the provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := get().queue.NextPatient(cmd.Context())
			if err != nil {
				return err
			}
			if next == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No patient is ready for the provider")
				return nil
			}
			printBookings(cmd.OutOrStdout(), []*model.Booking{next}, get())
			return nil
		},
	}
}

func advanceCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move the next confirmed patient into intake if intake is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			advanced, err := get().queue.AutoAdvanceQueue(cmd.Context())
			if err != nil {
				return err
			}
			if advanced {
				fmt.Fprintln(cmd.OutOrStdout(), "Moved next patient to intake")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue unchanged")
			}
			return nil
		},
	}
}

func transitionCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transition BOOKING_ID ACTION",
		Short: "Apply a workflow action to a booking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			action, err := queue.ParseAction(args[1])
			if err != nil {
				return err
			}
			res, err := get().queue.Transition(cmd.Context(), id, action)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s\n", id,
				model.GetStatusLabel(string(res.Previous.Status)), model.GetStatusLabel(string(res.Booking.Status)))
			return nil
		},
	}
}

func forceStatusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "force-status BOOKING_ID STATUS",
		Short: "Set a booking status without workflow checks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			res, err := get().queue.ForceSetStatus(cmd.Context(), id, model.Status(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, model.GetStatusLabel(string(res.Booking.Status)))
			return nil
		},
	}
}

func waitCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "wait BOOKING_ID",
		Short: "Estimate how long a booking will wait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid booking id: %w", err)
			}
			minutes, err := get().queue.EstimatedWaitTime(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), queueview.FormatDuration(minutes))
			return nil
		},
	}
}

func actionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List workflow actions and the statuses they apply to",
		// No store needed.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, a := range queue.Actions() {
				var from []string
				for _, st := range model.AllStatuses() {
					if queue.CanTransition(a, st) {
						from = append(from, string(st))
					}
				}
				to, _ := a.Target()
				fmt.Fprintf(tw, "%s\t%s\t-> %s\n", a, strings.Join(from, ","), to)
			}
			return tw.Flush()
		},
	}
}

func tokenCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			userFlag, _ := cmd.Flags().GetString("user")
			email, _ := cmd.Flags().GetString("email")
			role, _ := cmd.Flags().GetString("role")
			if role != auth.RoleAdmin && role != auth.RoleStaff {
				return fmt.Errorf("unknown role: %s", role)
			}

			userID := uuid.New()
			if userFlag != "" {
				var err error
				if userID, err = uuid.Parse(userFlag); err != nil {
					return fmt.Errorf("invalid user id: %w", err)
				}
			}
			token, err := get().jwt.GenerateAccessToken(userID, email, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().String("user", "", "User ID (random when empty)")
	cmd.Flags().String("email", "", "User email")
	cmd.Flags().String("role", auth.RoleStaff, "Role: admin or staff")
	return cmd
}
