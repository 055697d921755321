package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"medbook/internal/export"
	"medbook/internal/models"

	"github.com/spf13/cobra"
)

func bookingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List, add and export committed bookings",
	}
	cmd.AddCommand(bookingsListCmd(), bookingsAddCmd(), bookingsExportCmd())
	return cmd
}

func filterFlags(cmd *cobra.Command, f *models.BookingFilter) {
	cmd.Flags().StringVar(&f.Email, "email", "", "Case-insensitive email substring")
	cmd.Flags().StringVar(&f.Name, "name", "", "Case-insensitive name substring")
}

func bookingsListCmd() *cobra.Command {
	var filter models.BookingFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print bookings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			bookings, err := e.app.Admin.ListBookings(cmd.Context(), filter)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE\tSPECIALTY\tDATE\tTIME\tSTATUS")
			for _, b := range bookings {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					b.ID, b.Name, b.Email, b.Phone, b.Specialty, b.Date, b.Time, b.Status)
			}
			return tw.Flush()
		},
	}
	filterFlags(cmd, &filter)
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum rows (0 = all)")
	return cmd
}

func bookingsAddCmd() *cobra.Command {
	var (
		draft models.BookingDraft
		force bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a booking entered by an operator",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			draft.SessionID = "cli"
			draft.Active = true
			b, err := e.app.Admin.CreateBooking(cmd.Context(), &draft, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "booking %d created for %s on %s at %s\n", b.ID, b.Name, b.Date, b.Time)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Name, "name", "", "Patient name")
	cmd.Flags().StringVar(&draft.Email, "email", "", "Patient email")
	cmd.Flags().StringVar(&draft.Phone, "phone", "", "Patient phone")
	cmd.Flags().StringVar(&draft.Specialty, "specialty", "", "Doctor or specialty")
	cmd.Flags().StringVar(&draft.Date, "date", "", "Date, YYYY-MM-DD")
	cmd.Flags().StringVar(&draft.Time, "time", "", "Time, HH:MM or HH:MM AM/PM")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the slot availability check")
	for _, name := range []string{"name", "email", "phone", "specialty", "date", "time"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func bookingsExportCmd() *cobra.Command {
	var (
		filter models.BookingFilter
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write bookings to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if output == "" {
				bookings, err := e.app.Admin.ListBookings(cmd.Context(), filter)
				if err != nil {
					return err
				}
				path, err := export.SaveToDir(e.app.Config.Exports.Path, bookings, time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d bookings to %s\n", len(bookings), path)
				return nil
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := e.app.Admin.ExportXLSX(cmd.Context(), filter, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", output)
			return nil
		},
	}
	filterFlags(cmd, &filter)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: a timestamped file in exports.path)")
	return cmd
}
