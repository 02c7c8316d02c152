package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/identity"
	"github.com/frahmantamala/employee-attendance/internal/session"
	"github.com/spf13/cobra"
)

var clockToken string

// clockCmd is a terminal kiosk: it signs in with a bearer token, waits for
// the session to load the employee's profile and acts on their behalf.
var clockCmd = &cobra.Command{
	Use:       "clock <in|out|status>",
	Short:     "Check in, check out or show today's status",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"in", "out", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		token := clockToken
		if token == "" {
			token = os.Getenv("ATTENDANCE_TOKEN")
		}
		if token == "" {
			return errors.New("a token is required (--token or ATTENDANCE_TOKEN)")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		deps, err := initializeDependencies(ctx)
		if err != nil {
			return fmt.Errorf("failed to init dependencies: %w", err)
		}
		defer deps.Close()

		provider := identity.NewTokenProvider(deps.Verifier, deps.EventBus, deps.Logger)
		sc := session.New(provider, deps.ProfileService, deps.Logger)
		if err := sc.Init(ctx); err != nil {
			return err
		}
		defer sc.Dispose()

		if _, err := provider.SignIn(ctx, token); err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}
		defer func() {
			if err := sc.SignOut(context.Background()); err != nil {
				deps.Logger.Warn("sign out failed", "error", err)
			}
		}()

		snap, err := sc.Wait(ctx)
		if err != nil {
			return fmt.Errorf("session not ready: %w", err)
		}
		if snap.Err != nil {
			return fmt.Errorf("failed to load profile: %w", snap.Err)
		}

		return runClock(ctx, cmd.OutOrStdout(), deps.AttendanceService, snap, args[0])
	},
}

func runClock(ctx context.Context, out io.Writer, svc *attendance.Service, snap session.Snapshot, action string) error {
	userID := snap.User.UserID
	name := userID
	if snap.Profile != nil {
		name = snap.Profile.Name
	}

	loc := svc.Rules().Location
	now := time.Now()

	switch action {
	case "in":
		rec, err := svc.CheckIn(ctx, userID, now)
		if err != nil {
			return clockError(err)
		}
		fmt.Fprintf(out, "%s checked in at %s (%s)\n", name, rec.CheckInTime.In(loc).Format("15:04"), rec.Status)
	case "out":
		rec, err := svc.CheckOut(ctx, userID, now)
		if err != nil {
			return clockError(err)
		}
		fmt.Fprintf(out, "%s checked out at %s after %.2f hours (%s)\n",
			name, rec.CheckOutTime.In(loc).Format("15:04"), rec.TotalHours, rec.Status)
	case "status":
		today, err := svc.ClassifyToday(ctx, userID, svc.Rules().DateOf(now))
		if err != nil {
			return clockError(err)
		}
		fmt.Fprintf(out, "%s on %s: %s", name, today.Date, today.Status)
		if today.CheckInTime != nil {
			fmt.Fprintf(out, ", in %s", today.CheckInTime.In(loc).Format("15:04"))
		}
		if today.CheckOutTime != nil {
			fmt.Fprintf(out, ", out %s, %.2f hours", today.CheckOutTime.In(loc).Format("15:04"), today.TotalHours)
		}
		fmt.Fprintln(out)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}

func clockError(err error) error {
	if appErr := attendance.ToAppError(err); appErr.StatusCode < 500 {
		return errors.New(appErr.Message)
	}
	return err
}

func init() {
	clockCmd.Flags().StringVar(&clockToken, "token", "", "bearer token of the employee")
}
