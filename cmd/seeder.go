package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/employee-attendance/internal/attendance"
	"github.com/frahmantamala/employee-attendance/internal/core/common/calendar"
	"github.com/frahmantamala/employee-attendance/internal/profile"
	"github.com/spf13/cobra"
)

var seedDays int

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed profiles, roles and a few weeks of attendance for development and testing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		deps, err := initializeDependencies(ctx)
		if err != nil {
			return fmt.Errorf("failed to init dependencies: %w", err)
		}
		defer deps.Close()

		if clearData {
			for _, table := range []string{"attendance", "user_roles", "profiles"} {
				if _, err := deps.DB.ExecContext(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("failed to clear %s: %w", table, err)
				}
			}
			deps.Logger.Info("cleared existing data")
		}

		for _, dto := range sampleProfiles {
			if _, err := deps.ProfileService.GetProfile(ctx, dto.ID); err == nil {
				deps.Logger.Info("profile already exists", "user_id", dto.ID)
				continue
			} else if !errors.Is(err, profile.ErrProfileNotFound) {
				return err
			}
			if _, err := deps.ProfileService.CreateProfile(ctx, dto); err != nil {
				return fmt.Errorf("failed to seed profile %s: %w", dto.EmployeeID, err)
			}
		}

		rules := deps.AttendanceService.Rules()
		today := rules.DateOf(time.Now())
		created := 0
		for offset := seedDays; offset >= 1; offset-- {
			day := today.AddDays(-offset)
			if wd := day.Start(rules.Location).Weekday(); wd == time.Saturday || wd == time.Sunday {
				continue
			}
			for i, dto := range sampleProfiles {
				in, out, ok := sampleShift(day, i, offset, rules)
				if !ok {
					continue
				}
				n, err := seedSession(ctx, deps.AttendanceService, dto.ID, in, out)
				if err != nil {
					return err
				}
				created += n
			}
		}

		deps.Logger.Info("seeding complete", "profiles", len(sampleProfiles), "attendance_records", created, "days", seedDays)
		return nil
	},
}

var sampleProfiles = []profile.CreateProfileDTO{
	{ID: "7f1c5a4e-0000-4000-8000-000000000001", EmployeeID: "MGR001", Name: "Sari Wulandari", Department: "Operations", Role: profile.RoleManager},
	{ID: "7f1c5a4e-0000-4000-8000-000000000002", EmployeeID: "EMP001", Name: "Ayu Lestari", Department: "Engineering", Role: profile.RoleEmployee},
	{ID: "7f1c5a4e-0000-4000-8000-000000000003", EmployeeID: "EMP002", Name: "Budi Santoso", Department: "Finance", Role: profile.RoleEmployee},
	{ID: "7f1c5a4e-0000-4000-8000-000000000004", EmployeeID: "EMP003", Name: "Citra Dewi", Department: "Engineering", Role: profile.RoleEmployee},
	{ID: "7f1c5a4e-0000-4000-8000-000000000005", EmployeeID: "EMP004", Name: "Dimas Pratama", Department: "Sales", Role: profile.RoleEmployee},
}

// sampleShift spreads arrivals around the cutoff so the data has late,
// half-day and missing days. It is deterministic per (employee, day).
func sampleShift(day calendar.Day, employee, offset int, rules attendance.Rules) (time.Time, time.Time, bool) {
	pattern := (employee*7 + offset) % 10
	if pattern == 0 {
		return time.Time{}, time.Time{}, false
	}

	start := day.Start(rules.Location)
	in := start.Add(8*time.Hour + time.Duration(pattern*15)*time.Minute)
	out := in.Add(9 * time.Hour)
	if pattern == 3 {
		out = in.Add(3 * time.Hour)
	}
	return in, out, true
}

func seedSession(ctx context.Context, svc *attendance.Service, userID string, in, out time.Time) (int, error) {
	if _, err := svc.CheckIn(ctx, userID, in); err != nil {
		if errors.Is(err, attendance.ErrAlreadyCheckedIn) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to seed check-in for %s: %w", userID, err)
	}
	if _, err := svc.CheckOut(ctx, userID, out); err != nil {
		return 1, fmt.Errorf("failed to seed check-out for %s: %w", userID, err)
	}
	return 1, nil
}

func init() {
	seedCmd.Flags().IntVar(&seedDays, "days", 21, "number of past days to fill with attendance")
}
