package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show attendance records from the backend",
}

var attendanceTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's check-ins and check-outs",
	RunE:  runAttendanceToday,
}

var attendanceHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "List the attendance history of a user",
	Long: `List the attendance history of a user, newest first.

Examples:
  facegate attendance history 12
  facegate attendance history 12 --from 2026-10-01 --to 2026-10-17 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: runAttendanceHistory,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceTodayCmd)
	attendanceCmd.AddCommand(attendanceHistoryCmd)

	attendanceHistoryCmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	attendanceHistoryCmd.Flags().String("to", "", "Last day (YYYY-MM-DD)")
	attendanceHistoryCmd.Flags().Int("limit", 0, "Maximum number of records")
}

func printRecords(records []backend.AttendanceRecord) {
	if len(records) == 0 {
		fmt.Println("No attendance records")
		return
	}
	fmt.Printf("%-10s  %-6s  %-19s  %-19s  %-8s  %s\n", "DATE", "USER", "CHECK IN", "CHECK OUT", "HOURS", "STATUS")
	for _, r := range records {
		hours := "-"
		if r.WorkHours != nil {
			hours = strconv.FormatFloat(*r.WorkHours, 'f', 2, 64)
		}
		fmt.Printf("%-10s  %-6d  %-19s  %-19s  %-8s  %s\n",
			r.Date, r.UserID, orDash(r.CheckInTime), orDash(r.CheckOutTime), hours, orDash(r.Status))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runAttendanceToday(cmd *cobra.Command, args []string) error {
	bc, err := newBackendClient(config.Load())
	if err != nil {
		return err
	}
	records, err := bc.Today(context.Background())
	if err != nil {
		return fmt.Errorf("failed to fetch today's attendance: %w", err)
	}
	printRecords(records)
	return nil
}

func runAttendanceHistory(cmd *cobra.Command, args []string) error {
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		return fmt.Errorf("invalid user ID %q", args[0])
	}

	bc, err := newBackendClient(config.Load())
	if err != nil {
		return err
	}
	records, err := bc.History(context.Background(), userID, backend.HistoryParams{
		StartDate: mustGetString(cmd, "from"),
		EndDate:   mustGetString(cmd, "to"),
		Limit:     mustGetInt(cmd, "limit"),
	})
	if err != nil {
		if backend.IsNotFoundError(err) {
			return fmt.Errorf("user %d not found", userID)
		}
		return fmt.Errorf("failed to fetch attendance history: %w", err)
	}
	printRecords(records)
	return nil
}
