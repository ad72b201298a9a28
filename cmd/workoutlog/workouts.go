package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2beens/workoutlog/internal/client"
	"github.com/2beens/workoutlog/internal/workouts"
)

func formatWorkoutDuration(w workouts.Workout) string {
	if w.EndTime == nil {
		return color.YellowString("active")
	}
	return w.EndTime.Sub(w.StartTime).Round(time.Minute).String()
}

func newWorkoutsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workouts",
		Aliases: []string{"w"},
		Short:   "Review logged workouts",
	}

	var status string
	var page, size int
	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workouts, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client.ListWorkouts(cmd.Context(), client.ListWorkoutsParams{
				Status: status,
				Page:   page,
				Size:   size,
			})
			if err != nil {
				return fmt.Errorf("list workouts: %w", err)
			}
			if len(resp.Workouts) == 0 {
				a.printf("No workouts found.\n")
				return nil
			}
			faint := color.New(color.Faint)
			for _, w := range resp.Workouts {
				a.printf("%s %s %-20s %s\n",
					faint.Sprintf("%4d", w.ID),
					faint.Sprint(w.StartTime.Local().Format("2006-01-02 15:04")),
					w.RoutineName,
					formatWorkoutDuration(w),
				)
			}
			a.printf("page %d, %d of %d workouts\n", resp.Page, len(resp.Workouts), resp.Total)
			return nil
		},
	}
	listCmd.Flags().StringVar(&status, "status", "", "filter by status: active or completed")
	listCmd.Flags().IntVar(&page, "page", 1, "page number")
	listCmd.Flags().IntVar(&size, "size", 20, "page size")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a workout with its sets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workout id")
			if err != nil {
				return err
			}
			details, err := a.client.GetWorkout(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get workout: %w", err)
			}
			color.New(color.Bold).Fprintf(a.out, "%s\n", details.RoutineName)
			a.printf("started %s, %s\n", details.StartTime.Local().Format("2006-01-02 15:04"), formatWorkoutDuration(details.Workout))
			for _, s := range details.Sets {
				a.printf("  %-20s #%d  %.2f x %d  rpe %d\n", s.ExerciseName, s.SetNumber, s.Weight, s.Reps, s.RPE)
			}
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a workout and its sets",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "workout id")
			if err != nil {
				return err
			}
			if err := a.client.DeleteWorkout(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete workout: %w", err)
			}
			a.success("deleted workout %d", id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, showCmd, deleteCmd)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <exercise>",
		Short: "Best set and volume per workout for an exercise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.client.ExerciseHistory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("exercise history: %w", err)
			}
			if len(history.Workouts) == 0 {
				a.printf("No sets logged for %s.\n", args[0])
				return nil
			}
			color.New(color.Bold).Fprintf(a.out, "%s\n", history.ExerciseName)
			for _, w := range history.Workouts {
				a.printf("  %s  best %.2f x %d  volume %.1f  (%d sets)\n",
					w.WorkoutStart.Local().Format("2006-01-02"),
					w.BestWeight, w.BestReps, w.Volume, w.Sets,
				)
			}
			return nil
		},
	}
}
