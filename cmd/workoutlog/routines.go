package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2beens/workoutlog/internal/routines"
)

// parseExerciseArg parses "name:plannedSets"; planned sets default to 3.
func parseExerciseArg(arg string) (routines.ExerciseInput, error) {
	name, setsStr, hasSets := strings.Cut(arg, ":")
	in := routines.ExerciseInput{Name: strings.TrimSpace(name), PlannedSets: 3}
	if in.Name == "" {
		return in, fmt.Errorf("invalid exercise %q: empty name", arg)
	}
	if hasSets {
		sets, err := strconv.Atoi(strings.TrimSpace(setsStr))
		if err != nil || sets < 0 {
			return in, fmt.Errorf("invalid exercise %q: planned sets must be a non-negative number", arg)
		}
		in.PlannedSets = sets
	}
	return in, nil
}

func newRoutinesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "routines",
		Aliases: []string{"r"},
		Short:   "Manage routines",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List routines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := a.client.ListRoutines(cmd.Context())
			if err != nil {
				return fmt.Errorf("list routines: %w", err)
			}
			if len(list) == 0 {
				a.printf("No routines found.\n")
				return nil
			}
			faint := color.New(color.Faint)
			for _, r := range list {
				a.printf("%s %s (%d exercises)\n", faint.Sprintf("%4d", r.ID), r.Name, len(r.Exercises))
			}
			return nil
		},
	}

	var exerciseArgs []string
	createCmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a routine with its exercises",
		Example: `  workoutlog routines create Legs -e "Squat:5" -e "Leg Press:3"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := routines.CreateRoutineRequest{Name: args[0]}
			for _, arg := range exerciseArgs {
				in, err := parseExerciseArg(arg)
				if err != nil {
					return err
				}
				req.Exercises = append(req.Exercises, in)
			}
			routine, err := a.client.CreateRoutine(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create routine: %w", err)
			}
			a.success("created routine %s (id %d)", routine.Name, routine.ID)
			return nil
		},
	}
	createCmd.Flags().StringArrayVarP(&exerciseArgs, "exercise", "e", nil, `exercise as "name:plannedSets", repeatable`)

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a routine and its exercises",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "routine id")
			if err != nil {
				return err
			}
			routine, err := a.client.GetRoutine(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get routine: %w", err)
			}
			printRoutine(a, routine)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a routine",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "routine id")
			if err != nil {
				return err
			}
			if err := a.client.DeleteRoutine(cmd.Context(), id); err != nil {
				return fmt.Errorf("delete routine: %w", err)
			}
			a.success("deleted routine %d", id)
			return nil
		},
	}

	cmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd)
	return cmd
}

func printRoutine(a *app, routine *routines.Routine) {
	color.New(color.Bold).Fprintf(a.out, "%s\n", routine.Name)
	for i, ex := range routine.Exercises {
		a.printf("  %d. %s x %d sets\n", i+1, ex.Name, ex.PlannedSets)
	}
}
