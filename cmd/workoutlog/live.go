package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2beens/workoutlog/internal/client"
	"github.com/2beens/workoutlog/internal/tracker"
	"github.com/2beens/workoutlog/internal/workouts"
)

func printSession(a *app, session *tracker.Session) {
	bold := color.New(color.Bold)
	switch session.State {
	case tracker.StateFinished:
		bold.Fprintf(a.out, "%s finished\n", session.RoutineName)
		return
	case tracker.StateNotStarted:
		a.printf("live workout not started\n")
		return
	}

	current, ok := session.CurrentExercise()
	if !ok {
		bold.Fprintf(a.out, "%s: no exercises\n", session.RoutineName)
		return
	}
	bold.Fprintf(a.out, "%s  [%d/%d] %s\n", session.RoutineName, session.Cursor+1, len(session.Exercises), current.Name)
	for i, slot := range session.Slots {
		line := fmt.Sprintf("  %d. %.2f x %d  rpe %d", i, slot.Weight, slot.Reps, slot.RPE)
		switch slot.State {
		case tracker.SlotPersisted:
			a.printf("%s %s\n", line, color.GreenString("saved"))
		case tracker.SlotDrafted:
			a.printf("%s %s\n", line, color.YellowString("draft"))
		default:
			a.printf("%s\n", color.New(color.Faint).Sprint(line))
		}
		if slot.Error != "" {
			a.printf("     %s\n", color.RedString(slot.Error))
		}
	}
}

// liveResult prints the session even when the call failed part way.
func liveResult(a *app, what string, session *tracker.Session, err error) error {
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Session != nil {
			printSession(a, apiErr.Session)
		}
		return fmt.Errorf("%s: %w", what, err)
	}
	printSession(a, session)
	return nil
}

func newLiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "live",
		Aliases: []string{"l"},
		Short:   "Run a live workout",
		Long: `Run a live workout from a routine.

Slots are the planned sets of the current exercise. Set drafts with
"live set", then "flush", "next", "prev", "goto" or "finish" save every
drafted slot of the current exercise as a workout set.`,
	}

	startCmd := &cobra.Command{
		Use:   "start <routineId>",
		Short: "Start a live workout from a routine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routineID, err := parseID(args[0], "routine id")
			if err != nil {
				return err
			}
			session, err := a.client.LiveStart(cmd.Context(), routineID)
			return liveResult(a, "start live workout", session, err)
		},
	}

	statusCmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show the live workout",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.LiveGet(cmd.Context())
			if client.IsStatus(err, http.StatusNotFound) {
				a.printf("No live workout.\n")
				return nil
			}
			return liveResult(a, "live workout", session, err)
		},
	}

	var rpe int
	setCmd := &cobra.Command{
		Use:   "set <slot> <weight> <reps>",
		Short: "Draft a slot of the current exercise",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			slot, err := parseID(args[0], "slot")
			if err != nil {
				return err
			}
			weight, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid weight: %q", args[1])
			}
			reps, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid reps: %q", args[2])
			}
			session, err := a.client.LiveSetDraft(cmd.Context(), slot, tracker.Draft{Weight: weight, Reps: reps, RPE: rpe})
			return liveResult(a, "set draft", session, err)
		},
	}
	setCmd.Flags().IntVar(&rpe, "rpe", workouts.DefaultRPE, "rate of perceived exertion, 1 to 10")

	flushCmd := &cobra.Command{
		Use:   "flush",
		Short: "Save drafted slots of the current exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.LiveFlush(cmd.Context())
			return liveResult(a, "flush", session, err)
		},
	}

	nextCmd := &cobra.Command{
		Use:   "next",
		Short: "Save drafts and move to the next exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.LiveNext(cmd.Context())
			return liveResult(a, "next exercise", session, err)
		},
	}

	prevCmd := &cobra.Command{
		Use:     "prev",
		Aliases: []string{"previous"},
		Short:   "Save drafts and move to the previous exercise",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.LivePrevious(cmd.Context())
			return liveResult(a, "previous exercise", session, err)
		},
	}

	gotoCmd := &cobra.Command{
		Use:   "goto <index>",
		Short: "Save drafts and jump to an exercise (0-based)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseID(args[0], "exercise index")
			if err != nil {
				return err
			}
			session, err := a.client.LiveSelect(cmd.Context(), index)
			return liveResult(a, "select exercise", session, err)
		},
	}

	finishCmd := &cobra.Command{
		Use:   "finish",
		Short: "Save drafts and finish the workout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.client.LiveFinish(cmd.Context())
			return liveResult(a, "finish", session, err)
		},
	}

	discardCmd := &cobra.Command{
		Use:   "discard",
		Short: "Forget the live workout; saved sets stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.LiveDiscard(cmd.Context()); err != nil {
				return fmt.Errorf("discard: %w", err)
			}
			a.success("live workout discarded")
			return nil
		},
	}

	cmd.AddCommand(startCmd, statusCmd, setCmd, flushCmd, nextCmd, prevCmd, gotoCmd, finishCmd, discardCmd)
	return cmd
}
