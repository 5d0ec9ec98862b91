package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/offline"
	"github.com/spf13/cobra"
)

// taskFlags are the task fields settable from the command line.
type taskFlags struct {
	description string
	dueDate     string
	dueTime     string
	priority    string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "desc", "d", "", "description")
	cmd.Flags().StringVar(&f.dueDate, "due", "", "due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.dueTime, "at", "", "due time, HH:MM")
	cmd.Flags().StringVarP(&f.priority, "priority", "p", "", "low, medium, high or urgent")
}

// applyTo overrides the fields of draft given on the command line.
func (f *taskFlags) applyTo(cmd *cobra.Command, draft *domain.TaskDraft) {
	if cmd.Flags().Changed("desc") {
		draft.Description = f.description
	}
	if cmd.Flags().Changed("due") {
		draft.DueDate = f.dueDate
	}
	if cmd.Flags().Changed("at") {
		draft.DueTime = f.dueTime
	}
	if cmd.Flags().Changed("priority") {
		draft.Priority = domain.Priority(strings.ToLower(f.priority))
	}
}

func newAddCmd(app *cli) *cobra.Command {
	var (
		space    string
		fields   taskFlags
		useAI    bool
		timezone string
	)

	cmd := &cobra.Command{
		Use:   "add [flags] TEXT...",
		Short: "Create a task",
		Long: "Create a task in a space. With --ai the text is parsed by the " +
			"backend into a title, due date and priority first; flags still win.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			spaceID, err := parseID("space", space)
			if err != nil {
				return err
			}

			text := strings.Join(args, " ")
			draft := domain.TaskDraft{Title: text}
			if useAI {
				parsed, err := app.client.ParseTask(ctx, text, timezone)
				if err != nil {
					return fmt.Errorf("AI parsing failed: %w", err)
				}
				draft = *parsed
				printDraft(app.out, draft)
			}
			fields.applyTo(cmd, &draft)

			op := offline.CreateTask{
				SpaceID:  spaceID,
				ClientID: uuid.New(),
				Draft:    draft.Normalize(),
			}
			return app.submit(ctx, op, fmt.Sprintf("Created %q.", op.Draft.Title))
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "space ID (required)")
	cmd.Flags().BoolVar(&useAI, "ai", false, "parse the text with AI")
	cmd.Flags().StringVar(&timezone, "tz", "", "IANA time zone for relative dates (default UTC)")
	fields.register(cmd)
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func newUpdateCmd(app *cli) *cobra.Command {
	var (
		space  string
		title  string
		fields taskFlags
		undone bool
	)

	cmd := &cobra.Command{
		Use:   "update TASK_ID",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spaceID, taskID, err := parseTarget(space, args[0])
			if err != nil {
				return err
			}

			var patch domain.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("desc") {
				patch.Description = &fields.description
			}
			if cmd.Flags().Changed("due") {
				patch.DueDate = &fields.dueDate
			}
			if cmd.Flags().Changed("at") {
				patch.DueTime = &fields.dueTime
			}
			if cmd.Flags().Changed("priority") {
				p := domain.Priority(strings.ToLower(fields.priority))
				patch.Priority = &p
			}
			if undone {
				completed := false
				patch.Completed = &completed
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update, pass at least one flag")
			}

			op := offline.UpdateTask{SpaceID: spaceID, TaskID: taskID, Patch: patch}
			return app.submit(cmd.Context(), op, "Task updated.")
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "space ID (required)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().BoolVar(&undone, "undone", false, "mark the task as not completed")
	fields.register(cmd)
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func newDoneCmd(app *cli) *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:   "done TASK_ID",
		Short: "Mark a task as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spaceID, taskID, err := parseTarget(space, args[0])
			if err != nil {
				return err
			}
			completed := true
			op := offline.UpdateTask{
				SpaceID: spaceID,
				TaskID:  taskID,
				Patch:   domain.TaskPatch{Completed: &completed},
			}
			return app.submit(cmd.Context(), op, "Task completed.")
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "space ID (required)")
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func newRemoveCmd(app *cli) *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:     "rm TASK_ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spaceID, taskID, err := parseTarget(space, args[0])
			if err != nil {
				return err
			}
			op := offline.DeleteTask{SpaceID: spaceID, TaskID: taskID}
			return app.submit(cmd.Context(), op, "Task deleted.")
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "space ID (required)")
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func newNoteCmd(app *cli) *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:   "note TASK_ID TEXT...",
		Short: "Add a progress note to a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spaceID, taskID, err := parseTarget(space, args[0])
			if err != nil {
				return err
			}
			op := offline.AppendTaskUpdate{
				SpaceID: spaceID,
				TaskID:  taskID,
				Text:    strings.TrimSpace(strings.Join(args[1:], " ")),
			}
			return app.submit(cmd.Context(), op, "Note added.")
		},
	}
	cmd.Flags().StringVarP(&space, "space", "s", "", "space ID (required)")
	_ = cmd.MarkFlagRequired("space")
	return cmd
}

func newTasksCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks SPACE_ID",
		Short: "List the tasks of a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			spaceID, err := parseID("space", args[0])
			if err != nil {
				return err
			}

			tasks, err := app.client.ListTasks(ctx, spaceID)
			if err != nil {
				return err
			}
			printTasks(app.out, tasks)

			pending, err := app.writes.Pending(ctx, spaceID)
			if err == nil && pending > 0 {
				fmt.Fprintf(app.out, "\n%d change(s) for this space are waiting to sync.\n", pending)
			}
			return nil
		},
	}
}

func newNotesCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "notes TASK_ID",
		Short: "Show a task with its notes and summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			taskID, err := parseID("task", args[0])
			if err != nil {
				return err
			}

			task, err := app.client.GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			updates, err := app.client.ListUpdates(ctx, taskID)
			if err != nil {
				return err
			}
			printTaskDetail(app.out, task, updates)
			return nil
		},
	}
}

func parseID(what, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s ID %q", what, raw)
	}
	return id, nil
}

func parseTarget(space, task string) (uuid.UUID, uuid.UUID, error) {
	spaceID, err := parseID("space", space)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	taskID, err := parseID("task", task)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return spaceID, taskID, nil
}
