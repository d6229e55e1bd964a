package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evanschultz/taskdeck/internal/app"
	"github.com/evanschultz/taskdeck/internal/domain"
	"github.com/spf13/cobra"
)

// errDeleteNotConfirmed is returned by "tasks rm" without --yes.
var errDeleteNotConfirmed = errors.New("delete not confirmed; pass --yes")

// errAssistantFailed is returned by "ask" when the backend reports no success.
var errAssistantFailed = errors.New("assistant command failed")

// withService runs fn against a gateway-backed service and logs the flow.
func (c *cli) withService(ctx context.Context, command string, fn func(context.Context, *app.Service) error) error {
	env, err := c.bootstrap(command)
	if err != nil {
		return err
	}
	defer env.close(c.stderr)

	svc, err := newService(env)
	if err != nil {
		return err
	}
	env.logger.Info("command flow start", "command", command)
	if err := fn(ctx, svc); err != nil {
		env.logger.Error("command flow failed", "command", command, "err", err)
		return err
	}
	env.logger.Info("command flow complete", "command", command)
	return nil
}

func (c *cli) tasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"t"},
		Short:   "List and change tasks without the board",
	}
	cmd.AddCommand(
		c.tasksListCommand(),
		c.tasksAddCommand(),
		c.tasksShowCommand(),
		c.tasksStatusCommand(),
		c.tasksEditCommand(),
		c.tasksRemoveCommand(),
		c.tasksExportCommand(),
		c.tasksImportCommand(),
	)
	return cmd
}

func (c *cli) tasksListCommand() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks, optionally by status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := domain.FilterAll
			if strings.TrimSpace(status) != "" {
				parsed, err := domain.ParseFilter(status)
				if err != nil {
					return err
				}
				filter = parsed
			}
			return c.withService(cmd.Context(), "tasks list", func(ctx context.Context, svc *app.Service) error {
				tasks, err := svc.ListTasks(ctx, filter)
				if err != nil {
					return err
				}
				writeTaskTable(cmd.OutOrStdout(), tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter: NOT_STARTED, IN_PROGRESS, or COMPLETED")
	return cmd
}

func (c *cli) tasksAddCommand() *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), "tasks add", func(ctx context.Context, svc *app.Service) error {
				task, err := svc.CreateTask(ctx, app.CreateTaskInput{
					Title:       strings.Join(args, " "),
					Description: description,
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created #%d %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	return cmd
}

func (c *cli) tasksShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), "tasks show", func(ctx context.Context, svc *app.Service) error {
				task, err := svc.GetTask(ctx, id)
				if err != nil {
					return err
				}
				writeTaskDetail(cmd.OutOrStdout(), task)
				return nil
			})
		},
	}
}

func (c *cli) tasksStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Request a status change",
		Long:  "Request a status change. The backend decides whether the transition is allowed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			status, err := parseStatusArg(args[1])
			if err != nil {
				return err
			}
			return c.withService(cmd.Context(), "tasks status", func(ctx context.Context, svc *app.Service) error {
				task, err := svc.ChangeStatus(ctx, id, status)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", task.ID, task.DisplayStatus())
				return nil
			})
		},
	}
}

func (c *cli) tasksEditCommand() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			titleSet := cmd.Flags().Changed("title")
			descriptionSet := cmd.Flags().Changed("description")
			if !titleSet && !descriptionSet {
				return errors.New("nothing to change; pass --title or --description")
			}
			return c.withService(cmd.Context(), "tasks edit", func(ctx context.Context, svc *app.Service) error {
				current, err := svc.GetTask(ctx, id)
				if err != nil {
					return err
				}
				in := app.UpdateTaskInput{
					TaskID:      id,
					Title:       current.Title,
					Description: current.Description,
				}
				if titleSet {
					in.Title = title
				}
				if descriptionSet {
					in.Description = description
				}
				task, err := svc.UpdateTaskFields(ctx, in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated #%d %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	return cmd
}

func (c *cli) tasksRemoveCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				return errDeleteNotConfirmed
			}
			return c.withService(cmd.Context(), "tasks rm", func(ctx context.Context, svc *app.Service) error {
				if err := svc.DeleteTask(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the delete")
	return cmd
}

func (c *cli) tasksExportCommand() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every task to a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withService(cmd.Context(), "tasks export", func(ctx context.Context, svc *app.Service) error {
				snap, err := svc.ExportSnapshot(ctx)
				if err != nil {
					return err
				}
				encoded, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encode snapshot json: %w", err)
				}
				encoded = append(encoded, '\n')
				if outPath == "-" {
					if _, err := cmd.OutOrStdout().Write(encoded); err != nil {
						return fmt.Errorf("write snapshot to stdout: %w", err)
					}
					return nil
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return fmt.Errorf("create export output dir: %w", err)
				}
				if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d tasks to %s\n", len(snap.Tasks), outPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file path ('-' for stdout)")
	return cmd
}

func (c *cli) tasksImportCommand() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Recreate tasks from a JSON snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(inPath) == "" {
				return errors.New("--in is required")
			}
			content, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var snap app.Snapshot
			if err := json.Unmarshal(content, &snap); err != nil {
				return fmt.Errorf("decode snapshot json: %w", err)
			}
			return c.withService(cmd.Context(), "tasks import", func(ctx context.Context, svc *app.Service) error {
				result, err := svc.ImportSnapshot(ctx, snap)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d tasks\n", len(result.Created), len(snap.Tasks))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "input snapshot JSON file")
	return cmd
}

func (c *cli) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <command...>",
		Short: "Send a natural-language command to the assistant",
		Example: `  taskdeck ask create a task to review the budget
  taskdeck ask mark task 3 as completed`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd.Context(), "ask", func(ctx context.Context, svc *app.Service) error {
				resp, err := svc.SendCommand(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if feedback := strings.TrimSpace(resp.Feedback()); feedback != "" {
					_, _ = fmt.Fprintln(out, feedback)
				}
				if resp.Result != nil {
					for _, ref := range resp.Result.Tasks {
						_, _ = fmt.Fprintf(out, "  #%d %s (%s)\n", ref.ID, ref.Title, ref.Status)
					}
				}
				if !resp.Succeeded() {
					return errAssistantFailed
				}
				return nil
			})
		},
	}
}

// parseTaskID parses a positive task id argument.
func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidID, raw)
	}
	return id, nil
}

// parseStatusArg accepts the loose spellings ParseFilter does, minus ALL.
func parseStatusArg(raw string) (domain.Status, error) {
	filter, err := domain.ParseFilter(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, raw)
	}
	status, ok := filter.Status()
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidStatus, raw)
	}
	return status, nil
}

func writeTaskTable(w io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		_, _ = fmt.Fprintln(w, "No tasks found.")
		return
	}
	for _, task := range tasks {
		_, _ = fmt.Fprintf(w, "#%-4d %-12s %s\n", task.ID, task.Status, task.Title)
	}
}

func writeTaskDetail(w io.Writer, task domain.Task) {
	_, _ = fmt.Fprintf(w, "#%d %s\n", task.ID, task.Title)
	_, _ = fmt.Fprintf(w, "status: %s\n", task.DisplayStatus())
	if !task.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "created: %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "updated: %s\n", task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if desc := strings.TrimSpace(task.Description); desc != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", desc)
	}
}
