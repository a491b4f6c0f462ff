package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewExecutionCmd создаёт группу команд для журнала выполнений.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Inspect the execution log",
	}

	cmd.AddCommand(
		newExecutionListCmd(clientFn, outputFn),
		newExecutionShowCmd(clientFn, outputFn),
	)

	return cmd
}

var executionHeaders = []string{"ID", "DATASOURCE_ID", "METHOD", "PATH", "STATUS", "CODE", "DURATION_MS", "CREATED"}

func executionRow(e ExecutionResponse) []string {
	code := "-"
	if e.StatusCode > 0 {
		code = strconv.Itoa(e.StatusCode)
	}
	return []string{
		e.ID,
		e.DatasourceID,
		e.Action.Method,
		e.Action.Path,
		e.Status,
		code,
		strconv.FormatInt(e.DurationMs, 10),
		e.CreatedAt,
	}
}

func newExecutionListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var opts ListExecutionsOpts

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			executions, err := client.ListExecutions(opts)
			if err != nil {
				return err
			}

			rows := make([][]string, len(executions))
			for i, e := range executions {
				rows[i] = executionRow(e)
			}

			out.Print(executionHeaders, rows, executions)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.DatasourceID, "datasource-id", "", "Filter by datasource ID")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status (PENDING, RUNNING, SUCCEEDED, FAILED)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show an execution with its response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			exec, err := client.GetExecution(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(exec)
				return nil
			}

			out.Table(executionHeaders, [][]string{executionRow(*exec)})
			if exec.Error != "" {
				out.Failure(exec.ErrorKind + ": " + exec.Error)
			}
			out.Body(exec.Body)
			return nil
		},
	}
}
