package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewExecCmd создаёт команду выполнения action.
//
//	elastix exec DS_ID GET /planets/_doc/id1
//	elastix exec DS_ID POST /_bulk --body-file bulk.ndjson
func NewExecCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		body     string
		bodyFile string
		async    bool
	)

	cmd := &cobra.Command{
		Use:   "exec DATASOURCE_ID METHOD PATH",
		Short: "Execute an action on a datasource",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if body != "" && bodyFile != "" {
				return fmt.Errorf("--body and --body-file are mutually exclusive")
			}
			if bodyFile != "" {
				data, err := readBodyFile(bodyFile)
				if err != nil {
					return err
				}
				body = data
			}

			req := ExecuteRequest{
				Method: strings.ToUpper(args[1]),
				Path:   args[2],
				Body:   body,
			}

			if async {
				res, err := client.ExecuteAsync(args[0], req)
				if err != nil {
					return err
				}
				out.Success(fmt.Sprintf("Execution queued: %s", res.ExecutionID))
				out.Print(
					[]string{"EXECUTION_ID", "STATUS"},
					[][]string{{res.ExecutionID, res.Status}},
					res,
				)
				return nil
			}

			res, err := client.Execute(args[0], req)
			if err != nil {
				return err
			}
			return printExecuteResult(out, res)
		},
	}

	cmd.Flags().StringVarP(&body, "body", "d", "", "Request body (JSON, JSON array or NDJSON)")
	cmd.Flags().StringVar(&bodyFile, "body-file", "", "Read request body from file ('-' for stdin)")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the action instead of waiting for the result")

	return cmd
}

func readBodyFile(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read body file: %w", err)
	}
	return string(data), nil
}

// printExecuteResult выводит результат; неуспешный action — ошибка команды.
func printExecuteResult(out *Output, res *ExecuteResponse) error {
	if out.jsonMode {
		out.JSON(res)
	} else {
		out.Body(res.Body)
	}

	summary := fmt.Sprintf("HTTP %d in %dms (execution %s)", res.StatusCode, res.DurationMs, res.ExecutionID)
	if !res.IsExecutionSuccess {
		out.Failure(fmt.Sprintf("%s: %s", res.ErrorKind, res.ErrorMessage))
		out.Detail(summary)
		return fmt.Errorf("action failed")
	}

	out.Detail(summary)
	return nil
}
