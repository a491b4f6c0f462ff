package cli

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewDatasourceCmd создаёт группу команд для управления datasources.
func NewDatasourceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "datasource",
		Aliases: []string{"ds"},
		Short:   "Manage Elasticsearch datasources",
	}

	cmd.AddCommand(
		newDatasourceListCmd(clientFn, outputFn),
		newDatasourceCreateCmd(clientFn, outputFn),
		newDatasourceShowCmd(clientFn, outputFn),
		newDatasourceDeleteCmd(clientFn, outputFn),
		newDatasourceTestCmd(clientFn, outputFn),
	)

	return cmd
}

var datasourceHeaders = []string{"ID", "NAME", "ENDPOINTS", "AUTH", "CREATED"}

func datasourceRow(ds DatasourceResponse) []string {
	auth := "-"
	if ds.Config.Auth != nil && ds.Config.Auth.Username != "" {
		auth = ds.Config.Auth.Username
	}
	return []string{ds.ID, ds.Name, formatEndpoints(ds.Config), auth, ds.CreatedAt}
}

func formatEndpoints(cfg DatasourceConfig) string {
	parts := make([]string, len(cfg.Endpoints))
	for i, e := range cfg.Endpoints {
		if e.Port > 0 {
			parts[i] = e.Host + ":" + strconv.Itoa(e.Port)
		} else {
			parts[i] = e.Host
		}
	}
	return strings.Join(parts, ",")
}

func newDatasourceListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all datasources",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			datasources, err := client.ListDatasources()
			if err != nil {
				return err
			}

			rows := make([][]string, len(datasources))
			for i, ds := range datasources {
				rows[i] = datasourceRow(ds)
			}

			out.Print(datasourceHeaders, rows, datasources)
			return nil
		},
	}
}

func newDatasourceCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		file       string
		name       string
		endpoints  []string
		scheme     string
		username   string
		password   string
		insecure   bool
		timeoutSec int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a datasource from flags or a YAML/JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var req CreateDatasourceRequest
			if file != "" {
				loaded, err := loadDatasourceFile(file)
				if err != nil {
					return err
				}
				req = *loaded
			}

			// Флаги дополняют и переопределяют файл
			if cmd.Flags().Changed("name") {
				req.Name = name
			}
			if len(endpoints) > 0 {
				req.Config.Endpoints = nil
				for _, raw := range endpoints {
					e, err := parseEndpoint(raw)
					if err != nil {
						return err
					}
					req.Config.Endpoints = append(req.Config.Endpoints, e)
				}
			}
			if cmd.Flags().Changed("scheme") {
				req.Config.Scheme = scheme
			}
			if username != "" || password != "" {
				req.Config.Auth = &BasicAuth{Username: username, Password: password}
			}
			if cmd.Flags().Changed("insecure") {
				req.Config.SkipTLSVerify = insecure
			}
			if cmd.Flags().Changed("timeout") {
				req.Config.TimeoutSec = timeoutSec
			}

			if req.Name == "" {
				return fmt.Errorf("datasource name is required (--name or name in --file)")
			}

			ds, err := client.CreateDatasource(req)
			if err != nil {
				printInvalids(out, err)
				return err
			}

			out.Success(fmt.Sprintf("Datasource created: %s", ds.ID))
			out.Print(datasourceHeaders, [][]string{datasourceRow(*ds)}, ds)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to datasource definition (YAML or JSON)")
	cmd.Flags().StringVar(&name, "name", "", "Datasource name")
	cmd.Flags().StringSliceVar(&endpoints, "endpoint", nil, "Endpoint host[:port], repeatable")
	cmd.Flags().StringVar(&scheme, "scheme", "", "Default scheme: http or https")
	cmd.Flags().StringVar(&username, "username", "", "Basic auth username")
	cmd.Flags().StringVar(&password, "password", "", "Basic auth password")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	cmd.Flags().IntVar(&timeoutSec, "timeout", 0, "Request timeout in seconds")

	return cmd
}

// loadDatasourceFile читает описание datasource. JSON — подмножество
// YAML, поэтому оба формата разбираются одним декодером.
func loadDatasourceFile(path string) (*CreateDatasourceRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read datasource file: %w", err)
	}

	var req CreateDatasourceRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse datasource file: %w", err)
	}
	return &req, nil
}

// parseEndpoint разбирает "host", "host:port" или "https://host:port".
func parseEndpoint(raw string) (Endpoint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Endpoint{}, fmt.Errorf("empty endpoint")
	}

	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || strings.HasPrefix(raw[idx+1:], "/") {
		return Endpoint{Host: raw}, nil
	}

	port, err := strconv.Atoi(raw[idx+1:])
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid port in endpoint %q", raw)
	}
	return Endpoint{Host: raw[:idx], Port: port}, nil
}

// printInvalids выводит список проблем конфигурации, если API их вернул.
func printInvalids(out *Output, err error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return
	}
	for _, invalid := range apiErr.Invalids {
		out.Failure("  - " + invalid)
	}
}

func newDatasourceShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show datasource details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			ds, err := client.GetDatasource(args[0])
			if err != nil {
				return err
			}

			out.Print(datasourceHeaders, [][]string{datasourceRow(*ds)}, ds)
			return nil
		},
	}
}

func newDatasourceDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a datasource and its execution log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeleteDatasource(args[0]); err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Datasource deleted: %s", args[0]))
			return nil
		},
	}
}

func newDatasourceTestCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "test ID",
		Short: "Check that the datasource cluster is reachable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			res, err := client.TestDatasource(args[0])
			if err != nil {
				return err
			}

			if out.jsonMode {
				out.JSON(res)
			}
			if !res.Success {
				out.Failure("Datasource test failed: " + res.Message)
				for _, invalid := range res.Invalids {
					out.Failure("  - " + invalid)
				}
				return fmt.Errorf("datasource %s is not reachable", args[0])
			}

			out.Success("Datasource is reachable")
			return nil
		},
	}
}
