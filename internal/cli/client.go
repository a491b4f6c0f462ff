package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// Endpoint — узел кластера.
type Endpoint struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// BasicAuth — учётные данные datasource.
type BasicAuth struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
}

// DatasourceConfig — параметры подключения datasource.
type DatasourceConfig struct {
	Endpoints     []Endpoint `json:"endpoints" yaml:"endpoints"`
	Scheme        string     `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Auth          *BasicAuth `json:"auth,omitempty" yaml:"auth,omitempty"`
	SkipTLSVerify bool       `json:"skip_tls_verify,omitempty" yaml:"skip_tls_verify,omitempty"`
	TimeoutSec    int        `json:"timeout_sec,omitempty" yaml:"timeout_sec,omitempty"`
}

// DatasourceResponse — datasource из API.
type DatasourceResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Config    DatasourceConfig `json:"config"`
	CreatedAt string           `json:"created_at"`
	UpdatedAt string           `json:"updated_at"`
}

// TestResponse — результат проверки datasource.
type TestResponse struct {
	Success  bool     `json:"success"`
	Invalids []string `json:"invalids,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// ExecuteResponse — результат синхронного выполнения.
type ExecuteResponse struct {
	ExecutionID        string          `json:"execution_id"`
	IsExecutionSuccess bool            `json:"is_execution_success"`
	Body               json.RawMessage `json:"body"`
	StatusCode         int             `json:"status_code,omitempty"`
	ErrorKind          string          `json:"error_kind,omitempty"`
	ErrorMessage       string          `json:"error_message,omitempty"`
	DurationMs         int64           `json:"duration_ms"`
}

// AsyncExecuteResponse — выполнение поставлено в очередь.
type AsyncExecuteResponse struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// ActionResponse — action в журнале выполнений.
type ActionResponse struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Body   string `json:"body,omitempty"`
}

// ExecutionResponse — запись журнала выполнений.
type ExecutionResponse struct {
	ID           string          `json:"id"`
	DatasourceID string          `json:"datasource_id"`
	Action       ActionResponse  `json:"action"`
	Status       string          `json:"status"`
	StatusCode   int             `json:"status_code,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	Error        string          `json:"error,omitempty"`
	Body         json.RawMessage `json:"body"`
	DurationMs   int64           `json:"duration_ms"`
	CreatedAt    string          `json:"created_at"`
	StartedAt    string          `json:"started_at,omitempty"`
	FinishedAt   string          `json:"finished_at,omitempty"`
}

// --- Request types ---

// CreateDatasourceRequest — создание datasource.
type CreateDatasourceRequest struct {
	Name   string           `json:"name" yaml:"name"`
	Config DatasourceConfig `json:"config" yaml:"config"`
}

// ExecuteRequest — выполнение action.
type ExecuteRequest struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Body   string `json:"body,omitempty"`
}

// ListExecutionsOpts — параметры фильтрации журнала.
type ListExecutionsOpts struct {
	DatasourceID string
	Status       string
	Limit        int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code     string   `json:"code"`
		Message  string   `json:"message"`
		Invalids []string `json:"invalids"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент для Elastix API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// --- Datasources ---

// ListDatasources возвращает все datasources.
func (c *Client) ListDatasources() ([]DatasourceResponse, error) {
	var datasources []DatasourceResponse
	err := c.list("/api/v1/datasources", nil, &datasources)
	return datasources, err
}

// CreateDatasource создаёт datasource.
func (c *Client) CreateDatasource(req CreateDatasourceRequest) (*DatasourceResponse, error) {
	var ds DatasourceResponse
	err := c.post("/api/v1/datasources", req, &ds)
	return &ds, err
}

// GetDatasource возвращает datasource по ID.
func (c *Client) GetDatasource(id string) (*DatasourceResponse, error) {
	var ds DatasourceResponse
	err := c.get("/api/v1/datasources/"+id, &ds)
	return &ds, err
}

// DeleteDatasource удаляет datasource.
func (c *Client) DeleteDatasource(id string) error {
	return c.delete("/api/v1/datasources/" + id)
}

// TestDatasource проверяет доступность кластера.
func (c *Client) TestDatasource(id string) (*TestResponse, error) {
	var res TestResponse
	err := c.post("/api/v1/datasources/"+id+"/test", nil, &res)
	return &res, err
}

// --- Executions ---

// Execute синхронно выполняет action.
func (c *Client) Execute(datasourceID string, req ExecuteRequest) (*ExecuteResponse, error) {
	var res ExecuteResponse
	err := c.post("/api/v1/datasources/"+datasourceID+"/execute", req, &res)
	return &res, err
}

// ExecuteAsync ставит action в очередь.
func (c *Client) ExecuteAsync(datasourceID string, req ExecuteRequest) (*AsyncExecuteResponse, error) {
	var res AsyncExecuteResponse
	err := c.post("/api/v1/datasources/"+datasourceID+"/execute/async", req, &res)
	return &res, err
}

// ListExecutions возвращает журнал выполнений с фильтрацией.
func (c *Client) ListExecutions(opts ListExecutionsOpts) ([]ExecutionResponse, error) {
	params := url.Values{}
	if opts.DatasourceID != "" {
		params.Set("datasource_id", opts.DatasourceID)
	}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}

	var executions []ExecutionResponse
	err := c.list("/api/v1/executions", params, &executions)
	return executions, err
}

// GetExecution возвращает выполнение по ID.
func (c *Client) GetExecution(id string) (*ExecutionResponse, error) {
	var exec ExecutionResponse
	err := c.get("/api/v1/executions/"+id, &exec)
	return &exec, err
}

// --- HTTP helpers ---

func (c *Client) get(path string, result any) error {
	return c.doData(http.MethodGet, path, nil, result)
}

func (c *Client) post(path string, body any, result any) error {
	return c.doData(http.MethodPost, path, body, result)
}

func (c *Client) delete(path string) error {
	resp, err := c.do(http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(method, path string, body any, result any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Invalids   []string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return &APIError{StatusCode: resp.StatusCode}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Code:       er.Error.Code,
		Message:    er.Error.Message,
		Invalids:   er.Error.Invalids,
	}
}
