package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shaiso/Elastix/internal/connection"
	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/executor"
	"github.com/shaiso/Elastix/internal/repo"
)

// DatasourceStore — хранилище datasources. Реализуется *repo.DatasourceRepo.
type DatasourceStore interface {
	Create(ctx context.Context, ds *domain.Datasource) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Datasource, error)
	List(ctx context.Context) ([]domain.Datasource, error)
	Update(ctx context.Context, ds *domain.Datasource) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionStore — журнал выполнений. Реализуется *repo.ExecutionRepo.
type ExecutionStore interface {
	Create(ctx context.Context, exec *domain.Execution) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	List(ctx context.Context, filter repo.ExecutionFilter) ([]domain.Execution, error)
}

// ActionExecutor выполняет actions и проверяет datasources.
// Реализуется *executor.Executor.
type ActionExecutor interface {
	Run(ctx context.Context, cfg domain.DatasourceConfiguration, action domain.ActionConfiguration) *domain.ActionExecutionResult
	TestDatasource(ctx context.Context, cfg domain.DatasourceConfiguration) *executor.DatasourceTestResult
}

// ActionPublisher ставит выполнения в очередь. Реализуется *mq.Publisher.
type ActionPublisher interface {
	PublishActionRequested(ctx context.Context, executionID, datasourceID uuid.UUID) error
}

// ConnectionEvictor сбрасывает закэшированные подключения.
// Реализуется *connection.Pool.
type ConnectionEvictor interface {
	Evict(cfg domain.DatasourceConfiguration)
}

var _ ConnectionEvictor = (*connection.Pool)(nil)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	datasources DatasourceStore
	executions  ExecutionStore
	executor    ActionExecutor
	publisher   ActionPublisher
	connections ConnectionEvictor
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Datasources DatasourceStore
	Executions  ExecutionStore
	Executor    ActionExecutor

	// Publisher — опционально; без него асинхронные выполнения
	// подбирает polling воркера.
	Publisher ActionPublisher

	// Connections — опционально; пул, из которого вытесняются
	// подключения изменённых и удалённых datasources.
	Connections ConnectionEvictor

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		datasources: cfg.Datasources,
		executions:  cfg.Executions,
		executor:    cfg.Executor,
		publisher:   cfg.Publisher,
		connections: cfg.Connections,
		logger:      logger,
	}
}

// evict сбрасывает подключение конфигурации, если пул задан.
func (h *Handler) evict(cfg domain.DatasourceConfiguration) {
	if h.connections != nil {
		h.connections.Evict(cfg)
	}
}
