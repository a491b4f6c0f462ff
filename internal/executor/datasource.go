package executor

import (
	"context"

	"github.com/shaiso/Elastix/internal/connection"
	"github.com/shaiso/Elastix/internal/domain"
)

// DatasourceTestResult — результат проверки datasource.
type DatasourceTestResult struct {
	// Success — конфигурация валидна и кластер отвечает.
	Success bool `json:"success"`

	// Invalids — проблемы конфигурации (пусто, если конфигурация валидна).
	Invalids []string `json:"invalids,omitempty"`

	// Message — описание ошибки подключения.
	Message string `json:"message,omitempty"`
}

// ValidateDatasource возвращает список проблем конфигурации.
func ValidateDatasource(cfg domain.DatasourceConfiguration) []string {
	return cfg.Validate()
}

// TestDatasource проверяет конфигурацию и доступность кластера.
//
// Использует одноразовый клиент, а не пул: проверка не должна
// оставлять закэшированных подключений.
func (e *Executor) TestDatasource(ctx context.Context, cfg domain.DatasourceConfiguration) *DatasourceTestResult {
	if invalids := ValidateDatasource(cfg); len(invalids) > 0 {
		return &DatasourceTestResult{
			Invalids: invalids,
			Message:  domain.ErrInvalidDatasource.Error(),
		}
	}

	client, err := connection.NewClient(cfg, e.clientOptions)
	if err != nil {
		return &DatasourceTestResult{Message: err.Error()}
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		e.logger.Info("datasource test failed", "endpoints", client.Endpoints(), "error", err)
		return &DatasourceTestResult{Message: err.Error()}
	}

	return &DatasourceTestResult{Success: true}
}
