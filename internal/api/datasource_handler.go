package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/executor"
)

// ListDatasources возвращает список datasources.
// GET /api/v1/datasources
func (h *Handler) ListDatasources(w http.ResponseWriter, r *http.Request) {
	datasources, err := h.datasources.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]DatasourceResponse, len(datasources))
	for i, ds := range datasources {
		result[i] = DatasourceFromDomain(ds)
	}

	List(w, result, len(result))
}

// CreateDatasource создаёт новый datasource.
// POST /api/v1/datasources
func (h *Handler) CreateDatasource(w http.ResponseWriter, r *http.Request) {
	var req CreateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if invalids := executor.ValidateDatasource(req.Config); len(invalids) > 0 {
		UnprocessableEntity(w, domain.ErrInvalidDatasource.Error(), invalids)
		return
	}

	now := time.Now().UTC()
	ds := &domain.Datasource{
		ID:        uuid.New(),
		Name:      req.Name,
		Config:    req.Config,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.datasources.Create(r.Context(), ds); HandleRepoError(w, h.logger, err, "") {
		return
	}

	h.logger.Info("datasource created", "datasource_id", ds.ID, "name", ds.Name)
	Created(w, DatasourceFromDomain(*ds))
}

// GetDatasource возвращает datasource по ID.
// GET /api/v1/datasources/{id}
func (h *Handler) GetDatasource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid datasource id")
	if !ok {
		return
	}

	ds, err := h.datasources.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}

	Success(w, DatasourceFromDomain(*ds))
}

// UpdateDatasource обновляет имя и/или конфигурацию datasource.
// PUT /api/v1/datasources/{id}
func (h *Handler) UpdateDatasource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid datasource id")
	if !ok {
		return
	}

	var req UpdateDatasourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	ds, err := h.datasources.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}
	previous := ds.Config

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(w, "name must not be empty")
			return
		}
		ds.Name = name
	}
	if req.Config != nil {
		cfg := *req.Config
		keepPassword(&cfg, previous)
		if invalids := executor.ValidateDatasource(cfg); len(invalids) > 0 {
			UnprocessableEntity(w, domain.ErrInvalidDatasource.Error(), invalids)
			return
		}
		ds.Config = cfg
	}
	ds.UpdatedAt = time.Now().UTC()

	if err := h.datasources.Update(r.Context(), ds); HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}

	if req.Config != nil {
		h.evict(previous)
	}

	h.logger.Info("datasource updated", "datasource_id", ds.ID, "name", ds.Name)
	Success(w, DatasourceFromDomain(*ds))
}

// keepPassword подставляет текущий пароль вместо маски.
func keepPassword(cfg *domain.DatasourceConfiguration, previous domain.DatasourceConfiguration) {
	if cfg.Auth == nil || cfg.Auth.Password != redactedPassword {
		return
	}
	if previous.Auth != nil && previous.Auth.Username == cfg.Auth.Username {
		auth := *cfg.Auth
		auth.Password = previous.Auth.Password
		cfg.Auth = &auth
	}
}

// DeleteDatasource удаляет datasource и его журнал выполнений.
// DELETE /api/v1/datasources/{id}
func (h *Handler) DeleteDatasource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid datasource id")
	if !ok {
		return
	}

	ds, err := h.datasources.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}

	if err := h.datasources.Delete(r.Context(), id); HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}
	h.evict(ds.Config)

	h.logger.Info("datasource deleted", "datasource_id", id)
	NoContent(w)
}

// ValidateDatasource проверяет конфигурацию без сохранения.
// POST /api/v1/datasources/validate
func (h *Handler) ValidateDatasource(w http.ResponseWriter, r *http.Request) {
	var cfg domain.DatasourceConfiguration
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	invalids := executor.ValidateDatasource(cfg)
	if invalids == nil {
		invalids = []string{}
	}

	Success(w, ValidateDatasourceResponse{
		Valid:    len(invalids) == 0,
		Invalids: invalids,
	})
}

// TestDatasource проверяет доступность кластера datasource.
// POST /api/v1/datasources/{id}/test
func (h *Handler) TestDatasource(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid datasource id")
	if !ok {
		return
	}

	ds, err := h.datasources.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "datasource not found") {
		return
	}

	Success(w, h.executor.TestDatasource(r.Context(), ds.Config))
}

// pathID разбирает {id} из пути; при ошибке отвечает 400.
func pathID(w http.ResponseWriter, r *http.Request, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, message)
		return uuid.Nil, false
	}
	return id, true
}
