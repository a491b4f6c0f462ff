package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Elastix/internal/domain"
	"github.com/shaiso/Elastix/internal/telemetry"
)

// Provider выдаёт клиентов для datasource.
//
// Реализации: Pool (кэширующий), ProviderFunc (для тестов и одноразовых клиентов).
type Provider interface {
	Create(ctx context.Context, cfg domain.DatasourceConfiguration) (*Client, error)
}

// ProviderFunc — адаптер функции к Provider.
type ProviderFunc func(ctx context.Context, cfg domain.DatasourceConfiguration) (*Client, error)

// Create вызывает f.
func (f ProviderFunc) Create(ctx context.Context, cfg domain.DatasourceConfiguration) (*Client, error) {
	return f(ctx, cfg)
}

// DefaultIdleTTL — через сколько неиспользуемый клиент убирается из пула.
const DefaultIdleTTL = 30 * time.Minute

// Pool кэширует по одному клиенту на конфигурацию.
//
// Клиент, убранный из пула (Evict или истёкший IdleTTL), не закрывается:
// выданные ранее копии дорабатывают, освобождаются только idle-соединения.
// Закрывает клиентов только Close.
type Pool struct {
	opts    Options
	idleTTL time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*poolEntry
	closed  bool
}

type poolEntry struct {
	client   *Client
	lastUsed time.Time
}

// PoolConfig — конфигурация Pool.
type PoolConfig struct {
	// Options — параметры создаваемых клиентов.
	Options Options

	// IdleTTL — время жизни неиспользуемого клиента (default: 30m, <0 — бессрочно).
	IdleTTL time.Duration

	// Logger
	Logger *slog.Logger
}

// NewPool создаёт пустой пул.
func NewPool(cfg PoolConfig) *Pool {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idleTTL := cfg.IdleTTL
	if idleTTL == 0 {
		idleTTL = DefaultIdleTTL
	}

	return &Pool{
		opts:    cfg.Options,
		idleTTL: idleTTL,
		logger:  logger,
		now:     time.Now,
		clients: make(map[string]*poolEntry),
	}
}

// Create возвращает кэшированный клиент или создаёт новый.
// Конкурентные вызовы для одной конфигурации получают один и тот же клиент.
func (p *Pool) Create(_ context.Context, cfg domain.DatasourceConfiguration) (*Client, error) {
	key := cfg.Fingerprint()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	now := p.now()
	p.pruneLocked(now)

	if entry, ok := p.clients[key]; ok && !entry.client.IsClosed() {
		entry.lastUsed = now
		return entry.client, nil
	}

	client, err := NewClient(cfg, p.opts)
	if err != nil {
		return nil, err
	}

	p.clients[key] = &poolEntry{client: client, lastUsed: now}
	telemetry.SetPoolClients(len(p.clients))

	p.logger.Debug("datasource client created",
		"endpoints", client.Endpoints(),
		"timeout", client.Timeout(),
		"pool_size", len(p.clients),
	)

	return client, nil
}

// pruneLocked убирает клиентов, не использованных дольше idleTTL.
func (p *Pool) pruneLocked(now time.Time) {
	if p.idleTTL < 0 {
		return
	}
	for key, entry := range p.clients {
		if now.Sub(entry.lastUsed) > p.idleTTL {
			delete(p.clients, key)
			entry.client.release()
			p.logger.Debug("idle datasource client dropped", "endpoints", entry.client.Endpoints())
		}
	}
}

// Evict убирает клиент конфигурации из пула.
// Используется при изменении или удалении datasource. Datasources
// с одинаковой конфигурацией делят клиент: после Evict следующий
// Create для любого из них создаст новый.
func (p *Pool) Evict(cfg domain.DatasourceConfiguration) {
	key := cfg.Fingerprint()

	p.mu.Lock()
	entry, ok := p.clients[key]
	delete(p.clients, key)
	size := len(p.clients)
	p.mu.Unlock()

	if ok {
		entry.client.release()
		telemetry.SetPoolClients(size)
		p.logger.Debug("datasource client evicted", "endpoints", entry.client.Endpoints())
	}
}

// Len возвращает количество клиентов в пуле.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

// Close закрывает все клиенты. После Close пул не выдаёт клиентов.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	clients := p.clients
	p.clients = make(map[string]*poolEntry)
	p.mu.Unlock()

	for _, entry := range clients {
		entry.client.Close()
	}
	telemetry.SetPoolClients(0)

	p.logger.Info("connection pool closed", "clients", len(clients))
}
