package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPort — порт Elasticsearch по умолчанию.
const DefaultPort = 9200

// Scheme — схема подключения к backend'у.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// Endpoint — адрес одного узла кластера.
type Endpoint struct {
	// Host — имя хоста. Допускается префикс схемы: "https://es.example.com".
	Host string `json:"host"`

	// Port — порт. 0 означает DefaultPort.
	Port int `json:"port,omitempty"`
}

// split отделяет схему от хоста, если она указана в Host.
// IPv6-адрес в квадратных скобках возвращается без скобок.
func (e Endpoint) split() (Scheme, string) {
	host := strings.TrimSpace(e.Host)
	lower := strings.ToLower(host)

	var scheme Scheme
	switch {
	case strings.HasPrefix(lower, "https://"):
		scheme, host = SchemeHTTPS, strings.TrimRight(host[len("https://"):], "/")
	case strings.HasPrefix(lower, "http://"):
		scheme, host = SchemeHTTP, strings.TrimRight(host[len("http://"):], "/")
	}

	if len(host) > 2 && host[0] == '[' && host[len(host)-1] == ']' {
		host = host[1 : len(host)-1]
	}
	return scheme, host
}

// BaseURL возвращает базовый URL узла без завершающего слэша.
// Схема из Host имеет приоритет над схемой datasource.
func (e Endpoint) BaseURL(scheme Scheme) string {
	s, host := e.split()
	if s == "" {
		s = scheme
	}
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}
	return string(s) + "://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// BasicAuth — учётные данные basic-аутентификации.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
}

// DatasourceConfiguration — описание того, куда подключаться.
//
// Не зависит от конкретного action. После передачи в Connection Provider
// не изменяется.
type DatasourceConfiguration struct {
	// Endpoints — упорядоченный список узлов кластера.
	Endpoints []Endpoint `json:"endpoints"`

	// Scheme — схема по умолчанию для узлов без явной схемы. Default: http.
	Scheme Scheme `json:"scheme,omitempty"`

	// Auth — basic-аутентификация (опционально).
	Auth *BasicAuth `json:"auth,omitempty"`

	// SkipTLSVerify — отключает проверку сертификата.
	SkipTLSVerify bool `json:"skip_tls_verify,omitempty"`

	// TimeoutSec — таймаут одного запроса в секундах. 0 — таймаут провайдера.
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// EffectiveScheme возвращает схему с учётом значения по умолчанию.
func (c DatasourceConfiguration) EffectiveScheme() Scheme {
	if c.Scheme == "" {
		return SchemeHTTP
	}
	return Scheme(strings.ToLower(string(c.Scheme)))
}

// Timeout возвращает таймаут запроса или def, если он не задан.
func (c DatasourceConfiguration) Timeout(def time.Duration) time.Duration {
	if c.TimeoutSec > 0 {
		return time.Duration(c.TimeoutSec) * time.Second
	}
	return def
}

// BaseURLs возвращает базовые URL всех узлов в исходном порядке.
func (c DatasourceConfiguration) BaseURLs() []string {
	urls := make([]string, len(c.Endpoints))
	for i, e := range c.Endpoints {
		urls[i] = e.BaseURL(c.EffectiveScheme())
	}
	return urls
}

// Validate возвращает список проблем конфигурации.
// Пустой список означает, что конфигурация валидна.
func (c DatasourceConfiguration) Validate() []string {
	var invalids []string

	if len(c.Endpoints) == 0 {
		invalids = append(invalids, "No endpoint provided. Please provide a host:port where Elasticsearch is reachable.")
	}

	for i, e := range c.Endpoints {
		if _, host := e.split(); host == "" {
			invalids = append(invalids, fmt.Sprintf("Missing host for endpoint %d", i+1))
		} else if strings.ContainsAny(host, "/ []") {
			invalids = append(invalids, fmt.Sprintf("Invalid host %q for endpoint %d", e.Host, i+1))
		} else if strings.Contains(host, ":") && net.ParseIP(host) == nil {
			// Порт в Host: "es:9200" вместо Port
			invalids = append(invalids, fmt.Sprintf("Invalid host %q for endpoint %d, set the port separately", e.Host, i+1))
		}
		if e.Port < 0 || e.Port > 65535 {
			invalids = append(invalids, fmt.Sprintf("Invalid port %d for endpoint %d", e.Port, i+1))
		}
	}

	switch c.EffectiveScheme() {
	case SchemeHTTP, SchemeHTTPS:
	default:
		invalids = append(invalids, fmt.Sprintf("Unsupported scheme %q, expected http or https", c.Scheme))
	}

	if c.Auth != nil {
		if c.Auth.Username == "" && c.Auth.Password != "" {
			invalids = append(invalids, "Missing username for authentication")
		}
		if c.Auth.Username != "" && c.Auth.Password == "" {
			invalids = append(invalids, "Missing password for authentication")
		}
	}

	if c.TimeoutSec < 0 {
		invalids = append(invalids, "Timeout must not be negative")
	}

	return invalids
}

// Fingerprint возвращает стабильный идентификатор конфигурации.
// Одинаковые конфигурации дают одинаковый fingerprint, пароль в открытом виде не виден.
func (c DatasourceConfiguration) Fingerprint() string {
	normalized := c
	normalized.Scheme = c.EffectiveScheme()
	if c.Auth != nil && c.Auth.Username == "" && c.Auth.Password == "" {
		normalized.Auth = nil
	}

	// json.Marshal структуры детерминирован: порядок полей фиксирован.
	data, _ := json.Marshal(normalized)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Redacted возвращает копию конфигурации без пароля (для API и логов).
func (c DatasourceConfiguration) Redacted() DatasourceConfiguration {
	out := c
	out.Endpoints = append([]Endpoint(nil), c.Endpoints...)
	if c.Auth != nil {
		auth := *c.Auth
		if auth.Password != "" {
			auth.Password = "******"
		}
		out.Auth = &auth
	}
	return out
}

// Datasource — именованная сохранённая конфигурация подключения.
type Datasource struct {
	// ID — уникальный идентификатор datasource.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя (например, "logs-prod").
	Name string `json:"name"`

	// Config — параметры подключения.
	Config DatasourceConfiguration `json:"config"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения.
	UpdatedAt time.Time `json:"updated_at"`
}
