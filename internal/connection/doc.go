// Package connection — Connection Provider для Elasticsearch datasources.
//
// Provider по DatasourceConfiguration выдаёт *Client — переиспользуемый
// handle поверх http.Client. Pool кэширует по одному клиенту на
// конфигурацию (по Fingerprint), поэтому конкурентные вызовы к одному
// datasource разделяют keep-alive соединения.
//
// Жизненным циклом клиентов (создание, кэширование, закрытие) владеет
// провайдер. Executor только одалживает клиент на время одного вызова.
package connection
