// Package cli реализует инструмент командной строки Elastix.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Elastix API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Elastix API. Инкапсулирует запросы, разбор
// конвертов (data, list, error) и ошибки валидации (*APIError).
//
//	client := cli.NewClient("http://localhost:8080")
//	res, err := client.Execute(dsID, cli.ExecuteRequest{Method: "GET", Path: "/_cat/indices"})
//
// ## Output
//
// Форматирование вывода: таблицы (text/tabwriter) или JSON (--json).
// Данные — в stdout, сообщения — в stderr с подсветкой (fatih/color;
// отключается автоматически, если stderr не терминал, или через NO_COLOR).
//
// ## Commands
//
//   - datasource (ds): list, create, show, delete, test
//   - exec DATASOURCE_ID METHOD PATH [--body|--body-file] [--async]
//   - execution: list, show
//
// datasource create принимает описание в YAML или JSON (--file),
// флаги переопределяют значения из файла:
//
//	name: planets
//	config:
//	  endpoints:
//	    - host: localhost
//	      port: 9200
//	  auth:
//	    username: elastic
//	    password: changeme
package cli
