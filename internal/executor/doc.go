// Package executor — Action Executor: выполняет один action на datasource.
//
// # Обзор
//
// Executor принимает единообразное описание вызова (метод, path, body)
// и конфигурацию datasource, одалживает подключение у Connection Provider,
// отправляет ровно один запрос и нормализует ответ backend'а
// в domain.ActionExecutionResult.
//
//	exec := executor.New(executor.Config{
//	    Provider: pool,
//	    Logger:   logger,
//	})
//
//	result := exec.Execute(ctx, nil, dsCfg, domain.ActionConfiguration{
//	    Method: domain.MethodGet,
//	    Path:   "/planets/_doc/id1",
//	})
//
// # Тело запроса
//
// Body передаётся backend'у как есть. Исключение — bulk-эндпоинты
// (_bulk, _msearch): JSON-массив операций перекодируется в NDJSON
// (по строке на элемент), NDJSON отправляется без изменений
// с гарантированным переводом строки в конце. Операции не разделяются
// и не интерпретируются.
//
// # Ошибки
//
// Execute никогда не возвращает error: каждая ошибка превращается
// в неуспешный результат с ErrorKind:
//   - VALIDATION — невалидный action, запрос не отправлялся
//   - CONNECTION — провайдер не выдал подключение
//   - TRANSPORT — сеть, таймаут, отмена контекста
//   - BACKEND — статус не из 2xx
//   - DECODE — ответ не разбирается как ожидаемый JSON
//
// Retry внутри executor'а нет — это ответственность вызывающего.
package executor
