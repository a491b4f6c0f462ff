// Package retention удаляет старые записи журнала выполнений.
//
// Janitor по cron-расписанию удаляет завершённые выполнения старше MaxAge.
// PENDING-записи не трогаются: их ещё подберёт воркер.
//
// Структура:
//   - retention.go — Janitor (Run, Tick)
//   - cron.go      — парсинг cron-выражений и вычисление следующего запуска
//
// Использование:
//
//	janitor, err := retention.New(retention.Config{
//	    Store:    executionRepo,
//	    CronExpr: "0 3 * * *",
//	    MaxAge:   30 * 24 * time.Hour,
//	    Logger:   logger,
//	})
//	go janitor.Run(ctx)
//
// DELETE идемпотентен, поэтому несколько воркеров могут запускать
// Janitor одновременно без leader election.
package retention
