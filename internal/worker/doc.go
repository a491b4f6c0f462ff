// Package worker выполняет отложенные actions.
//
// # Обзор
//
// Worker — stateless компонент, который:
//
//   - получает action.requested из очереди actions.requested (event-driven)
//   - периодически подбирает зависшие PENDING-выполнения из БД (polling fallback)
//   - выполняет action через executor на datasource выполнения
//   - записывает результат в журнал и публикует action.completed
//
// Workers масштабируются горизонтально: несколько экземпляров
// потребляют из одной очереди. Завершить выполнение можно только один
// раз (repo.ErrInvalidState), поэтому повторная доставка безопасна.
//
// # Использование
//
//	w := worker.New(worker.Config{
//	    Executions:  executionRepo,
//	    Datasources: datasourceRepo,
//	    Executor:    exec,
//	    Publisher:   publisher,
//	    Conn:        mqConn,
//	    Logger:      logger,
//	})
//	w.Start(ctx)
//	defer w.Stop()
//
// Без Conn worker работает только в режиме polling.
package worker
