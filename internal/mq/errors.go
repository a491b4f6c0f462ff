package mq

import "errors"

var (
	// ErrNoChannel — AMQP-канал не открыт (нет соединения).
	ErrNoChannel = errors.New("no channel available")

	// ErrConnectionClosed — соединение закрыто через Close.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrPermanent — обработка сообщения невозможна в принципе;
	// consumer отправляет такое сообщение в DLQ без повторов.
	ErrPermanent = errors.New("permanent failure")
)
