// Package nats is the transport package the executor core never
// imports directly: it supplies a transfer.Resolver and a
// transfer.TransferFn backed by a NATS connection, and a Receiver that
// decodes inbound subject traffic back onto a queue.ReceiveQueue. Every
// executor-facing symbol in this package speaks only in the transfer
// and queue packages' own types — nothing downstream of ExecutorTransfer
// or Core ever sees a *nats.Conn.
package nats
