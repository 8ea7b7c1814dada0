package mq

import (
	"context"
	"errors"
)

// NopBackend drops published messages. Used when no broker is
// configured so audit recording stays a single code path.
type NopBackend struct{}

func (NopBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (NopBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	return errors.New("no mq backend configured")
}

func (NopBackend) Close() error {
	return nil
}
