package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxWorkerID ctxKey = iota
	ctxEmail
)

func WithWorker(ctx context.Context, workerID, email string) context.Context {
	ctx = context.WithValue(ctx, ctxWorkerID, workerID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	return ctx
}

func WorkerID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxWorkerID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("worker_id not in context")
}

func Email(ctx context.Context) (string, error) {
	v := ctx.Value(ctxEmail)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("email not in context")
}
