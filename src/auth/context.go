package auth

import (
	"context"
)

type contextKey string

const OperatorKey contextKey = "operator"

func GetOperatorFromContext(ctx context.Context) (string, bool) {
	operator, ok := ctx.Value(OperatorKey).(string)
	return operator, ok
}
