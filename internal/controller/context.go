package controller

import "context"

type contextKey int

const (
	memberIdCtxKey contextKey = iota
	connCtxKey
)

func (c controller) getMemberIdFromCtx(ctx context.Context) string {
	memberId, ok := ctx.Value(memberIdCtxKey).(string)
	if !ok {
		return ""
	}

	return memberId
}

func (c controller) getConnFromCtx(ctx context.Context) *wsConn {
	conn, ok := ctx.Value(connCtxKey).(*wsConn)
	if !ok {
		return nil
	}

	return conn
}
