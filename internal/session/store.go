package session

import (
	"context"
	"errors"

	"github.com/AnalyseDeCircuit/homedash/pkg/types"
)

// ErrNotFound 会话不存在或已过期
var ErrNotFound = errors.New("session not found")

// Store 会话存储接口。Manager 只通过它读写会话，
// 内存与 Redis 两种实现可以互换而不影响调用方。
type Store interface {
	Get(ctx context.Context, id string) (*types.Session, error)
	Set(ctx context.Context, sess *types.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}
