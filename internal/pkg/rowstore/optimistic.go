package rowstore

import (
	"context"
	"errors"
	log "log/slog"
)

// MaxAttempts 乐观更新的默认尝试次数，不做退避
const MaxAttempts = 5

// ErrContention 条件写入在全部尝试中都输给了并发写入者
var ErrContention = errors.New("rowstore: conditional write retries exhausted")

// Step 执行一次 读取-计算-条件写入。
// done 为 true 表示得到了最终结果（写入成功或校验失败无需再试）；
// done 为 false 表示条件写未生效，需要重新读取后再试。
type Step[T any] func(ctx context.Context, attempt int) (result T, done bool, err error)

// Optimistic 循环执行 step 直到完成或尝试次数耗尽。
// 耗尽时返回最后一次 step 的结果和 ErrContention，调用方自行决定如何软失败。
func Optimistic[T any](ctx context.Context, attempts int, step Step[T]) (T, error) {
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	var last T
	for i := 0; i < attempts; i++ {
		result, done, err := step(ctx, i)
		if err != nil {
			return result, err
		}
		if done {
			return result, nil
		}
		last = result
		log.DebugContext(ctx, "conditional write not applied, retrying", "attempt", i+1)
	}
	log.WarnContext(ctx, "conditional write retries exhausted", "attempts", attempts)
	return last, ErrContention
}
