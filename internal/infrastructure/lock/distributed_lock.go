package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁实现
// ============================================================================
//
// 【为什么需要分布式锁？】
//
// 场景：同一账户同时收到两笔取款请求（比如网络抖动导致重复提交）
//
// 数据库行锁（FOR UPDATE）已经保证了正确性，但两个请求都会打到数据库、
// 在行锁上排队。按账户加分布式锁把排队挡在数据库之外：
//   goroutine1: 获取锁 -> 开事务 -> 扣款 -> 提交 -> 释放锁
//   goroutine2: 获取锁失败，等待... -> 获取锁 -> 重新读余额 -> 校验
//
// 【Redis 分布式锁原理】
//
// 加锁：SET key value NX EX timeout
//   - NX: 只有 key 不存在时才设置（保证互斥）
//   - EX: 设置过期时间（防止死锁）
//   - value: 锁持有者标识（释放时验证，防止误删别人的锁）
//
// 释放锁：使用 Lua 脚本保证原子性
//   - 先检查 value 是否是自己的
//   - 再删除 key
//
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
//
// 【关键点】使用 SetNX 命令，只有当 key 不存在时才能设置成功
// 这保证了同一时刻只有一个客户端能获取到锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		// 等待一段时间后重试
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】使用 Lua 脚本保证"检查+删除"操作的原子性
//
// 为什么要检查 value？
//
//	场景：A 获取锁 -> A 处理超时，锁自动过期 -> B 获取锁 -> A 执行完毕，调用 Unlock
//	如果不检查 value，A 会把 B 的锁删掉！
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// ============================================================================
// 便捷函数：按账户、按交易维度的操作锁
// ============================================================================

// NewAccountLock 创建账户操作锁（按账号维度）
//
// 【设计思考】为什么按账户维度加锁？
//
// 全局锁并发度太低；按用户加锁会让同一用户名下不同账户互相阻塞。
// 按账号加锁粒度刚好：不同账户并发互不影响，
// 同一账户的并发操作串行化——这正是我们想要的。
// 转账涉及两个账户时只锁出账方，入账方只增不减，由数据库行锁保护即可。
func NewAccountLock(client *redis.Client, accountNo string, holder string) *DistributedLock {
	key := fmt.Sprintf("ledger:lock:account:%s", accountNo)
	// value 使用请求的幂等ID，便于追踪是哪个请求持有锁
	return NewDistributedLock(client, key, holder, 30*time.Second)
}

// NewReversalLock 创建冲正锁（按原交易维度）
// 同一笔交易的并发冲正在数据库层也会被拦住，这里提前挡掉重复请求
func NewReversalLock(client *redis.Client, transactionNo string, holder string) *DistributedLock {
	key := fmt.Sprintf("ledger:lock:reversal:%s", transactionNo)
	return NewDistributedLock(client, key, holder, 30*time.Second)
}
