package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"bankcore/internal/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	RedisClient = client
	log.Println("Redis 连接成功")
	return client
}

// ============================================================
// 余额缓存
// ============================================================
//
// 余额查询接口的读缓存。资金引擎每次提交后主动失效，
// 缓存永远不是余额的权威来源，权威只有数据库。

const balanceTTL = 30 * time.Second

func BalanceKey(accountNo string) string {
	return fmt.Sprintf("account:balance:%s", accountNo)
}

// GetBalance 读余额缓存，未命中返回 false
func GetBalance(ctx context.Context, client *redis.Client, accountNo string) (int64, bool) {
	val, err := client.Get(ctx, BalanceKey(accountNo)).Int64()
	if err != nil {
		return 0, false
	}
	return val, true
}

// SetBalance 回填余额缓存
func SetBalance(ctx context.Context, client *redis.Client, accountNo string, balance int64) {
	if err := client.Set(ctx, BalanceKey(accountNo), balance, balanceTTL).Err(); err != nil {
		log.Printf("[Cache] 回填余额缓存失败: account=%s, err=%v", accountNo, err)
	}
}

// InvalidateBalance 资金变动提交后失效缓存
func InvalidateBalance(ctx context.Context, client *redis.Client, accountNos ...string) {
	for _, no := range accountNos {
		if err := client.Del(ctx, BalanceKey(no)).Err(); err != nil {
			log.Printf("[Cache] 失效余额缓存失败: account=%s, err=%v", no, err)
		}
	}
}
