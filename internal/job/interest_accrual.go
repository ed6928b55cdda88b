package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/repository"
	"bankcore/internal/service"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// InterestAccrualJob 储蓄账户计息任务
//
// 按日计提：日息 = 余额 * 年利率(基点) / 10000 / 365，不足1分不计。
// 利息入账走资金引擎（INTEREST 类型流水），幂等ID按 账号+自然日 生成：
// 进程重启、任务重跑都不会给同一账户同一天重复计息。
type InterestAccrualJob struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	ledger      *service.LedgerService
	cfg         *config.Config
	stopCh      chan struct{}
}

func NewInterestAccrualJob(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *InterestAccrualJob {
	return &InterestAccrualJob{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		ledger:      service.NewLedgerService(db, redisClient, cfg),
		cfg:         cfg,
		stopCh:      make(chan struct{}),
	}
}

func (j *InterestAccrualJob) Start(ctx context.Context) {
	log.Println("[InterestJob] 计息任务启动")

	interval := time.Duration(j.cfg.Business.InterestIntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[InterestJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[InterestJob] 任务停止")
			return
		case <-ticker.C:
			j.AccrueOnce(ctx)
		}
	}
}

func (j *InterestAccrualJob) Stop() {
	close(j.stopCh)
}

// AccrueOnce 对所有计息候选账户计提一次当日利息
func (j *InterestAccrualJob) AccrueOnce(ctx context.Context) {
	accounts, err := j.accountRepo.ListInterestBearing(ctx)
	if err != nil {
		log.Printf("[InterestJob] 查询计息账户失败: %v", err)
		return
	}

	day := time.Now().Format("20060102")
	posted := 0
	for _, acc := range accounts {
		interest := DailyInterest(acc.Balance, acc.InterestRateBps)
		if interest <= 0 {
			continue
		}

		requestID := fmt.Sprintf("INT-%s-%s", acc.AccountNumber, day)
		_, err := j.ledger.PostInterest(ctx, requestID, acc.AccountNumber, interest)
		if err != nil {
			// 账户在任务运行中被冻结/销户是正常情况，跳过即可
			if errors.Is(err, service.ErrAccountFrozen) || errors.Is(err, service.ErrAccountInactive) {
				continue
			}
			log.Printf("[InterestJob] 计息失败: account=%s, err=%v", acc.AccountNumber, err)
			continue
		}
		posted++
	}

	if posted > 0 {
		log.Printf("[InterestJob] 本轮计息完成: %d 个账户", posted)
	}
}

// DailyInterest 日利息（分），向下取整
func DailyInterest(balance, rateBps int64) int64 {
	if balance <= 0 || rateBps <= 0 {
		return 0
	}
	return balance * rateBps / 10000 / 365
}
