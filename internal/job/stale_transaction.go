package job

import (
	"context"
	"log"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/repository"

	"gorm.io/gorm"
)

// StaleTransactionJob 滞留流水补偿任务
//
// 正常路径里流水和余额变更在同一事务内直接落 COMPLETED，
// PENDING/PROCESSING 只可能是进程崩溃等异常留下的残留行。
// 残留行对应的余额变更必然没有提交（同一事务已回滚），
// 把它们收敛到 FAILED 只是让账面状态可读，不会动任何余额。
type StaleTransactionJob struct {
	db              *gorm.DB
	transactionRepo *repository.TransactionRepository
	cfg             *config.Config
	stopCh          chan struct{}
	interval        time.Duration
	batchSize       int
}

func NewStaleTransactionJob(db *gorm.DB, cfg *config.Config) *StaleTransactionJob {
	return &StaleTransactionJob{
		db:              db,
		transactionRepo: repository.NewTransactionRepository(db),
		cfg:             cfg,
		stopCh:          make(chan struct{}),
		interval:        time.Minute,
		batchSize:       100,
	}
}

func (j *StaleTransactionJob) Start(ctx context.Context) {
	log.Println("[StaleTransactionJob] 滞留流水补偿任务启动")

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[StaleTransactionJob] 收到停止信号，任务退出")
			return
		case <-j.stopCh:
			log.Println("[StaleTransactionJob] 任务停止")
			return
		case <-ticker.C:
			j.failStaleTransactions(ctx)
		}
	}
}

func (j *StaleTransactionJob) Stop() {
	close(j.stopCh)
}

func (j *StaleTransactionJob) failStaleTransactions(ctx context.Context) {
	threshold := time.Duration(j.cfg.Business.StaleTransactionMinutes) * time.Minute
	before := time.Now().Add(-threshold)

	count, err := j.transactionRepo.FailStale(ctx, before, j.batchSize)
	if err != nil {
		log.Printf("[StaleTransactionJob] 处理滞留流水失败: %v", err)
		return
	}
	if count > 0 {
		log.Printf("[StaleTransactionJob] 已将 %d 条滞留流水标记为失败", count)
	}
}
