package service

import (
	"context"
	"time"

	"bankcore/internal/repository"

	"gorm.io/gorm"
)

// StatementService 对账/报表读侧
// 只读聚合，不在资金一致性关键路径上，允许接读库
type StatementService struct {
	transactionRepo *repository.TransactionRepository
}

func NewStatementService(db *gorm.DB) *StatementService {
	return &StatementService{
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// AccountSummary 账户区间进出汇总
func (s *StatementService) AccountSummary(ctx context.Context, accountNo string, from, to time.Time) (*repository.AccountSummary, error) {
	return s.transactionRepo.SummarizeByAccount(ctx, accountNo, from, to)
}

// UserSummary 用户名下所有账户按类型汇总
func (s *StatementService) UserSummary(ctx context.Context, userID int64, from, to time.Time) ([]*repository.TypeTotal, error) {
	return s.transactionRepo.SummarizeByUser(ctx, userID, from, to)
}
