package repository

import (
	"context"
	"errors"
	"time"

	"bankcore/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound = errors.New("交易不存在")
	ErrAlreadyReversed     = errors.New("交易已冲正，请勿重复操作")
	ErrStatusInvalid       = errors.New("交易状态不合法")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionNo(ctx context.Context, transactionNo string) (*model.Transaction, error) {
	return r.getByTransactionNo(ctx, r.db, transactionNo)
}

// getByTransactionNo 在指定连接上读取流水
// 条件更新落空后的归因重读走事务内连接，见 account_repo.getByNumber
func (r *TransactionRepository) getByTransactionNo(ctx context.Context, tx *gorm.DB, transactionNo string) (*model.Transaction, error) {
	var trans model.Transaction
	err := tx.WithContext(ctx).Where("transaction_no = ?", transactionNo).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// GetByRequestID 幂等查询：同一 request_id 的操作只会落一条流水
// 找不到返回 nil 而不是错误，调用方据此判断是否首次请求
func (r *TransactionRepository) GetByRequestID(ctx context.Context, requestID string) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// GetByTransactionNoForUpdate 持行锁读取流水，冲正路径在事务内使用
func (r *TransactionRepository) GetByTransactionNoForUpdate(ctx context.Context, tx *gorm.DB, transactionNo string) (*model.Transaction, error) {
	var trans model.Transaction
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("transaction_no = ?", transactionNo).
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// MarkReversed 把原交易标记为已冲正并回填冲正流水号
//
// 【重要】一笔交易至多冲正一次。
// WHERE 条件同时要求 status=COMPLETED 且 reversal_tx_no 为空，
// 两个并发冲正只有一个能命中，落空方收到 ErrAlreadyReversed。
func (r *TransactionRepository) MarkReversed(ctx context.Context, tx *gorm.DB, transactionNo, reversalTxNo string) error {
	result := tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_no = ? AND status = ? AND reversal_tx_no IS NULL",
			transactionNo, model.TransactionStatusCompleted).
		Updates(map[string]interface{}{
			"status":         model.TransactionStatusReversed,
			"reversal_tx_no": reversalTxNo,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		trans, err := r.getByTransactionNo(ctx, tx, transactionNo)
		if err != nil {
			return err
		}
		if trans.Status == model.TransactionStatusReversed || trans.ReversalTxNo != nil {
			return ErrAlreadyReversed
		}
		return ErrStatusInvalid
	}

	return nil
}

// UpdateStatus 按状态机流转交易状态
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, transactionNo string, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrStatusInvalid
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_no = ? AND status = ?", transactionNo, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStatusInvalid
	}
	return nil
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountNo string, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("from_account_no = ? OR to_account_no = ?", accountNo, accountNo)

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ============================================================================
// 读侧聚合（对账/报表），不在资金一致性关键路径上
// ============================================================================

// AccountSummary 单账户区间汇总
type AccountSummary struct {
	AccountNo     string `json:"account_no"`
	IncomingTotal int64  `json:"incoming_total"`
	IncomingCount int64  `json:"incoming_count"`
	OutgoingTotal int64  `json:"outgoing_total"`
	OutgoingCount int64  `json:"outgoing_count"`
}

// TypeTotal 按交易类型汇总
type TypeTotal struct {
	Type  string `json:"type"`
	Total int64  `json:"total"`
	Count int64  `json:"count"`
}

// SummarizeByAccount 指定账户在时间区间内的进出总额
// 只统计已完成/已被冲正的流水（冲正流水本身也是一笔资金变动，正常计入）
func (r *TransactionRepository) SummarizeByAccount(ctx context.Context, accountNo string, from, to time.Time) (*AccountSummary, error) {
	summary := &AccountSummary{AccountNo: accountNo}
	statuses := []string{model.TransactionStatusCompleted, model.TransactionStatusReversed}

	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(amount),0) AS total, COUNT(*) AS cnt").
		Where("to_account_no = ? AND status IN ? AND created_at >= ? AND created_at < ?",
			accountNo, statuses, from, to).
		Row().Scan(&summary.IncomingTotal, &summary.IncomingCount)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("COALESCE(SUM(amount),0) AS total, COUNT(*) AS cnt").
		Where("from_account_no = ? AND status IN ? AND created_at >= ? AND created_at < ?",
			accountNo, statuses, from, to).
		Row().Scan(&summary.OutgoingTotal, &summary.OutgoingCount)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// SummarizeByUser 指定用户名下所有账户按交易类型汇总
func (r *TransactionRepository) SummarizeByUser(ctx context.Context, userID int64, from, to time.Time) ([]*TypeTotal, error) {
	var totals []*TypeTotal
	statuses := []string{model.TransactionStatusCompleted, model.TransactionStatusReversed}

	subQuery := r.db.Model(&model.Account{}).
		Select("account_number").
		Where("user_id = ?", userID)

	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("type, COALESCE(SUM(amount),0) AS total, COUNT(*) AS count").
		Where("(from_account_no IN (?) OR to_account_no IN (?))", subQuery, subQuery).
		Where("status IN ? AND created_at >= ? AND created_at < ?", statuses, from, to).
		Group("type").
		Order("type ASC").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	return totals, nil
}

// FailStale 把滞留过久的 PENDING/PROCESSING 流水批量置为 FAILED
// 正常路径同一事务内直接落 COMPLETED，滞留行只能是异常残留，
// 对应的余额变更必然没有提交，置失败不影响任何余额
func (r *TransactionRepository) FailStale(ctx context.Context, before time.Time, limit int) (int64, error) {
	var stale []model.Transaction
	err := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Select("id", "transaction_no", "status").
		Where("status IN ? AND created_at < ?",
			[]string{model.TransactionStatusPending, model.TransactionStatusProcessing}, before).
		Limit(limit).
		Find(&stale).Error
	if err != nil {
		return 0, err
	}

	// 逐条走状态机流转，并发下已被别处推进的行落空即跳过
	var failed int64
	for _, trans := range stale {
		err := r.UpdateStatus(ctx, nil, trans.TransactionNo, trans.Status, model.TransactionStatusFailed)
		if err != nil {
			if errors.Is(err, ErrStatusInvalid) {
				continue
			}
			return failed, err
		}
		failed++
	}
	return failed, nil
}
