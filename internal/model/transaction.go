package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeDeposit    = "DEPOSIT"    // 存款
	TransactionTypeWithdrawal = "WITHDRAWAL" // 取款
	TransactionTypeTransfer   = "TRANSFER"   // 转账
	TransactionTypeFee        = "FEE"        // 手续费
	TransactionTypeInterest   = "INTEREST"   // 利息
	TransactionTypeRefund     = "REFUND"     // 退款
	TransactionTypeReversal   = "REVERSAL"   // 冲正（对原交易的反向补偿）
)

// ============================================================================
// 交易状态常量与状态机
// ============================================================================

const (
	TransactionStatusPending    = "PENDING"
	TransactionStatusProcessing = "PROCESSING"
	TransactionStatusCompleted  = "COMPLETED"
	TransactionStatusFailed     = "FAILED"
	TransactionStatusCancelled  = "CANCELLED"
	TransactionStatusReversed   = "REVERSED"
)

// ValidStatusTransitions 合法的状态流转
// 本系统同步结算：正常路径在同一事务内直接落 COMPLETED，
// PENDING/PROCESSING 只会出现在异常残留中，由补偿任务收敛到 FAILED。
// COMPLETED 之后唯一允许的变化是被冲正置为 REVERSED。
var ValidStatusTransitions = map[string][]string{
	TransactionStatusPending:    {TransactionStatusProcessing, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusCancelled},
	TransactionStatusProcessing: {TransactionStatusCompleted, TransactionStatusFailed},
	TransactionStatusCompleted:  {TransactionStatusReversed},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidStatusTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// ReversibleType 判断交易类型是否可被冲正
// 冲正本身、以及费用/利息等系统记账不允许再次冲正
func ReversibleType(t string) bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeTransfer:
		return true
	}
	return false
}

// ============================================================================
// 交易流水实体
// ============================================================================

// Transaction 交易流水表
// 记录每一笔资金变动，是审计和冲正的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改，不删除 —— COMPLETED 之后唯一允许的写入是冲正标记
// 2. 金额恒为正数，方向由 from/to 账号表达
// 3. 交易后余额快照与余额变动在同一事务内写入 —— 保证快照与本笔操作严格对应
// 4. request_id 全局唯一 —— 流水表本身就是幂等去重表
type Transaction struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	RequestID     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"request_id"`     // 幂等ID，客户端生成
	Type          string `gorm:"type:varchar(20);not null" json:"type"`                       // 交易类型
	Status        string `gorm:"type:varchar(20);index;not null" json:"status"`               // 交易状态

	Amount int64 `gorm:"not null" json:"amount"` // 金额（分），恒为正数

	FromAccountNo *string `gorm:"type:varchar(32);index" json:"from_account_no,omitempty"` // 出账账号（存款/利息/退款无）
	ToAccountNo   *string `gorm:"type:varchar(32);index" json:"to_account_no,omitempty"`   // 入账账号（取款/手续费无）

	BalanceAfterFrom *int64 `json:"balance_after_from,omitempty"` // 出账方交易后余额快照
	BalanceAfterTo   *int64 `json:"balance_after_to,omitempty"`   // 入账方交易后余额快照

	Description string `gorm:"type:varchar(256)" json:"description"` // 摘要

	OriginalTxNo *string `gorm:"type:varchar(64);index" json:"original_tx_no,omitempty"` // 被冲正的原交易流水号（仅冲正流水）
	ReversalTxNo *string `gorm:"type:varchar(64)" json:"reversal_tx_no,omitempty"`       // 冲正流水号（原交易被冲正后回填，至多一次）

	OperatorID   string `gorm:"type:varchar(64)" json:"operator_id,omitempty"`    // 管理员操作时的操作人标识
	OperatorNote string `gorm:"type:varchar(256)" json:"operator_note,omitempty"` // 管理员操作原因

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "account_transaction"
}
