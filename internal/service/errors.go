package service

import (
	"errors"

	"bankcore/internal/policy"
	"bankcore/internal/repository"
)

// ============================================================================
// 资金引擎错误口径
// ============================================================================
//
// 所有业务规则错误在进入数据库事务前（或持锁后立即）被发现并同步返回，
// 不会自动重试。只有 ErrCommitConflict 一类允许调用方重试，
// 且重试前应先按 request_id 查询流水确认上一次是否已落账。

var (
	// 规则层错误，向上透出
	ErrInvalidAmount     = policy.ErrInvalidAmount
	ErrLimitExceeded     = policy.ErrLimitExceeded
	ErrAccountInactive   = policy.ErrAccountInactive
	ErrAccountFrozen     = policy.ErrAccountFrozen
	ErrInsufficientFunds = policy.ErrInsufficientFunds
	ErrSelfTransfer      = policy.ErrSelfTransfer

	// 存储层错误，向上透出
	ErrAccountNotFound     = repository.ErrAccountNotFound
	ErrTransactionNotFound = repository.ErrTransactionNotFound
	ErrAlreadyReversed     = repository.ErrAlreadyReversed

	// 引擎自身的错误
	ErrDestinationNotFound = errors.New("收款账户不存在")
	ErrNotReversible       = errors.New("该交易不支持冲正")
	ErrGenerationExhausted = errors.New("账号生成重试次数耗尽")
	ErrCommitConflict      = errors.New("系统繁忙，请稍后重试")
	ErrAccountNotClosable  = errors.New("账户当前不可销户")
)

// translateStoreErr 存储层错误到业务口径的折叠：
// 乐观锁冲突 -> 可重试的提交冲突；带下限条件的扣款落空 -> 余额不足
func translateStoreErr(err error) error {
	if errors.Is(err, repository.ErrOptimisticLock) {
		return ErrCommitConflict
	}
	if errors.Is(err, repository.ErrBalanceNotEnough) {
		return ErrInsufficientFunds
	}
	return err
}
