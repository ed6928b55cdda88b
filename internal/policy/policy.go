package policy

import (
	"errors"

	"bankcore/internal/model"
)

// ============================================================================
// 规则层：限额 / 状态 / 可用余额校验
// ============================================================================
//
// 规则层是 (操作类型, 账户状态, 金额) -> 放行/拒绝 的纯函数：
//   - 无状态，不持久化任何东西
//   - 在进入数据库事务前（以及事务内持锁后）同步调用
//   - 资金引擎是唯一允许修改余额的组件，规则层只做判断
//
// ============================================================================

var (
	ErrInvalidAmount     = errors.New("金额必须大于0")
	ErrLimitExceeded     = errors.New("金额超过单笔限额")
	ErrAccountInactive   = errors.New("账户已销户或未激活")
	ErrAccountFrozen     = errors.New("账户已冻结")
	ErrInsufficientFunds = errors.New("可用余额不足")
	ErrSelfTransfer      = errors.New("不允许向本账户转账")
)

// Limits 各操作独立的单笔上限（分），来自配置
type Limits struct {
	MaxDeposit    int64
	MaxWithdrawal int64
	MaxTransfer   int64
}

// checkAmount 金额基础校验，ceiling<=0 表示不设上限
func checkAmount(amount, ceiling int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if ceiling > 0 && amount > ceiling {
		return ErrLimitExceeded
	}
	return nil
}

// checkAccountOpen 账户必须有效且未冻结
// 本设计中冻结账户连存款也拒绝：冻结通常出于风控/司法原因，进出都应停
func checkAccountOpen(acc *model.Account) error {
	if !acc.IsActive {
		return ErrAccountInactive
	}
	if acc.IsFrozen {
		return ErrAccountFrozen
	}
	return nil
}

// CheckDeposit 存款规则
func (l Limits) CheckDeposit(acc *model.Account, amount int64) error {
	if err := checkAmount(amount, l.MaxDeposit); err != nil {
		return err
	}
	return checkAccountOpen(acc)
}

// CheckWithdrawal 取款规则
// 可用余额 = 余额(+透支额度/信用额度)，见 Account.AvailableBalance
func (l Limits) CheckWithdrawal(acc *model.Account, amount int64) error {
	if err := checkAmount(amount, l.MaxWithdrawal); err != nil {
		return err
	}
	if err := checkAccountOpen(acc); err != nil {
		return err
	}
	if acc.AvailableBalance() < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// CheckTransfer 转账规则
// 两侧账户都必须有效未冻结，出账方可用余额充足，且不允许自转
func (l Limits) CheckTransfer(from, to *model.Account, amount int64) error {
	if err := checkAmount(amount, l.MaxTransfer); err != nil {
		return err
	}
	if from.AccountNumber == to.AccountNumber {
		return ErrSelfTransfer
	}
	if err := checkAccountOpen(from); err != nil {
		return err
	}
	if err := checkAccountOpen(to); err != nil {
		return err
	}
	if from.AvailableBalance() < amount {
		return ErrInsufficientFunds
	}
	return nil
}

// CheckAdminDeposit 管理员入账规则
// 绕过单笔限额和冻结检查，但销户账户仍然拒绝
func (l Limits) CheckAdminDeposit(acc *model.Account, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !acc.IsActive {
		return ErrAccountInactive
	}
	return nil
}

// CheckAdminWithdrawal 管理员出账规则
// 绕过单笔限额和冻结检查，但不允许把余额打穿下限：
// 透支/信用规则本来允许的负余额除外
func (l Limits) CheckAdminWithdrawal(acc *model.Account, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !acc.IsActive {
		return ErrAccountInactive
	}
	if acc.AvailableBalance() < amount {
		return ErrInsufficientFunds
	}
	return nil
}
