package repository

import (
	"context"
	"errors"
	"time"

	"bankcore/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound  = errors.New("账户不存在")
	ErrBalanceNotEnough = errors.New("余额不足")
	ErrOptimisticLock   = errors.New("乐观锁冲突，请重试")
	ErrAccountClosed    = errors.New("账户已销户")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// lockForUpdate 行级写锁
// sqlite（单元测试用）写事务全库串行，不支持也不需要 FOR UPDATE
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *AccountRepository) Create(ctx context.Context, tx *gorm.DB, account *model.Account) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByNumber(ctx context.Context, number string) (*model.Account, error) {
	return r.getByNumber(ctx, r.db, number)
}

// getByNumber 在指定连接上读取账户
// 条件更新落空后的归因重读必须复用事务内连接：
// 事务外连接读不到本事务未提交的写入，sqlite 下还会和事务持有的表锁互等
func (r *AccountRepository) getByNumber(ctx context.Context, tx *gorm.DB, number string) (*model.Account, error) {
	var account model.Account
	err := tx.WithContext(ctx).Where("account_number = ?", number).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetByNumberForUpdate 持行锁读取账户，必须在事务内调用
// 并发的资金操作在这里对同一账户串行化
func (r *AccountRepository) GetByNumberForUpdate(ctx context.Context, tx *gorm.DB, number string) (*model.Account, error) {
	var account model.Account
	err := lockForUpdate(tx.WithContext(ctx)).
		Where("account_number = ?", number).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ExistsByNumber 账号是否已被占用
// 开户时在建户事务内调用，检查与插入之间由账号唯一索引兜底
func (r *AccountRepository) ExistsByNumber(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	if tx == nil {
		tx = r.db
	}
	var count int64
	err := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByOpenRequestID 按开户请求号查重，未命中返回 nil
func (r *AccountRepository) GetByOpenRequestID(ctx context.Context, requestID string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("open_request_id = ?", requestID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

// ListInterestBearing 计息候选账户：有效未冻结、设了利率、余额为正的储蓄账户
func (r *AccountRepository) ListInterestBearing(ctx context.Context) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ? AND is_frozen = ? AND interest_rate_bps > 0 AND balance > 0",
			model.AccountTypeSavings, true, false).
		Order("account_number ASC").
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&accounts).Error
	return accounts, err
}

// Debit 扣款
//
// 【重要】余额下限（floor）直接写进 WHERE 条件：
// 即使上层校验被绕过或出现并发缝隙，数据库也绝不会把余额打穿下限。
// RowsAffected==0 时再回查区分"余额不足"和"版本冲突"。
func (r *AccountRepository) Debit(ctx context.Context, tx *gorm.DB, number string, amount int64, floor int64, version int) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ? AND balance - ? >= ? AND version = ?", number, amount, floor, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance - ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		account, err := r.getByNumber(ctx, tx, number)
		if err != nil {
			return err
		}
		if account.Balance-amount < floor {
			return ErrBalanceNotEnough
		}
		return ErrOptimisticLock
	}

	return nil
}

// Credit 入账
func (r *AccountRepository) Credit(ctx context.Context, tx *gorm.DB, number string, amount int64, version int) error {
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ? AND version = ?", number, version).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + ?", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.getByNumber(ctx, tx, number); err != nil {
			return err
		}
		return ErrOptimisticLock
	}

	return nil
}

// SetFrozen 冻结/解冻
func (r *AccountRepository) SetFrozen(ctx context.Context, number string, frozen bool) error {
	result := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ? AND is_active = ?", number, true).
		Updates(map[string]interface{}{
			"is_frozen": frozen,
			"version":   gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByNumber(ctx, number); err != nil {
			return err
		}
		return ErrAccountClosed
	}
	return nil
}

// Close 销户
// 永不物理删除，置 is_active=false 并记录原因和时间。
// 余额清零（销户前必须已完成余额划转）。
func (r *AccountRepository) Close(ctx context.Context, tx *gorm.DB, number string, reason string, version int) error {
	now := time.Now()
	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_number = ? AND is_active = ? AND version = ?", number, true, version).
		Updates(map[string]interface{}{
			"is_active":     false,
			"is_frozen":     false,
			"closed_reason": reason,
			"closed_at":     &now,
			"version":       gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		account, err := r.getByNumber(ctx, tx, number)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return ErrAccountClosed
		}
		return ErrOptimisticLock
	}
	return nil
}
