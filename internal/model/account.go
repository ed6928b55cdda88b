package model

import (
	"time"
)

// ============================================================================
// 账户类型常量
// ============================================================================

const (
	AccountTypeChecking = "CHECKING" // 活期账户
	AccountTypeSavings  = "SAVINGS"  // 储蓄账户
	AccountTypeBusiness = "BUSINESS" // 对公账户
	AccountTypeCredit   = "CREDIT"   // 信用账户（余额可为负，受信用额度约束）
)

// ValidAccountType 校验账户类型是否合法
func ValidAccountType(t string) bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness, AccountTypeCredit:
		return true
	}
	return false
}

// Account 账户表
// 记录每个账户的余额和状态，是整个系统的核心数据（资金的唯一事实来源）
//
// 【重要】余额一律以最小货币单位（分）的 int64 存储，
// 不允许浮点数进入任何资金计算路径，避免累计舍入误差。
type Account struct {
	ID            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountNumber string `gorm:"type:varchar(32);uniqueIndex;not null" json:"account_number"` // 账号（定长数字串，全局唯一）
	UserID        int64  `gorm:"index;not null" json:"user_id"`                               // 所属用户ID，业务方传入

	// 开户请求号，唯一索引兜底去重；可空，历史数据与内部建户不占用
	OpenRequestID *string `gorm:"type:varchar(64);uniqueIndex" json:"-"`

	Type          string `gorm:"type:varchar(20);not null" json:"type"`                       // 账户类型
	Currency      string `gorm:"type:varchar(8);not null;default:CNY" json:"currency"`        // 币种

	Balance int64 `gorm:"not null;default:0" json:"balance"` // 余额（分），信用账户可为负

	IsActive bool `gorm:"not null;default:true;index" json:"is_active"` // 是否有效，false 后拒绝一切资金操作
	IsFrozen bool `gorm:"not null;default:false" json:"is_frozen"`      // 是否冻结

	OverdraftProtection bool  `gorm:"not null;default:false" json:"overdraft_protection"` // 是否开通透支保护
	OverdraftLimit      int64 `gorm:"not null;default:0" json:"overdraft_limit"`          // 透支额度（分）
	CreditLimit         int64 `gorm:"not null;default:0" json:"credit_limit"`             // 信用额度（分），仅信用账户
	InterestRateBps     int64 `gorm:"not null;default:0" json:"interest_rate_bps"`        // 年利率（基点），仅储蓄账户计息

	ClosedReason string     `gorm:"type:varchar(256)" json:"closed_reason,omitempty"` // 销户原因
	ClosedAt     *time.Time `json:"closed_at,omitempty"`                              // 销户时间

	Version   int       `gorm:"not null;default:0" json:"version"` // 乐观锁版本号
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}

// AvailableBalance 可用余额
//
// 【重要】可用余额是纯派生值，永远从余额现算，不落库。
//   - 信用账户：信用额度 + 余额（余额为负时表示已用额度）
//   - 开通透支保护：余额 + 透支额度
//   - 其他：余额本身
func (a *Account) AvailableBalance() int64 {
	if a.Type == AccountTypeCredit {
		return a.CreditLimit + a.Balance
	}
	if a.OverdraftProtection {
		return a.Balance + a.OverdraftLimit
	}
	return a.Balance
}

// BalanceFloor 余额下限
// 扣款后余额不得低于该值，在扣款 SQL 的 WHERE 条件中强制执行
func (a *Account) BalanceFloor() int64 {
	if a.Type == AccountTypeCredit {
		return -a.CreditLimit
	}
	if a.OverdraftProtection {
		return -a.OverdraftLimit
	}
	return 0
}
