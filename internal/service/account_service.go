package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"bankcore/internal/config"
	"bankcore/internal/infrastructure/cache"
	"bankcore/internal/model"
	"bankcore/internal/repository"
	"bankcore/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// AccountService 账户生命周期管理
// 开户、冻结/解冻、余额查询。销户走资金引擎（涉及余额划转）。
type AccountService struct {
	db          *gorm.DB
	redisClient *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	ledger      *LedgerService
}

func NewAccountService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *AccountService {
	return &AccountService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		ledger:      NewLedgerService(db, redisClient, cfg),
	}
}

// errNumberCollision 账号候选撞号，换一个重试
var errNumberCollision = errors.New("账号已被占用")

type OpenAccountRequest struct {
	RequestID           string `json:"request_id" binding:"required"`
	UserID              int64  `json:"user_id" binding:"required"`
	Type                string `json:"type" binding:"required"`
	Currency            string `json:"currency"`
	OverdraftProtection bool   `json:"overdraft_protection"`
	OverdraftLimit      int64  `json:"overdraft_limit"`
	CreditLimit         int64  `json:"credit_limit"`
	InterestRateBps     int64  `json:"interest_rate_bps"`
	InitialDeposit      int64  `json:"initial_deposit"`
}

// OpenAccount 开户
//
// 幂等：请求号已开过户的直接复用原账户，不再建新户，
// 开户请求号唯一索引兜底并发重放。
// 账号生成：随机候选 + 存在性检查，检查和插入在同一事务内，
// 账号唯一索引兜底并发撞号。重试有上限，耗尽后明确失败，
// 不允许在存储异常时无界循环。
// 初始入款走资金引擎，产生自己的存款流水（资金侧同请求号再去重，
// 建户后入款前崩溃的请求重放时补上入款）。
func (s *AccountService) OpenAccount(ctx context.Context, req *OpenAccountRequest) (*model.Account, error) {
	if !model.ValidAccountType(req.Type) {
		return nil, fmt.Errorf("账户类型不合法: %s", req.Type)
	}
	if req.InitialDeposit < 0 {
		return nil, ErrInvalidAmount
	}
	if req.Type == model.AccountTypeCredit && req.CreditLimit <= 0 {
		return nil, fmt.Errorf("信用账户必须设置信用额度")
	}
	if req.OverdraftProtection && req.OverdraftLimit <= 0 {
		return nil, fmt.Errorf("开通透支保护必须设置透支额度")
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	account, err := s.accountRepo.GetByOpenRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, err
	}
	if account != nil {
		log.Printf("[Account] 开户请求重放: request_id=%s, account=%s", req.RequestID, account.AccountNumber)
	}

	maxRetries := s.cfg.Business.AccountNumberMaxRetries
	for attempt := 0; account == nil && attempt < maxRetries; attempt++ {
		number := idgen.RandomAccountNumber(s.cfg.Business.AccountNumberLength)

		err := s.db.Transaction(func(tx *gorm.DB) error {
			exists, err := s.accountRepo.ExistsByNumber(ctx, tx, number)
			if err != nil {
				return err
			}
			if exists {
				return errNumberCollision
			}

			account = &model.Account{
				AccountNumber:       number,
				UserID:              req.UserID,
				OpenRequestID:       &req.RequestID,
				Type:                req.Type,
				Currency:            currency,
				IsActive:            true,
				OverdraftProtection: req.OverdraftProtection,
				OverdraftLimit:      req.OverdraftLimit,
				CreditLimit:         req.CreditLimit,
				InterestRateBps:     req.InterestRateBps,
			}
			return s.accountRepo.Create(ctx, tx, account)
		})

		if err == nil {
			log.Printf("[Account] 开户成功: account=%s, user=%d, type=%s", account.AccountNumber, req.UserID, req.Type)
			break
		}
		account = nil
		// 撞号（检查命中或唯一索引兜底）换号重试，其他错误直接失败
		if errors.Is(err, errNumberCollision) {
			continue
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 唯一索引冲突可能来自账号撞号，也可能是并发重放撞了开户请求号
			existing, lookupErr := s.accountRepo.GetByOpenRequestID(ctx, req.RequestID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing != nil {
				account = existing
				break
			}
			continue
		}
		return nil, err
	}

	if account == nil {
		return nil, ErrGenerationExhausted
	}

	if req.InitialDeposit > 0 {
		if _, err := s.ledger.Deposit(ctx, &DepositRequest{
			RequestID:   req.RequestID,
			AccountNo:   account.AccountNumber,
			Amount:      req.InitialDeposit,
			Description: "开户初始入款",
		}); err != nil {
			return nil, fmt.Errorf("初始入款失败: %w", err)
		}
		return s.accountRepo.GetByNumber(ctx, account.AccountNumber)
	}

	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountNo string) (*model.Account, error) {
	return s.accountRepo.GetByNumber(ctx, accountNo)
}

func (s *AccountService) ListAccounts(ctx context.Context, userID int64) ([]*model.Account, error) {
	return s.accountRepo.ListByUserID(ctx, userID)
}

// BalanceInfo 余额查询结果，可用余额永远现算
type BalanceInfo struct {
	AccountNo        string `json:"account_no"`
	Currency         string `json:"currency"`
	Balance          int64  `json:"balance"`
	AvailableBalance int64  `json:"available_balance"`
}

// GetBalance 查询余额（带读缓存）
// 缓存只加速余额本身，可用余额从账户属性现算
func (s *AccountService) GetBalance(ctx context.Context, accountNo string) (*BalanceInfo, error) {
	account, err := s.accountRepo.GetByNumber(ctx, accountNo)
	if err != nil {
		return nil, err
	}

	balance, ok := cache.GetBalance(ctx, s.redisClient, accountNo)
	if !ok {
		balance = account.Balance
		cache.SetBalance(ctx, s.redisClient, accountNo, balance)
	}
	account.Balance = balance

	return &BalanceInfo{
		AccountNo:        account.AccountNumber,
		Currency:         account.Currency,
		Balance:          balance,
		AvailableBalance: account.AvailableBalance(),
	}, nil
}

// Freeze 冻结账户，冻结后进出资金均被拒绝
func (s *AccountService) Freeze(ctx context.Context, accountNo string) error {
	if err := s.accountRepo.SetFrozen(ctx, accountNo, true); err != nil {
		return err
	}
	log.Printf("[Account] 账户已冻结: account=%s", accountNo)
	return nil
}

// Unfreeze 解冻账户
func (s *AccountService) Unfreeze(ctx context.Context, accountNo string) error {
	if err := s.accountRepo.SetFrozen(ctx, accountNo, false); err != nil {
		return err
	}
	log.Printf("[Account] 账户已解冻: account=%s", accountNo)
	return nil
}
