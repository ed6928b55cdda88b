package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/infrastructure/cache"
	"bankcore/internal/infrastructure/lock"
	"bankcore/internal/model"
	"bankcore/internal/policy"
	"bankcore/internal/repository"
	"bankcore/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ============================================================================
// 资金引擎
// ============================================================================
//
// 所有余额变动的唯一入口。每个操作的套路一致：
//
//   1. 按 request_id 查流水做幂等（流水表的唯一索引就是去重表）
//   2. 按账户取分布式锁，把同账户的并发请求挡在数据库外
//   3. 开数据库事务：持行锁读账户 -> 规则层校验 -> 带下限条件的余额更新
//      -> 写一条 COMPLETED 流水（含交易后余额快照） -> 写发件箱
//   4. 事务要么整体提交要么整体回滚，不存在可观察的中间状态
//
// 【重要】除资金引擎外，任何组件不得修改余额字段。

type LedgerService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	limits          policy.Limits
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewLedgerService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *LedgerService {
	return &LedgerService{
		db:          db,
		redisClient: redisClient,
		cfg:         cfg,
		limits: policy.Limits{
			MaxDeposit:    cfg.Business.MaxDeposit,
			MaxWithdrawal: cfg.Business.MaxWithdrawal,
			MaxTransfer:   cfg.Business.MaxTransfer,
		},
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// ============================================================
// 请求/响应结构
// ============================================================

type DepositRequest struct {
	RequestID   string `json:"request_id" binding:"required"`
	AccountNo   string `json:"account_no" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

type WithdrawRequest struct {
	RequestID   string `json:"request_id" binding:"required"`
	AccountNo   string `json:"account_no" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

type TransferRequest struct {
	RequestID   string `json:"request_id" binding:"required"`
	FromAccount string `json:"from_account" binding:"required"`
	ToAccount   string `json:"to_account" binding:"required"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description"`
}

type ReverseRequest struct {
	RequestID     string `json:"request_id" binding:"required"`
	TransactionNo string `json:"transaction_no" binding:"required"`
	Reason        string `json:"reason"`
}

// AdminMoveRequest 管理员出入账请求
// 管理员操作绕过冻结和单笔限额检查，但必须留下操作人和原因
type AdminMoveRequest struct {
	RequestID  string `json:"request_id" binding:"required"`
	AccountNo  string `json:"account_no" binding:"required"`
	Amount     int64  `json:"amount" binding:"required,gt=0"`
	OperatorID string `json:"-"`
	Reason     string `json:"reason" binding:"required"`
}

// ============================================================
// 存款
// ============================================================

func (s *LedgerService) Deposit(ctx context.Context, req *DepositRequest) (*model.Transaction, error) {
	return s.creditOp(ctx, req.RequestID, req.AccountNo, req.Amount,
		model.TransactionTypeDeposit, req.Description, "", "",
		func(acc *model.Account) error { return s.limits.CheckDeposit(acc, req.Amount) })
}

// AdminDeposit 管理员入账
// 独立入口而不是普通存款加开关：绕过了哪些检查在调用点一目了然
func (s *LedgerService) AdminDeposit(ctx context.Context, req *AdminMoveRequest) (*model.Transaction, error) {
	return s.creditOp(ctx, req.RequestID, req.AccountNo, req.Amount,
		model.TransactionTypeDeposit, fmt.Sprintf("管理员入账-%s", req.Reason), req.OperatorID, req.Reason,
		func(acc *model.Account) error { return s.limits.CheckAdminDeposit(acc, req.Amount) })
}

// PostInterest 利息入账（计息任务调用）
func (s *LedgerService) PostInterest(ctx context.Context, requestID, accountNo string, amount int64) (*model.Transaction, error) {
	return s.creditOp(ctx, requestID, accountNo, amount,
		model.TransactionTypeInterest, "储蓄利息", "", "",
		func(acc *model.Account) error { return s.limits.CheckDeposit(acc, amount) })
}

// creditOp 入账类操作的公共路径
func (s *LedgerService) creditOp(ctx context.Context, requestID, accountNo string, amount int64,
	txType, description, operatorID, operatorNote string,
	check func(*model.Account) error) (*model.Transaction, error) {

	// 幂等校验
	if existing, err := s.transactionRepo.GetByRequestID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	// 获取账户锁
	accLock := lock.NewAccountLock(s.redisClient, accountNo, requestID)
	if err := accLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer accLock.Unlock(ctx)

	// 获取锁后再次检查幂等
	if existing, err := s.transactionRepo.GetByRequestID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, accountNo)
		if err != nil {
			return err
		}

		if err := check(account); err != nil {
			return err
		}

		if err := s.accountRepo.Credit(ctx, tx, accountNo, amount, account.Version); err != nil {
			return translateStoreErr(err)
		}

		balanceAfter := account.Balance + amount
		trans = &model.Transaction{
			TransactionNo:  idgen.GenerateTransactionNo(),
			RequestID:      requestID,
			Type:           txType,
			Status:         model.TransactionStatusCompleted,
			Amount:         amount,
			ToAccountNo:    &accountNo,
			BalanceAfterTo: &balanceAfter,
			Description:    description,
			OperatorID:     operatorID,
			OperatorNote:   operatorNote,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.writeOutbox(ctx, tx, trans)
	})

	if err != nil {
		// request_id 唯一索引兜底：并发重复请求撞上时返回先落账的那条
		if existing, qerr := s.transactionRepo.GetByRequestID(ctx, requestID); qerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	cache.InvalidateBalance(ctx, s.redisClient, accountNo)
	log.Printf("[Ledger] 入账成功: txNo=%s, type=%s, account=%s, amount=%d", trans.TransactionNo, txType, accountNo, amount)
	return trans, nil
}

// ============================================================
// 取款
// ============================================================

func (s *LedgerService) Withdraw(ctx context.Context, req *WithdrawRequest) (*model.Transaction, error) {
	return s.debitOp(ctx, req.RequestID, req.AccountNo, req.Amount,
		model.TransactionTypeWithdrawal, req.Description, "", "",
		func(acc *model.Account) error { return s.limits.CheckWithdrawal(acc, req.Amount) })
}

// AdminWithdraw 管理员出账
// 绕过冻结和单笔限额，但依然不允许把余额打穿下限
func (s *LedgerService) AdminWithdraw(ctx context.Context, req *AdminMoveRequest) (*model.Transaction, error) {
	return s.debitOp(ctx, req.RequestID, req.AccountNo, req.Amount,
		model.TransactionTypeWithdrawal, fmt.Sprintf("管理员出账-%s", req.Reason), req.OperatorID, req.Reason,
		func(acc *model.Account) error { return s.limits.CheckAdminWithdrawal(acc, req.Amount) })
}

// PostFee 收取手续费（管理端发起）
// 限额和冻结检查同管理员出账，余额下限仍然生效
func (s *LedgerService) PostFee(ctx context.Context, req *AdminMoveRequest) (*model.Transaction, error) {
	return s.debitOp(ctx, req.RequestID, req.AccountNo, req.Amount,
		model.TransactionTypeFee, fmt.Sprintf("手续费-%s", req.Reason), req.OperatorID, req.Reason,
		func(acc *model.Account) error { return s.limits.CheckAdminWithdrawal(acc, req.Amount) })
}

// debitOp 出账类操作的公共路径
func (s *LedgerService) debitOp(ctx context.Context, requestID, accountNo string, amount int64,
	txType, description, operatorID, operatorNote string,
	check func(*model.Account) error) (*model.Transaction, error) {

	if existing, err := s.transactionRepo.GetByRequestID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	accLock := lock.NewAccountLock(s.redisClient, accountNo, requestID)
	if err := accLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer accLock.Unlock(ctx)

	if existing, err := s.transactionRepo.GetByRequestID(ctx, requestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, accountNo)
		if err != nil {
			return err
		}

		if err := check(account); err != nil {
			return err
		}

		if err := s.accountRepo.Debit(ctx, tx, accountNo, amount, account.BalanceFloor(), account.Version); err != nil {
			return translateStoreErr(err)
		}

		balanceAfter := account.Balance - amount
		trans = &model.Transaction{
			TransactionNo:    idgen.GenerateTransactionNo(),
			RequestID:        requestID,
			Type:             txType,
			Status:           model.TransactionStatusCompleted,
			Amount:           amount,
			FromAccountNo:    &accountNo,
			BalanceAfterFrom: &balanceAfter,
			Description:      description,
			OperatorID:       operatorID,
			OperatorNote:     operatorNote,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.writeOutbox(ctx, tx, trans)
	})

	if err != nil {
		if existing, qerr := s.transactionRepo.GetByRequestID(ctx, requestID); qerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	cache.InvalidateBalance(ctx, s.redisClient, accountNo)
	log.Printf("[Ledger] 出账成功: txNo=%s, type=%s, account=%s, amount=%d", trans.TransactionNo, txType, accountNo, amount)
	return trans, nil
}

// ============================================================
// 转账
// ============================================================

// Transfer 同行转账
//
// 【关键点】两个账户的余额变动和唯一一条转账流水在同一事务内提交：
// 外界永远看不到"已扣未入"的中间状态。
// 行锁按账号字典序获取，避免 A->B 和 B->A 并发时互相持锁死锁。
func (s *LedgerService) Transfer(ctx context.Context, req *TransferRequest) (*model.Transaction, error) {
	if req.FromAccount == req.ToAccount {
		return nil, ErrSelfTransfer
	}

	if existing, err := s.transactionRepo.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	// 只锁出账方：入账方只增不减，数据库行锁足以保护
	accLock := lock.NewAccountLock(s.redisClient, req.FromAccount, req.RequestID)
	if err := accLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer accLock.Unlock(ctx)

	if existing, err := s.transactionRepo.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	var trans *model.Transaction
	err := s.db.Transaction(func(tx *gorm.DB) error {
		from, to, err := s.lockPair(ctx, tx, req.FromAccount, req.ToAccount)
		if err != nil {
			return err
		}

		if err := s.limits.CheckTransfer(from, to, req.Amount); err != nil {
			return err
		}

		if err := s.accountRepo.Debit(ctx, tx, from.AccountNumber, req.Amount, from.BalanceFloor(), from.Version); err != nil {
			return translateStoreErr(err)
		}
		if err := s.accountRepo.Credit(ctx, tx, to.AccountNumber, req.Amount, to.Version); err != nil {
			return translateStoreErr(err)
		}

		balanceAfterFrom := from.Balance - req.Amount
		balanceAfterTo := to.Balance + req.Amount
		fromNo, toNo := from.AccountNumber, to.AccountNumber
		trans = &model.Transaction{
			TransactionNo:    idgen.GenerateTransactionNo(),
			RequestID:        req.RequestID,
			Type:             model.TransactionTypeTransfer,
			Status:           model.TransactionStatusCompleted,
			Amount:           req.Amount,
			FromAccountNo:    &fromNo,
			ToAccountNo:      &toNo,
			BalanceAfterFrom: &balanceAfterFrom,
			BalanceAfterTo:   &balanceAfterTo,
			Description:      req.Description,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.writeOutbox(ctx, tx, trans)
	})

	if err != nil {
		if existing, qerr := s.transactionRepo.GetByRequestID(ctx, req.RequestID); qerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	cache.InvalidateBalance(ctx, s.redisClient, req.FromAccount, req.ToAccount)
	log.Printf("[Ledger] 转账成功: txNo=%s, from=%s, to=%s, amount=%d",
		trans.TransactionNo, req.FromAccount, req.ToAccount, req.Amount)
	return trans, nil
}

// lockPair 按字典序对两个账户加行锁
// 出账方不存在返回 ErrAccountNotFound，收款方不存在返回 ErrDestinationNotFound
func (s *LedgerService) lockPair(ctx context.Context, tx *gorm.DB, fromNo, toNo string) (*model.Account, *model.Account, error) {
	first, second := fromNo, toNo
	if second < first {
		first, second = second, first
	}

	accounts := make(map[string]*model.Account, 2)
	for _, no := range []string{first, second} {
		acc, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, no)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) && no == toNo {
				return nil, nil, ErrDestinationNotFound
			}
			return nil, nil, err
		}
		accounts[no] = acc
	}

	return accounts[fromNo], accounts[toNo], nil
}

// ============================================================
// 冲正
// ============================================================

// Reverse 冲正一笔已完成的交易
//
// 冲正不修改历史：对涉及账户施加反向资金变动，新增一条 REVERSAL 流水
// 指向原交易，并把原交易置为 REVERSED（至多一次，数据库条件更新兜底）。
// 冲正是补偿操作，绕过冻结和单笔限额，但余额下限依然有效：
// 收款方已经把钱花掉时，冲正会因余额不足而失败，不会产生任何变更。
func (s *LedgerService) Reverse(ctx context.Context, req *ReverseRequest) (*model.Transaction, error) {
	if existing, err := s.transactionRepo.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	// 事务外先做一轮快速校验，明显不可冲正的请求不必进锁和事务
	original, err := s.transactionRepo.GetByTransactionNo(ctx, req.TransactionNo)
	if err != nil {
		return nil, err
	}
	if !model.ReversibleType(original.Type) {
		return nil, ErrNotReversible
	}
	switch original.Status {
	case model.TransactionStatusCompleted:
	case model.TransactionStatusReversed:
		return nil, ErrAlreadyReversed
	default:
		return nil, ErrNotReversible
	}

	revLock := lock.NewReversalLock(s.redisClient, req.TransactionNo, req.RequestID)
	if err := revLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer revLock.Unlock(ctx)

	if existing, err := s.transactionRepo.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	var reversal *model.Transaction
	var touched []string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 持锁重读原交易，状态以事务内为准
		orig, err := s.transactionRepo.GetByTransactionNoForUpdate(ctx, tx, req.TransactionNo)
		if err != nil {
			return err
		}
		if orig.Status == model.TransactionStatusReversed || orig.ReversalTxNo != nil {
			return ErrAlreadyReversed
		}
		if orig.Status != model.TransactionStatusCompleted {
			return ErrNotReversible
		}

		reversalNo := idgen.GenerateReversalNo()

		// 先占住"被冲正"标记，并发冲正只有一个能走到这里之后
		if err := s.transactionRepo.MarkReversed(ctx, tx, orig.TransactionNo, reversalNo); err != nil {
			return err
		}

		// 反向资金变动：原出账方退回，原入账方扣回
		var balanceAfterFrom, balanceAfterTo *int64
		if orig.ToAccountNo != nil {
			acc, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, *orig.ToAccountNo)
			if err != nil {
				return err
			}
			if err := s.accountRepo.Debit(ctx, tx, acc.AccountNumber, orig.Amount, acc.BalanceFloor(), acc.Version); err != nil {
				return translateStoreErr(err)
			}
			after := acc.Balance - orig.Amount
			balanceAfterTo = &after
			touched = append(touched, acc.AccountNumber)
		}
		if orig.FromAccountNo != nil {
			acc, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, *orig.FromAccountNo)
			if err != nil {
				return err
			}
			if err := s.accountRepo.Credit(ctx, tx, acc.AccountNumber, orig.Amount, acc.Version); err != nil {
				return translateStoreErr(err)
			}
			after := acc.Balance + orig.Amount
			balanceAfterFrom = &after
			touched = append(touched, acc.AccountNumber)
		}

		origNo := orig.TransactionNo
		reversal = &model.Transaction{
			TransactionNo: reversalNo,
			RequestID:     req.RequestID,
			Type:          model.TransactionTypeReversal,
			Status:        model.TransactionStatusCompleted,
			Amount:        orig.Amount,
			// 冲正流水的方向与原交易相反
			FromAccountNo:    orig.ToAccountNo,
			ToAccountNo:      orig.FromAccountNo,
			BalanceAfterFrom: balanceAfterTo,
			BalanceAfterTo:   balanceAfterFrom,
			Description:      fmt.Sprintf("冲正-%s-%s", origNo, req.Reason),
			OriginalTxNo:     &origNo,
		}
		if err := s.transactionRepo.Create(ctx, tx, reversal); err != nil {
			return fmt.Errorf("记录冲正流水失败: %w", err)
		}

		return s.writeOutbox(ctx, tx, reversal)
	})

	if err != nil {
		if existing, qerr := s.transactionRepo.GetByRequestID(ctx, req.RequestID); qerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	cache.InvalidateBalance(ctx, s.redisClient, touched...)
	log.Printf("[Ledger] 冲正成功: reversalNo=%s, originalNo=%s, amount=%d",
		reversal.TransactionNo, req.TransactionNo, reversal.Amount)
	return reversal, nil
}

// ============================================================
// 销户（含余额划转）
// ============================================================

type CloseAccountRequest struct {
	RequestID      string `json:"request_id" binding:"required"`
	AccountNo      string `json:"account_no" binding:"required"`
	Reason         string `json:"reason" binding:"required"`
	SweepToAccount string `json:"sweep_to_account"` // 余额为正时必填
}

// CloseAccount 销户
//
// 销户属于资金操作而不是普通状态修改：正余额必须在同一事务内
// 划转到目标账户后才能停用。负余额（信用/透支欠款）拒绝销户。
// 账户从不物理删除，置 is_active=false 并记录原因和时间。
func (s *LedgerService) CloseAccount(ctx context.Context, req *CloseAccountRequest) (*model.Transaction, error) {
	if existing, err := s.transactionRepo.GetByRequestID(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	} else if existing != nil {
		return existing, nil
	}

	accLock := lock.NewAccountLock(s.redisClient, req.AccountNo, req.RequestID)
	if err := accLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer accLock.Unlock(ctx)

	var sweep *model.Transaction
	var touched []string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, req.AccountNo)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return ErrAccountInactive
		}
		if account.Balance < 0 {
			return ErrAccountNotClosable
		}

		version := account.Version
		touched = append(touched, account.AccountNumber)

		// 正余额先划转再停用，同一事务，要么全成要么全不成
		if account.Balance > 0 {
			if req.SweepToAccount == "" || req.SweepToAccount == req.AccountNo {
				return ErrAccountNotClosable
			}
			dest, err := s.accountRepo.GetByNumberForUpdate(ctx, tx, req.SweepToAccount)
			if err != nil {
				if errors.Is(err, repository.ErrAccountNotFound) {
					return ErrDestinationNotFound
				}
				return err
			}
			if !dest.IsActive {
				return ErrAccountInactive
			}
			if dest.IsFrozen {
				return ErrAccountFrozen
			}

			amount := account.Balance
			if err := s.accountRepo.Debit(ctx, tx, account.AccountNumber, amount, 0, version); err != nil {
				return translateStoreErr(err)
			}
			version++
			if err := s.accountRepo.Credit(ctx, tx, dest.AccountNumber, amount, dest.Version); err != nil {
				return translateStoreErr(err)
			}

			zero := int64(0)
			destAfter := dest.Balance + amount
			fromNo, toNo := account.AccountNumber, dest.AccountNumber
			sweep = &model.Transaction{
				TransactionNo:    idgen.GenerateTransactionNo(),
				RequestID:        req.RequestID,
				Type:             model.TransactionTypeTransfer,
				Status:           model.TransactionStatusCompleted,
				Amount:           amount,
				FromAccountNo:    &fromNo,
				ToAccountNo:      &toNo,
				BalanceAfterFrom: &zero,
				BalanceAfterTo:   &destAfter,
				Description:      fmt.Sprintf("销户划转-%s", req.Reason),
			}
			if err := s.transactionRepo.Create(ctx, tx, sweep); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
			if err := s.writeOutbox(ctx, tx, sweep); err != nil {
				return err
			}
			touched = append(touched, dest.AccountNumber)
		}

		if err := s.accountRepo.Close(ctx, tx, req.AccountNo, req.Reason, version); err != nil {
			return translateStoreErr(err)
		}
		return nil
	})

	if err != nil {
		if existing, qerr := s.transactionRepo.GetByRequestID(ctx, req.RequestID); qerr == nil && existing != nil {
			return existing, nil
		}
		return nil, err
	}

	cache.InvalidateBalance(ctx, s.redisClient, touched...)
	log.Printf("[Ledger] 销户成功: account=%s, reason=%s", req.AccountNo, req.Reason)
	return sweep, nil
}

// ============================================================
// 查询
// ============================================================

func (s *LedgerService) GetTransaction(ctx context.Context, transactionNo string) (*model.Transaction, error) {
	return s.transactionRepo.GetByTransactionNo(ctx, transactionNo)
}

func (s *LedgerService) GetByRequestID(ctx context.Context, requestID string) (*model.Transaction, error) {
	return s.transactionRepo.GetByRequestID(ctx, requestID)
}

func (s *LedgerService) ListAccountTransactions(ctx context.Context, accountNo string, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.ListByAccount(ctx, accountNo, page, pageSize)
}

// ============================================================
// 发件箱
// ============================================================

// writeOutbox 流水事件进发件箱，与余额变更同事务提交
func (s *LedgerService) writeOutbox(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	payload := map[string]interface{}{
		"transaction_no": trans.TransactionNo,
		"request_id":     trans.RequestID,
		"type":           trans.Type,
		"status":         trans.Status,
		"amount":         trans.Amount,
		"from_account":   trans.FromAccountNo,
		"to_account":     trans.ToAccountNo,
		"occurred_at":    time.Now().Format(time.RFC3339),
	}
	payloadBytes, _ := json.Marshal(payload)

	outboxMsg := &model.OutboxMessage{
		MessageKey: trans.TransactionNo,
		Topic:      s.cfg.Kafka.Topic.Journal,
		Payload:    string(payloadBytes),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
		return fmt.Errorf("写入消息失败: %w", err)
	}
	return nil
}
