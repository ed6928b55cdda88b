package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"bankcore/internal/config"
	"bankcore/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ============================================================
// 测试环境：内存 SQLite + miniredis，真实走事务和分布式锁
// ============================================================

func newTestEnv(t *testing.T) (*gorm.DB, *redis.Client, *config.Config) {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.Transaction{}, &model.OutboxMessage{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{Journal: "ledger.journal"},
		},
		Business: config.BusinessConfig{
			MaxDeposit:              100000,
			MaxWithdrawal:           50000,
			MaxTransfer:             80000,
			AccountNumberLength:     10,
			AccountNumberMaxRetries: 5,
			MaxRetryCount:           3,
			StaleTransactionMinutes: 30,
			InterestIntervalHours:   24,
		},
	}
	return db, rdb, cfg
}

func seedAccount(t *testing.T, db *gorm.DB, number string, balance int64) *model.Account {
	t.Helper()
	acc := &model.Account{
		AccountNumber: number,
		UserID:        1,
		Type:          model.AccountTypeChecking,
		Currency:      "CNY",
		Balance:       balance,
		IsActive:      true,
	}
	require.NoError(t, db.Create(acc).Error)
	return acc
}

func accountBalance(t *testing.T, db *gorm.DB, number string) int64 {
	t.Helper()
	var acc model.Account
	require.NoError(t, db.Where("account_number = ?", number).First(&acc).Error)
	return acc.Balance
}

func journalCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.Transaction{}).Count(&count).Error)
	return count
}

// ============================================================
// 存款
// ============================================================

func TestDeposit(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	trans, err := svc.Deposit(ctx, &DepositRequest{
		RequestID:   "req-001",
		AccountNo:   "6200000001",
		Amount:      200,
		Description: "工资",
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionTypeDeposit, trans.Type)
	assert.Equal(t, model.TransactionStatusCompleted, trans.Status)
	assert.Equal(t, int64(200), trans.Amount)
	require.NotNil(t, trans.ToAccountNo)
	assert.Equal(t, "6200000001", *trans.ToAccountNo)
	require.NotNil(t, trans.BalanceAfterTo)
	assert.Equal(t, int64(1200), *trans.BalanceAfterTo)
	assert.Nil(t, trans.FromAccountNo)

	assert.Equal(t, int64(1200), accountBalance(t, db, "6200000001"))

	// 流水事件与落账同事务写入发件箱
	var outbox []model.OutboxMessage
	require.NoError(t, db.Find(&outbox).Error)
	require.Len(t, outbox, 1)
	assert.Equal(t, trans.TransactionNo, outbox[0].MessageKey)
	assert.Equal(t, "ledger.journal", outbox[0].Topic)
	assert.Equal(t, model.OutboxStatusPending, outbox[0].Status)
}

func TestDepositIdempotent(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	req := &DepositRequest{RequestID: "req-001", AccountNo: "6200000001", Amount: 200}
	first, err := svc.Deposit(ctx, req)
	require.NoError(t, err)

	// 同一 request_id 重放：返回首次落账的流水，余额只变一次
	second, err := svc.Deposit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionNo, second.TransactionNo)
	assert.Equal(t, int64(1200), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(1), journalCount(t, db))
}

func TestDepositRejections(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	_, err := svc.Deposit(ctx, &DepositRequest{RequestID: "req-001", AccountNo: "6200000001", Amount: -5})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Deposit(ctx, &DepositRequest{RequestID: "req-002", AccountNo: "6200000001", Amount: cfg.Business.MaxDeposit + 1})
	assert.ErrorIs(t, err, ErrLimitExceeded)

	_, err = svc.Deposit(ctx, &DepositRequest{RequestID: "req-003", AccountNo: "6200009999", Amount: 100})
	assert.ErrorIs(t, err, ErrAccountNotFound)

	// 被拒请求不留任何流水和余额变化
	assert.Equal(t, int64(0), journalCount(t, db))
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
}

func TestDepositFrozenAccount(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	acc := seedAccount(t, db, "6200000001", 1000)
	require.NoError(t, db.Model(acc).Updates(map[string]interface{}{"is_frozen": true}).Error)

	// 冻结连入金也拒绝
	_, err := svc.Deposit(ctx, &DepositRequest{RequestID: "req-001", AccountNo: "6200000001", Amount: 100})
	assert.ErrorIs(t, err, ErrAccountFrozen)
}

// ============================================================
// 取款
// ============================================================

func TestWithdraw(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	trans, err := svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-001",
		AccountNo: "6200000001",
		Amount:    300,
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionTypeWithdrawal, trans.Type)
	require.NotNil(t, trans.FromAccountNo)
	assert.Equal(t, "6200000001", *trans.FromAccountNo)
	require.NotNil(t, trans.BalanceAfterFrom)
	assert.Equal(t, int64(700), *trans.BalanceAfterFrom)
	assert.Equal(t, int64(700), accountBalance(t, db, "6200000001"))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	_, err := svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-001",
		AccountNo: "6200000001",
		Amount:    1500,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// 失败不留痕
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(0), journalCount(t, db))
}

func TestWithdrawWithOverdraft(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	acc := &model.Account{
		AccountNumber: "6200000001", UserID: 1, Type: model.AccountTypeChecking,
		Currency: "CNY", Balance: 100, IsActive: true,
		OverdraftProtection: true, OverdraftLimit: 500,
	}
	require.NoError(t, db.Create(acc).Error)

	trans, err := svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(-300), *trans.BalanceAfterFrom)
	assert.Equal(t, int64(-300), accountBalance(t, db, "6200000001"))

	// 透支额度之外照样拒绝
	_, err = svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-002", AccountNo: "6200000001", Amount: 201,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

// ============================================================
// 转账
// ============================================================

func TestTransfer(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)
	seedAccount(t, db, "6200000002", 500)

	trans, err := svc.Transfer(ctx, &TransferRequest{
		RequestID:   "req-001",
		FromAccount: "6200000001",
		ToAccount:   "6200000002",
		Amount:      300,
	})
	require.NoError(t, err)

	// 一笔转账一条流水，两侧余额快照都在
	assert.Equal(t, model.TransactionTypeTransfer, trans.Type)
	assert.Equal(t, "6200000001", *trans.FromAccountNo)
	assert.Equal(t, "6200000002", *trans.ToAccountNo)
	assert.Equal(t, int64(700), *trans.BalanceAfterFrom)
	assert.Equal(t, int64(800), *trans.BalanceAfterTo)

	assert.Equal(t, int64(700), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(800), accountBalance(t, db, "6200000002"))
	assert.Equal(t, int64(1), journalCount(t, db))
}

func TestTransferSelf(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	_, err := svc.Transfer(ctx, &TransferRequest{
		RequestID:   "req-001",
		FromAccount: "6200000001",
		ToAccount:   "6200000001",
		Amount:      100,
	})
	assert.ErrorIs(t, err, ErrSelfTransfer)
}

func TestTransferDestinationNotFound(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	_, err := svc.Transfer(ctx, &TransferRequest{
		RequestID:   "req-001",
		FromAccount: "6200000001",
		ToAccount:   "6200009999",
		Amount:      100,
	})
	assert.ErrorIs(t, err, ErrDestinationNotFound)

	// 事务整体回滚，出账方分文未动
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(0), journalCount(t, db))
}

func TestTransferInsufficientFunds(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 100)
	seedAccount(t, db, "6200000002", 0)

	_, err := svc.Transfer(ctx, &TransferRequest{
		RequestID:   "req-001",
		FromAccount: "6200000001",
		ToAccount:   "6200000002",
		Amount:      200,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, int64(100), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(0), accountBalance(t, db, "6200000002"))
}

func TestTransferConservation(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 10000)
	seedAccount(t, db, "6200000002", 10000)

	// 来回多笔转账后总额守恒
	for i := 0; i < 5; i++ {
		_, err := svc.Transfer(ctx, &TransferRequest{
			RequestID:   fmt.Sprintf("req-a-%d", i),
			FromAccount: "6200000001",
			ToAccount:   "6200000002",
			Amount:      int64(100 * (i + 1)),
		})
		require.NoError(t, err)
		_, err = svc.Transfer(ctx, &TransferRequest{
			RequestID:   fmt.Sprintf("req-b-%d", i),
			FromAccount: "6200000002",
			ToAccount:   "6200000001",
			Amount:      int64(30 * (i + 1)),
		})
		require.NoError(t, err)
	}

	total := accountBalance(t, db, "6200000001") + accountBalance(t, db, "6200000002")
	assert.Equal(t, int64(20000), total)
}

// ============================================================
// 冲正
// ============================================================

func TestReverseDeposit(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	orig, err := svc.Deposit(ctx, &DepositRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 200,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1200), accountBalance(t, db, "6200000001"))

	reversal, err := svc.Reverse(ctx, &ReverseRequest{
		RequestID:     "req-rev-001",
		TransactionNo: orig.TransactionNo,
		Reason:        "客户投诉",
	})
	require.NoError(t, err)

	// 余额恢复，方向与原交易相反，双向链接
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
	assert.Equal(t, model.TransactionTypeReversal, reversal.Type)
	assert.Equal(t, int64(200), reversal.Amount)
	require.NotNil(t, reversal.FromAccountNo)
	assert.Equal(t, "6200000001", *reversal.FromAccountNo)
	assert.Nil(t, reversal.ToAccountNo)
	require.NotNil(t, reversal.OriginalTxNo)
	assert.Equal(t, orig.TransactionNo, *reversal.OriginalTxNo)

	updated, err := svc.GetTransaction(ctx, orig.TransactionNo)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusReversed, updated.Status)
	require.NotNil(t, updated.ReversalTxNo)
	assert.Equal(t, reversal.TransactionNo, *updated.ReversalTxNo)
}

func TestReverseWithdrawal(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	orig, err := svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 300,
	})
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, &ReverseRequest{
		RequestID:     "req-rev-001",
		TransactionNo: orig.TransactionNo,
		Reason:        "柜面差错",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
	require.NotNil(t, reversal.ToAccountNo)
	assert.Equal(t, "6200000001", *reversal.ToAccountNo)
	assert.Nil(t, reversal.FromAccountNo)
}

func TestReverseTransfer(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)
	seedAccount(t, db, "6200000002", 500)

	orig, err := svc.Transfer(ctx, &TransferRequest{
		RequestID:   "req-001",
		FromAccount: "6200000001",
		ToAccount:   "6200000002",
		Amount:      300,
	})
	require.NoError(t, err)

	reversal, err := svc.Reverse(ctx, &ReverseRequest{
		RequestID:     "req-rev-001",
		TransactionNo: orig.TransactionNo,
		Reason:        "误转",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(500), accountBalance(t, db, "6200000002"))
	assert.Equal(t, "6200000002", *reversal.FromAccountNo)
	assert.Equal(t, "6200000001", *reversal.ToAccountNo)
}

func TestReverseExactlyOnce(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	orig, err := svc.Deposit(ctx, &DepositRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 200,
	})
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-001", TransactionNo: orig.TransactionNo,
	})
	require.NoError(t, err)

	// 第二次冲正（不同 request_id）被拒
	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-002", TransactionNo: orig.TransactionNo,
	})
	assert.ErrorIs(t, err, ErrAlreadyReversed)
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
}

func TestReverseIdempotentReplay(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	orig, err := svc.Deposit(ctx, &DepositRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 200,
	})
	require.NoError(t, err)

	req := &ReverseRequest{RequestID: "req-rev-001", TransactionNo: orig.TransactionNo}
	first, err := svc.Reverse(ctx, req)
	require.NoError(t, err)

	// 同一 request_id 重放返回同一条冲正流水
	second, err := svc.Reverse(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.TransactionNo, second.TransactionNo)
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
}

func TestReverseNotReversibleType(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	interest, err := svc.PostInterest(ctx, "req-int-001", "6200000001", 10)
	require.NoError(t, err)

	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-001", TransactionNo: interest.TransactionNo,
	})
	assert.ErrorIs(t, err, ErrNotReversible)

	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-002", TransactionNo: "TXN404",
	})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReverseDepositAfterBalanceSpent(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 0)

	orig, err := svc.Deposit(ctx, &DepositRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 200,
	})
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, &WithdrawRequest{
		RequestID: "req-002", AccountNo: "6200000001", Amount: 150,
	})
	require.NoError(t, err)

	// 入账已被花掉，扣回会打穿下限：冲正整体失败，不留任何变更
	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-001", TransactionNo: orig.TransactionNo,
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.Equal(t, int64(50), accountBalance(t, db, "6200000001"))
	unchanged, err := svc.GetTransaction(ctx, orig.TransactionNo)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusCompleted, unchanged.Status)
	assert.Nil(t, unchanged.ReversalTxNo)
}

func TestReverseBypassesFrozen(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	orig, err := svc.Deposit(ctx, &DepositRequest{
		RequestID: "req-001", AccountNo: "6200000001", Amount: 200,
	})
	require.NoError(t, err)

	// 冲正是补偿操作，账户冻结不阻止冲正
	require.NoError(t, db.Model(&model.Account{}).
		Where("account_number = ?", "6200000001").
		Update("is_frozen", true).Error)

	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID: "req-rev-001", TransactionNo: orig.TransactionNo,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000001"))
}

// ============================================================
// 管理员操作
// ============================================================

func TestAdminDepositBypassesLimitAndFrozen(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	acc := seedAccount(t, db, "6200000001", 0)
	require.NoError(t, db.Model(acc).Update("is_frozen", true).Error)

	trans, err := svc.AdminDeposit(ctx, &AdminMoveRequest{
		RequestID:  "req-001",
		AccountNo:  "6200000001",
		Amount:     cfg.Business.MaxDeposit + 1,
		OperatorID: "admin-42",
		Reason:     "司法款项入账",
	})
	require.NoError(t, err)

	assert.Equal(t, cfg.Business.MaxDeposit+1, accountBalance(t, db, "6200000001"))
	assert.Equal(t, "admin-42", trans.OperatorID)
	assert.Equal(t, "司法款项入账", trans.OperatorNote)
}

func TestAdminWithdrawRespectsFloor(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	acc := seedAccount(t, db, "6200000001", 1000)
	require.NoError(t, db.Model(acc).Update("is_frozen", true).Error)

	// 冻结不挡管理员，但余额下限依然挡
	_, err := svc.AdminWithdraw(ctx, &AdminMoveRequest{
		RequestID:  "req-001",
		AccountNo:  "6200000001",
		Amount:     1500,
		OperatorID: "admin-42",
		Reason:     "错账追回",
	})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	trans, err := svc.AdminWithdraw(ctx, &AdminMoveRequest{
		RequestID:  "req-002",
		AccountNo:  "6200000001",
		Amount:     1000,
		OperatorID: "admin-42",
		Reason:     "错账追回",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), accountBalance(t, db, "6200000001"))
	assert.Equal(t, "admin-42", trans.OperatorID)
}

func TestPostFee(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)

	trans, err := svc.PostFee(ctx, &AdminMoveRequest{
		RequestID:  "req-001",
		AccountNo:  "6200000001",
		Amount:     300,
		OperatorID: "admin-42",
		Reason:     "跨行转账",
	})
	require.NoError(t, err)

	assert.Equal(t, model.TransactionTypeFee, trans.Type)
	assert.Equal(t, "admin-42", trans.OperatorID)
	assert.Equal(t, int64(700), accountBalance(t, db, "6200000001"))

	// 手续费不可冲正
	_, err = svc.Reverse(ctx, &ReverseRequest{
		RequestID:     "req-002",
		TransactionNo: trans.TransactionNo,
	})
	assert.ErrorIs(t, err, ErrNotReversible)
}

// ============================================================
// 销户
// ============================================================

func TestCloseAccountZeroBalance(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 0)

	sweep, err := svc.CloseAccount(ctx, &CloseAccountRequest{
		RequestID: "req-001",
		AccountNo: "6200000001",
		Reason:    "用户申请",
	})
	require.NoError(t, err)
	assert.Nil(t, sweep) // 零余额无需划转

	var acc model.Account
	require.NoError(t, db.Where("account_number = ?", "6200000001").First(&acc).Error)
	assert.False(t, acc.IsActive)
	assert.Equal(t, "用户申请", acc.ClosedReason)

	// 销户后拒绝一切资金操作
	_, err = svc.Deposit(ctx, &DepositRequest{RequestID: "req-002", AccountNo: "6200000001", Amount: 100})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestCloseAccountWithSweep(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 1000)
	seedAccount(t, db, "6200000002", 500)

	sweep, err := svc.CloseAccount(ctx, &CloseAccountRequest{
		RequestID:      "req-001",
		AccountNo:      "6200000001",
		Reason:         "用户申请",
		SweepToAccount: "6200000002",
	})
	require.NoError(t, err)
	require.NotNil(t, sweep)

	assert.Equal(t, model.TransactionTypeTransfer, sweep.Type)
	assert.Equal(t, int64(1000), sweep.Amount)
	assert.Equal(t, int64(0), *sweep.BalanceAfterFrom)
	assert.Equal(t, int64(1500), *sweep.BalanceAfterTo)

	assert.Equal(t, int64(0), accountBalance(t, db, "6200000001"))
	assert.Equal(t, int64(1500), accountBalance(t, db, "6200000002"))

	var acc model.Account
	require.NoError(t, db.Where("account_number = ?", "6200000001").First(&acc).Error)
	assert.False(t, acc.IsActive)
}

func TestCloseAccountRejections(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	// 负余额（信用卡欠款）不允许销户
	credit := &model.Account{
		AccountNumber: "6200000001", UserID: 1, Type: model.AccountTypeCredit,
		Currency: "CNY", Balance: -100, CreditLimit: 5000, IsActive: true,
	}
	require.NoError(t, db.Create(credit).Error)

	_, err := svc.CloseAccount(ctx, &CloseAccountRequest{
		RequestID: "req-001", AccountNo: "6200000001", Reason: "申请",
	})
	assert.ErrorIs(t, err, ErrAccountNotClosable)

	// 正余额但没给划转目标
	seedAccount(t, db, "6200000002", 1000)
	_, err = svc.CloseAccount(ctx, &CloseAccountRequest{
		RequestID: "req-002", AccountNo: "6200000002", Reason: "申请",
	})
	assert.ErrorIs(t, err, ErrAccountNotClosable)

	// 划转目标不存在，事务整体回滚
	_, err = svc.CloseAccount(ctx, &CloseAccountRequest{
		RequestID: "req-003", AccountNo: "6200000002", Reason: "申请",
		SweepToAccount: "6200009999",
	})
	assert.ErrorIs(t, err, ErrDestinationNotFound)
	assert.Equal(t, int64(1000), accountBalance(t, db, "6200000002"))

	var acc model.Account
	require.NoError(t, db.Where("account_number = ?", "6200000002").First(&acc).Error)
	assert.True(t, acc.IsActive)
}

// ============================================================
// 查询
// ============================================================

func TestListAccountTransactions(t *testing.T) {
	db, rdb, cfg := newTestEnv(t)
	svc := NewLedgerService(db, rdb, cfg)
	ctx := context.Background()

	seedAccount(t, db, "6200000001", 10000)

	for i := 0; i < 3; i++ {
		_, err := svc.Deposit(ctx, &DepositRequest{
			RequestID: fmt.Sprintf("req-%d", i), AccountNo: "6200000001", Amount: 100,
		})
		require.NoError(t, err)
	}

	transactions, total, err := svc.ListAccountTransactions(ctx, "6200000001", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, transactions, 2)
}
