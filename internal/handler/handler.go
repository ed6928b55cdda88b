package handler

import (
	"errors"
	"strconv"
	"time"

	"bankcore/internal/config"
	"bankcore/internal/service"
	"bankcore/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Handler 统一处理器，包含所有服务依赖
// 调用方身份由上游网关认证后通过 X-User-ID / X-Admin-ID 头传入
type Handler struct {
	accountService   *service.AccountService
	ledgerService    *service.LedgerService
	statementService *service.StatementService
}

// NewHandler 创建处理器实例
func NewHandler(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Handler {
	return &Handler{
		accountService:   service.NewAccountService(db, rdb, cfg),
		ledgerService:    service.NewLedgerService(db, rdb, cfg),
		statementService: service.NewStatementService(db),
	}
}

// mapError 业务错误到响应码的映射
// 调用方永远拿到明确的错误类别，不存在"部分成功"
func mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, service.ErrLimitExceeded):
		response.BusinessError(c, response.CodeLimitExceeded, err.Error())
	case errors.Is(err, service.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		response.BusinessError(c, response.CodeAccountInactive, err.Error())
	case errors.Is(err, service.ErrAccountFrozen):
		response.BusinessError(c, response.CodeAccountFrozen, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		response.BusinessError(c, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, service.ErrSelfTransfer):
		response.BusinessError(c, response.CodeSelfTransfer, err.Error())
	case errors.Is(err, service.ErrDestinationNotFound):
		response.BusinessError(c, response.CodeDestinationNotFound, err.Error())
	case errors.Is(err, service.ErrTransactionNotFound):
		response.BusinessError(c, response.CodeTransactionNotFound, err.Error())
	case errors.Is(err, service.ErrAlreadyReversed):
		response.BusinessError(c, response.CodeAlreadyReversed, err.Error())
	case errors.Is(err, service.ErrNotReversible):
		response.BusinessError(c, response.CodeNotReversible, err.Error())
	case errors.Is(err, service.ErrGenerationExhausted):
		response.BusinessError(c, response.CodeGenerationExhausted, err.Error())
	case errors.Is(err, service.ErrCommitConflict):
		response.BusinessError(c, response.CodeCommitConflict, err.Error())
	case errors.Is(err, service.ErrAccountNotClosable):
		response.BusinessError(c, response.CodeAccountNotClosable, err.Error())
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// 账户相关接口
// ============================================================

// OpenAccount 开户
// POST /api/v1/account/open
func (h *Handler) OpenAccount(c *gin.Context) {
	var req service.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	account, err := h.accountService.OpenAccount(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, account)
}

// CloseAccount 销户（正余额先划转再停用）
// POST /api/v1/account/close
func (h *Handler) CloseAccount(c *gin.Context) {
	var req service.CloseAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	sweep, err := h.ledgerService.CloseAccount(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	result := gin.H{"account_no": req.AccountNo, "closed": true}
	if sweep != nil {
		result["sweep_transaction"] = sweep
	}
	response.Success(c, result)
}

// GetBalance 查询余额
// GET /api/v1/account/balance?account_no=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	accountNo := c.Query("account_no")
	if accountNo == "" {
		response.ParamError(c, "account_no 参数不能为空")
		return
	}

	info, err := h.accountService.GetBalance(c.Request.Context(), accountNo)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, info)
}

// GetAccount 查询账户详情
// GET /api/v1/account/detail?account_no=xxx
func (h *Handler) GetAccount(c *gin.Context) {
	accountNo := c.Query("account_no")
	if accountNo == "" {
		response.ParamError(c, "account_no 参数不能为空")
		return
	}

	account, err := h.accountService.GetAccount(c.Request.Context(), accountNo)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account":           account,
		"available_balance": account.AvailableBalance(),
	})
}

// ListAccounts 查询用户名下账户
// GET /api/v1/account/list?user_id=xxx
func (h *Handler) ListAccounts(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), userID)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{"list": accounts})
}

// FreezeAccount 冻结账户
// POST /api/v1/account/freeze
func (h *Handler) FreezeAccount(c *gin.Context) {
	var req struct {
		AccountNo string `json:"account_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.Freeze(c.Request.Context(), req.AccountNo); err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{"account_no": req.AccountNo, "frozen": true})
}

// UnfreezeAccount 解冻账户
// POST /api/v1/account/unfreeze
func (h *Handler) UnfreezeAccount(c *gin.Context) {
	var req struct {
		AccountNo string `json:"account_no" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	if err := h.accountService.Unfreeze(c.Request.Context(), req.AccountNo); err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{"account_no": req.AccountNo, "frozen": false})
}

// ============================================================
// 资金操作接口
// ============================================================

// Deposit 存款
// POST /api/v1/tx/deposit
func (h *Handler) Deposit(c *gin.Context) {
	var req service.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.Deposit(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// Withdraw 取款
// POST /api/v1/tx/withdraw
func (h *Handler) Withdraw(c *gin.Context) {
	var req service.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.Withdraw(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// Transfer 转账
// POST /api/v1/tx/transfer
//
// 【关键点】转账是整个系统最核心的操作，需要保证：
// 1. 幂等性：相同的 request_id 只会执行一次
// 2. 原子性：双方余额变动和流水记录必须同时成功或同时失败
// 3. 并发安全：行锁 + 分布式锁防止超扣
func (h *Handler) Transfer(c *gin.Context) {
	var req service.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.Transfer(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// Reverse 冲正
// POST /api/v1/tx/reverse
func (h *Handler) Reverse(c *gin.Context) {
	var req service.ReverseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	trans, err := h.ledgerService.Reverse(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// GetTransaction 查询流水详情
// GET /api/v1/tx/detail?transaction_no=xxx
func (h *Handler) GetTransaction(c *gin.Context) {
	transactionNo := c.Query("transaction_no")
	if transactionNo == "" {
		response.ParamError(c, "transaction_no 参数不能为空")
		return
	}

	trans, err := h.ledgerService.GetTransaction(c.Request.Context(), transactionNo)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// ListTransactions 查询账户流水
// GET /api/v1/tx/list?account_no=xxx&page=1&page_size=10
func (h *Handler) ListTransactions(c *gin.Context) {
	accountNo := c.Query("account_no")
	if accountNo == "" {
		response.ParamError(c, "account_no 参数不能为空")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	transactions, total, err := h.ledgerService.ListAccountTransactions(c.Request.Context(), accountNo, page, pageSize)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      transactions,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// 管理员接口
// ============================================================

// AdminDeposit 管理员入账
// POST /api/v1/admin/deposit
// 绕过冻结和单笔限额，操作人和原因强制落流水
func (h *Handler) AdminDeposit(c *gin.Context) {
	var req service.AdminMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.OperatorID = c.GetString(ctxKeyAdminID)

	trans, err := h.ledgerService.AdminDeposit(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// AdminWithdraw 管理员出账
// POST /api/v1/admin/withdraw
func (h *Handler) AdminWithdraw(c *gin.Context) {
	var req service.AdminMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.OperatorID = c.GetString(ctxKeyAdminID)

	trans, err := h.ledgerService.AdminWithdraw(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// AdminFee 收取手续费
// POST /api/v1/admin/fee
func (h *Handler) AdminFee(c *gin.Context) {
	var req service.AdminMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}
	req.OperatorID = c.GetString(ctxKeyAdminID)

	trans, err := h.ledgerService.PostFee(c.Request.Context(), &req)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, trans)
}

// ============================================================
// 对账/报表接口
// ============================================================

// parseDateRange 解析 from/to 查询参数（格式 2006-01-02），缺省最近30天
func parseDateRange(c *gin.Context) (time.Time, time.Time, error) {
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now

	if s := c.Query("from"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, err
		}
		from = t
	}
	if s := c.Query("to"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return from, to, err
		}
		// to 为闭区间日期，聚合按 < to+1天 处理
		to = t.AddDate(0, 0, 1)
	}
	return from, to, nil
}

// AccountStatement 账户区间汇总
// GET /api/v1/account/statement?account_no=xxx&from=2024-01-01&to=2024-01-31
func (h *Handler) AccountStatement(c *gin.Context) {
	accountNo := c.Query("account_no")
	if accountNo == "" {
		response.ParamError(c, "account_no 参数不能为空")
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		response.ParamError(c, "日期格式错误，应为 2006-01-02")
		return
	}

	summary, err := h.statementService.AccountSummary(c.Request.Context(), accountNo, from, to)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, summary)
}

// UserStatement 用户分类汇总
// GET /api/v1/user/statement?user_id=xxx&from=...&to=...
func (h *Handler) UserStatement(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		response.ParamError(c, "user_id 参数错误")
		return
	}

	from, to, err := parseDateRange(c)
	if err != nil {
		response.ParamError(c, "日期格式错误，应为 2006-01-02")
		return
	}

	totals, err := h.statementService.UserSummary(c.Request.Context(), userID, from, to)
	if err != nil {
		mapError(c, err)
		return
	}

	response.Success(c, gin.H{"user_id": userID, "totals": totals})
}
