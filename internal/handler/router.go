package handler

import (
	"bankcore/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	// 设置 gin 为发布模式（减少日志输出）
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 创建处理器
	h := NewHandler(db, rdb, cfg)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 账户相关
		account := api.Group("/account")
		{
			account.POST("/open", h.OpenAccount)
			account.POST("/close", h.CloseAccount)
			account.POST("/freeze", h.FreezeAccount)
			account.POST("/unfreeze", h.UnfreezeAccount)
			account.GET("/balance", h.GetBalance)
			account.GET("/detail", h.GetAccount)
			account.GET("/list", h.ListAccounts)
			account.GET("/statement", h.AccountStatement)
		}

		// 资金操作
		tx := api.Group("/tx")
		{
			tx.POST("/deposit", h.Deposit)
			tx.POST("/withdraw", h.Withdraw)
			tx.POST("/transfer", h.Transfer)
			tx.POST("/reverse", h.Reverse)
			tx.GET("/detail", h.GetTransaction)
			tx.GET("/list", h.ListTransactions)
		}

		// 管理员操作（必须带 X-Admin-ID）
		admin := api.Group("/admin", AdminRequiredMiddleware())
		{
			admin.POST("/deposit", h.AdminDeposit)
			admin.POST("/withdraw", h.AdminWithdraw)
			admin.POST("/fee", h.AdminFee)
		}

		// 用户维度报表
		api.GET("/user/statement", h.UserStatement)
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
