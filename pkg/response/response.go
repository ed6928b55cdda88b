package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// 业务错误码，与资金引擎的错误一一对应
const (
	CodeInvalidAmount        = 1001
	CodeAccountNotFound      = 1002
	CodeAccountInactive      = 1003
	CodeAccountFrozen        = 1004
	CodeInsufficientFunds    = 1005
	CodeLimitExceeded        = 1006
	CodeSelfTransfer         = 1007
	CodeDestinationNotFound  = 1008
	CodeTransactionNotFound  = 1009
	CodeAlreadyReversed      = 1010
	CodeNotReversible        = 1011
	CodeGenerationExhausted  = 1012
	CodeCommitConflict       = 1013
	CodeAccountNotClosable   = 1014
	CodeDuplicateRequest     = 1015
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
