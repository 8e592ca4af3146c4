package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 错误码定义
const (
	CodeSuccess              = 0
	CodeParamError           = 1000
	CodeAuthFailed           = 1001
	CodePermissionDenied     = 1002
	CodeResourceNotFound     = 1003
	CodeQuotaExceeded        = 1004
	CodeDuplicateAction      = 1005
	CodeSubscriptionRequired = 1006
	CodeServerError          = 5000
)

var codeMessages = map[int]string{
	CodeSuccess:              "success",
	CodeParamError:           "参数错误",
	CodeAuthFailed:           "请先登录",
	CodePermissionDenied:     "当前套餐不包含该功能",
	CodeResourceNotFound:     "资源不存在",
	CodeQuotaExceeded:        "本周期配额已用完",
	CodeDuplicateAction:      "重复操作",
	CodeSubscriptionRequired: "需要有效订阅",
	CodeServerError:          "服务器内部错误",
}

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// PageData 分页数据结构
type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// Message 返回错误码的默认消息
func Message(code int) string {
	return codeMessages[code]
}

func Success(c *gin.Context, data interface{}) {
	SuccessWithMessage(c, "success", data)
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	Success(c, PageData{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Items:    items,
	})
}

// Error 业务错误，HTTP 状态码始终为 200；message 为空时使用默认消息
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func ParamError(c *gin.Context, message string)     { Error(c, CodeParamError, message) }
func AuthError(c *gin.Context, message string)      { Error(c, CodeAuthFailed, message) }
func NotFoundError(c *gin.Context, message string)  { Error(c, CodeResourceNotFound, message) }
func QuotaError(c *gin.Context, message string)     { Error(c, CodeQuotaExceeded, message) }
func DuplicateError(c *gin.Context, message string) { Error(c, CodeDuplicateAction, message) }
func ServerError(c *gin.Context, message string)    { Error(c, CodeServerError, message) }

// PermissionError 套餐不包含所需功能
func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

// SubscriptionError 没有有效订阅
func SubscriptionError(c *gin.Context, message string) {
	Error(c, CodeSubscriptionRequired, message)
}
