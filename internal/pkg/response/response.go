package response

import (
	"Parley/internal/api/dto"
	"Parley/internal/service"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// 业务码与 service.ErrorMap 使用同一套取值，HTTP 状态码固定为 200
const (
	Ok           = 200
	BadRequest   = service.BadRequest
	Unauthorized = service.Unauthorized
	Forbidden    = service.Forbidden
	NotFound     = service.NotFound
)

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Message: message,
	})
}

// Abort 中间件中使用，返回失败并终止后续处理
func Abort(c *gin.Context, businessCode int, message string) {
	Fail(c, businessCode, message)
	c.Abort()
}

// Error 将错误映射为业务码，未登记的错误只记录日志，对外统一返回 UnExpectedError
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		Fail(c, BadRequest, fmt.Sprintf("参数错误: %s", ve[0].Field()))
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "Json错误")
		return
	}

	code, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "unexpected error", "err", err)
		Fail(c, service.InternalServerError, service.UnExpectedError.Error())
		return
	}
	Fail(c, code, err.Error())
}
