// Package httpapi - общий HTTP слой сервисов на gin: роутер, middleware,
// формат ошибок.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"example.com/credit-saga/pkg/logger"
)

// ErrorResponse - формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrBadRequest помечает ошибку разбора входных данных (400).
var ErrBadRequest = errors.New("некорректный запрос")

// HandleError пишет ответ для ошибки сервисного слоя. Ошибки из notFound
// (сравниваются через errors.Is) дают 404, ErrBadRequest - 400, остальные -
// 500 без деталей. err не должен быть nil.
func HandleError(c *gin.Context, err error, notFound ...error) {
	log := logger.FromContext(c.Request.Context())

	if err == nil {
		log.Error().Str("path", c.FullPath()).Msg("HandleError вызван с nil ошибкой")
		c.JSON(http.StatusInternalServerError, internalError())
		return
	}

	for _, target := range notFound {
		if errors.Is(err, target) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: target.Error()})
			return
		}
	}

	if errors.Is(err, ErrBadRequest) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: err.Error()})
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("Внутренняя ошибка")
	c.JSON(http.StatusInternalServerError, internalError())
}

// BadRequest отвечает 400 с сообщением.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_argument", Message: message})
}

// ParseID читает целочисленный параметр пути. При ошибке отвечает 400
// и возвращает false.
func ParseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "некорректный "+param)
		return 0, false
	}
	return id, true
}

func internalError() ErrorResponse {
	return ErrorResponse{Error: "internal_error", Message: "Внутренняя ошибка сервера"}
}
