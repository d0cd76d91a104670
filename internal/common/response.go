package common

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Fail writes {"error": msg}.
func Fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{"error": msg})
}

// FailErr writes err using the status from HTTPStatus. Client errors carry
// their own message; server errors carry fallback, plus the error text as
// "detail" when exposeDetail is set.
func FailErr(c *gin.Context, err error, fallback string, exposeDetail bool) {
	status := HTTPStatus(err)
	if status < http.StatusInternalServerError {
		Fail(c, status, clientMessage(err))
		return
	}
	body := gin.H{"error": fallback}
	if exposeDetail {
		body["detail"] = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}

func clientMessage(err error) string {
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrConflict, ErrNotFound, ErrForbidden} {
		if errors.Is(err, sentinel) {
			msg := strings.TrimPrefix(err.Error(), sentinel.Error())
			msg = strings.TrimPrefix(msg, ": ")
			if msg == "" {
				return sentinel.Error()
			}
			return msg
		}
	}
	return err.Error()
}
