package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"homework/internal/course"
	"homework/internal/httpmiddleware"
	"homework/internal/model"
)

func ok(c *gin.Context, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

func okMessage(c *gin.Context, msg string) {
	ok(c, gin.H{"message": msg})
}

func reject(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, course.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, course.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, course.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, course.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail answers with the rule message of err, or a generic text for
// unexpected errors, which are logged.
func (h *Handler) fail(c *gin.Context, op string, err error) {
	var ce *course.Error
	if errors.As(err, &ce) {
		reject(c, statusOf(err), ce.Msg)
		return
	}
	_ = c.Error(err)
	h.log.Error(op+" failed", zap.String("trace_id", c.GetString(httpmiddleware.TraceKey)), zap.Error(err))
	reject(c, http.StatusInternalServerError, "服务器内部错误")
}

// pathID parses an id path parameter; it answers 404 with notFound itself.
func pathID(c *gin.Context, name, notFound string) (model.ID, bool) {
	id, err := model.ParseID(c.Param(name))
	if err != nil {
		reject(c, http.StatusNotFound, notFound)
		return 0, false
	}
	return id, true
}
