package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestJSONWritesEnvelopeAndMeta(t *testing.T) {
	c, w := newContext()
	JSON(c, http.StatusOK, gin.H{"ok": true}, nil, map[string]interface{}{"cache_hit": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, map[string]interface{}{"ok": true}, env["data"])
	assert.Equal(t, map[string]interface{}{"cache_hit": true}, env["meta"])
	assert.NotContains(t, env, "error")
}

func TestErrorMapsUnknownErrorsToInternal(t *testing.T) {
	c, w := newContext()
	Error(c, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Len(t, c.Errors, 1)
	assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
}

func TestErrorWithDataKeepsPayload(t *testing.T) {
	c, w := newContext()
	ErrorWithData(c, appErrors.Clone(appErrors.ErrInvalidSession, "1 of 2 sessions rejected"), gin.H{"rejected": []int{1}})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, c.Errors)
	var env struct {
		Data  map[string][]int `json:"data"`
		Error appErrors.Error  `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, []int{1}, env.Data["rejected"])
	assert.Equal(t, "INVALID_SESSION", env.Error.Code)
}

func TestAttachmentSetsDisposition(t *testing.T) {
	c, w := newContext()
	Attachment(c, "text/csv", "roster.csv", []byte("a,b\n"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="roster.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}
