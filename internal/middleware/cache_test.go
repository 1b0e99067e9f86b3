package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newCachedRouter(rc *ResponseCache, hits *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rc.Middleware())
	r.GET("/patients", func(c *gin.Context) {
		*hits++
		c.JSON(http.StatusOK, gin.H{"hits": *hits})
	})
	r.POST("/patients", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	})
	r.POST("/broken", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error"})
	})
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCacheServesRepeatGets(t *testing.T) {
	hits := 0
	r := newCachedRouter(NewResponseCache(5*time.Minute), &hits)

	first := do(r, http.MethodGet, "/patients")
	second := do(r, http.MethodGet, "/patients")

	assert.Equal(t, 1, hits, "second request served from cache")
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
}

func TestResponseCacheKeyIncludesQuery(t *testing.T) {
	hits := 0
	r := newCachedRouter(NewResponseCache(5*time.Minute), &hits)

	do(r, http.MethodGet, "/patients?search=khan")
	do(r, http.MethodGet, "/patients?search=asha")

	assert.Equal(t, 2, hits)
}

func TestResponseCacheFlushesOnWrite(t *testing.T) {
	hits := 0
	r := newCachedRouter(NewResponseCache(5*time.Minute), &hits)

	do(r, http.MethodGet, "/patients")
	do(r, http.MethodPost, "/patients")
	do(r, http.MethodGet, "/patients")

	assert.Equal(t, 2, hits, "a successful write invalidates cached reads")
}

func TestResponseCacheKeepsEntriesOnFailedWrite(t *testing.T) {
	hits := 0
	r := newCachedRouter(NewResponseCache(5*time.Minute), &hits)

	do(r, http.MethodGet, "/patients")
	do(r, http.MethodPost, "/broken")
	do(r, http.MethodGet, "/patients")

	assert.Equal(t, 1, hits, "a rejected write leaves the cache intact")
}
