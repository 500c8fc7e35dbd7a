package middleware

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// ResponseCache keeps successful GET responses in a namespace of a shared
// go-cache store. Invalidate only drops entries of its own namespace.
type ResponseCache struct {
	store  *cache.Cache
	prefix string
	ttl    time.Duration
}

func NewResponseCache(store *cache.Cache, namespace string, ttl time.Duration) *ResponseCache {
	return &ResponseCache{store: store, prefix: namespace + ":", ttl: ttl}
}

type storedResponse struct {
	status      int
	contentType string
	body        []byte
}

type recordingWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// key ignores query parameter order.
func (rc *ResponseCache) key(r *http.Request) string {
	k := rc.prefix + r.URL.Path
	if q := r.URL.Query(); len(q) > 0 {
		k += "?" + q.Encode()
	}
	return k
}

func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := rc.key(c.Request)
		if v, ok := rc.store.Get(key); ok {
			resp := v.(storedResponse)
			c.Header("X-Cache", "HIT")
			c.Data(resp.status, resp.contentType, resp.body)
			c.Abort()
			return
		}

		w := recordingWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = w
		c.Next()

		if status := w.Status(); status >= 200 && status < 300 {
			rc.store.Set(key, storedResponse{
				status:      status,
				contentType: w.Header().Get("Content-Type"),
				body:        w.buf.Bytes(),
			}, rc.ttl)
		}
	}
}

// Invalidate deletes every response stored under this namespace and returns
// how many were dropped.
func (rc *ResponseCache) Invalidate() int {
	if rc == nil {
		return 0
	}
	n := 0
	for k := range rc.store.Items() {
		if strings.HasPrefix(k, rc.prefix) {
			rc.store.Delete(k)
			n++
		}
	}
	return n
}
