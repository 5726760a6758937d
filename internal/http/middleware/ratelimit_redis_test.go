package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisRateLimitIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	pass := os.Getenv("REDIS_PASSWORD")
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			db = n
		}
	}

	client := InitRedisRateLimiter(addr, pass, db)
	if client == nil {
		t.Skip("redis did not answer ping")
	}
	t.Cleanup(func() {
		_ = client.Close()
		redisClient = nil
	})

	// small window for test
	w := 2 * time.Second
	max := 2

	r := gin.New()
	r.GET("/test", RedisRateLimit("test", max, w), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	srv := httptest.NewServer(r)
	defer srv.Close()

	httpClient := &http.Client{}

	// do max allowed requests
	for i := 0; i < max; i++ {
		req, _ := http.NewRequest("GET", srv.URL+"/test", nil)
		res, err := httpClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if res.StatusCode != 200 {
			t.Fatalf("expected 200 got %d", res.StatusCode)
		}
	}

	// next request should be blocked
	req, _ := http.NewRequest("GET", srv.URL+"/test", nil)
	res, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 429 {
		t.Fatalf("expected 429 got %d", res.StatusCode)
	}
}

func TestRedisRateLimitStackedScopes(t *testing.T) {
	mr := miniredis.RunT(t)
	client := InitRedisRateLimiter(mr.Addr(), "", 0)
	require.NotNil(t, client)
	t.Cleanup(func() {
		_ = client.Close()
		redisClient = nil
	})

	r := gin.New()
	api := r.Group("/api")
	api.Use(RedisRateLimit("api", 120, time.Minute))
	api.POST("/auth", RedisRateLimit("auth", 10, time.Minute), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth", nil)
		req.RemoteAddr = "1.2.3.4:5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	// auth limit is the whole budget, not half of it
	for i := 0; i < 10; i++ {
		w := send()
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}
	w := send()
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	require.ElementsMatch(t, []string{
		"rl:api:60:1.2.3.4|/api/auth",
		"rl:auth:60:1.2.3.4|/api/auth",
	}, mr.Keys())

	apiCount, err := mr.Get("rl:api:60:1.2.3.4|/api/auth")
	require.NoError(t, err)
	require.Equal(t, "11", apiCount)
	authCount, err := mr.Get("rl:auth:60:1.2.3.4|/api/auth")
	require.NoError(t, err)
	require.Equal(t, "11", authCount)
}
