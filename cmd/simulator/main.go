package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TapKind is the kind of traffic a gate fires
type TapKind string

const (
	TapRecharge TapKind = "recharge"
	TapUsage    TapKind = "usage"
)

type tapRequest struct {
	AliasNo int64  `json:"alias_no"`
	Amount  string `json:"amount"`
}

type tapResult struct {
	TapID     string    `json:"tap_id"`
	GateID    string    `json:"gate_id"`
	AliasNo   int64     `json:"alias_no"`
	Kind      TapKind   `json:"kind"`
	Amount    string    `json:"amount"`
	Status    int       `json:"status"`
	Body      string    `json:"body,omitempty"`
	FiredAt   time.Time `json:"fired_at"`
	DurationM int64     `json:"duration_ms"`
}

// FareGate fires simulated card taps at the gateway API
type FareGate struct {
	id         string
	apiBaseURL string
	client     *http.Client
	aliases    []int64
	usageShare float64
	minDelay   time.Duration
	maxDelay   time.Duration
	rng        *rand.Rand
	mu         sync.Mutex

	taps     int64
	rejected int64
	failed   int64
}

func NewFareGate(apiBaseURL string, aliases []int64, usageShare float64, minDelay, maxDelay time.Duration) *FareGate {
	return &FareGate{
		id:         "GATE_" + uuid.New().String()[:8],
		apiBaseURL: apiBaseURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		aliases:    aliases,
		usageShare: usageShare,
		minDelay:   minDelay,
		maxDelay:   maxDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// run fires taps until the context is cancelled
func (g *FareGate) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(g.randomDelay()):
		}

		res := g.fire(g.randomTap())
		switch {
		case res.Status == http.StatusCreated:
			atomic.AddInt64(&g.taps, 1)
			log.Info().
				Str("gate_id", g.id).
				Str("tap_id", res.TapID).
				Int64("alias_no", res.AliasNo).
				Str("kind", string(res.Kind)).
				Str("amount", res.Amount).
				Int64("duration_ms", res.DurationM).
				Msg("Tap applied")
		case res.Status == http.StatusBadRequest:
			atomic.AddInt64(&g.rejected, 1)
			log.Warn().
				Str("gate_id", g.id).
				Str("tap_id", res.TapID).
				Int64("alias_no", res.AliasNo).
				Str("kind", string(res.Kind)).
				Str("body", res.Body).
				Msg("Tap rejected")
		default:
			atomic.AddInt64(&g.failed, 1)
			log.Error().
				Str("gate_id", g.id).
				Str("tap_id", res.TapID).
				Int("status", res.Status).
				Str("body", res.Body).
				Msg("Tap failed")
		}
	}
}

func (g *FareGate) randomTap() (TapKind, int64, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	kind := TapRecharge
	amount := fmt.Sprintf("%d.00", 5+g.rng.Intn(45))
	if g.rng.Float64() < g.usageShare {
		kind = TapUsage
		amount = fmt.Sprintf("%d.50", 1+g.rng.Intn(5))
	}
	alias := g.aliases[g.rng.Intn(len(g.aliases))]
	return kind, alias, amount
}

func (g *FareGate) fire(kind TapKind, alias int64, amount string) *tapResult {
	res := &tapResult{
		TapID:   uuid.New().String(),
		GateID:  g.id,
		AliasNo: alias,
		Kind:    kind,
		Amount:  amount,
		FiredAt: time.Now(),
	}

	body, _ := json.Marshal(tapRequest{AliasNo: alias, Amount: amount})
	url := g.apiBaseURL + "/transactions/" + string(kind)

	start := time.Now()
	resp, err := g.client.Post(url, "application/json", bytes.NewReader(body))
	res.DurationM = time.Since(start).Milliseconds()
	if err != nil {
		res.Status = 0
		res.Body = err.Error()
		return res
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	res.Status = resp.StatusCode
	if resp.StatusCode != http.StatusCreated {
		res.Body = string(b)
	}
	return res
}

func (g *FareGate) randomDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	delta := g.maxDelay - g.minDelay
	if delta <= 0 {
		return g.minDelay
	}
	return g.minDelay + time.Duration(g.rng.Int63n(int64(delta)))
}

func (g *FareGate) stats() gin.H {
	return gin.H{
		"gate_id":  g.id,
		"applied":  atomic.LoadInt64(&g.taps),
		"rejected": atomic.LoadInt64(&g.rejected),
		"failed":   atomic.LoadInt64(&g.failed),
	}
}

// Handler exposes the simulator control plane
type Handler struct {
	gates []*FareGate
}

func NewHandler(gates []*FareGate) *Handler {
	return &Handler{gates: gates}
}

// Tap fires one tap on demand through the first gate
func (h *Handler) Tap(c *gin.Context) {
	var req struct {
		AliasNo int64  `json:"alias_no" binding:"required"`
		Kind    string `json:"kind" binding:"required"`
		Amount  string `json:"amount" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	if req.Kind != string(TapRecharge) && req.Kind != string(TapUsage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be recharge or usage"})
		return
	}

	res := h.gates[0].fire(TapKind(req.Kind), req.AliasNo, req.Amount)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Stats(c *gin.Context) {
	out := make([]gin.H, 0, len(h.gates))
	for _, g := range h.gates {
		out = append(out, g.stats())
	}
	c.JSON(http.StatusOK, gin.H{"gates": out})
}

func (h *Handler) UpdateConfig(c *gin.Context) {
	var cfg struct {
		UsageShare *float64 `json:"usage_share"`
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if cfg.UsageShare != nil && *cfg.UsageShare >= 0 && *cfg.UsageShare <= 1.0 {
		for _, g := range h.gates {
			g.mu.Lock()
			g.usageShare = *cfg.UsageShare
			g.mu.Unlock()
		}
		log.Info().Float64("usage_share", *cfg.UsageShare).Msg("Updated usage share")
	}

	c.JSON(http.StatusOK, gin.H{"usage_share": cfg.UsageShare})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"gates":     len(h.gates),
		"timestamp": time.Now(),
	})
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("Request processed")
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/taps", handler.Tap)
		v1.GET("/stats", handler.Stats)
		v1.GET("/health", handler.HealthCheck)
		v1.PUT("/config", handler.UpdateConfig)
	}

	router.GET("/health", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8082")
	apiBaseURL := getEnv("API_BASE_URL", "http://localhost:8080/api/v1")
	gateCount := getEnvInt("GATE_COUNT", 3)
	aliasMax := int64(getEnvInt("ALIAS_MAX", 100))
	usageShare := getEnvFloat("USAGE_SHARE", 0.8)
	minDelay := getEnvDuration("MIN_DELAY", 200*time.Millisecond)
	maxDelay := getEnvDuration("MAX_DELAY", 2*time.Second)

	log.Info().
		Str("port", port).
		Str("api", apiBaseURL).
		Int("gates", gateCount).
		Float64("usage_share", usageShare).
		Msg("Starting Fare Gate Simulator")

	aliases := make([]int64, 0, aliasMax)
	for i := int64(1); i <= aliasMax; i++ {
		aliases = append(aliases, i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	gates := make([]*FareGate, 0, gateCount)
	for i := 0; i < gateCount; i++ {
		g := NewFareGate(apiBaseURL, aliases, usageShare, minDelay, maxDelay)
		gates = append(gates, g)
		go g.run(ctx)
	}

	handler := NewHandler(gates)
	router := SetupRouter(handler)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down simulator...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Simulator stopped")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
