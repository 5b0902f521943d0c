// Package api exposes the feedback store's learned statistics over a
// read-only HTTP API. It never mutates history; the orchestrator is the
// only writer.
package api

import (
	"net/http"
	"strconv"

	"copyloop/internal/advisor"
	"copyloop/internal/feedback"
	"copyloop/internal/patterns"
	"copyloop/internal/predictor"
	"copyloop/internal/sweetspot"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// #region server

type Server struct {
	router *gin.Engine
	store  *feedback.Store
	logger *zap.Logger

	learner   *patterns.Learner
	advisor   *advisor.Advisor
	predictor *predictor.Predictor
	analyzer  *sweetspot.Analyzer
}

// NewServer wires the read-only stats API over a feedback store.
func NewServer(store *feedback.Store, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:    router,
		store:     store,
		logger:    logger,
		learner:   patterns.NewLearner(store, patterns.DefaultConfig()),
		advisor:   advisor.NewAdvisor(store, nil),
		predictor: predictor.NewPredictor(store),
		analyzer:  sweetspot.NewAnalyzer(store, sweetspot.DefaultConfig()),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	api := s.router.Group("/api")
	{
		api.GET("/stats/scope", s.getScopeStats)
		api.GET("/stats/temperature", s.getTemperatureBuckets)
		api.GET("/sweetspots", s.getSweetSpots)
		api.GET("/patterns", s.getPatterns)
		api.GET("/predict", s.getPrediction)
		api.GET("/decisions/recent", s.getRecentDecisions)
		api.GET("/attempts/recent", s.getRecentAttempts)
	}
}

// Run blocks serving the API on addr.
func (s *Server) Run(addr string) error {
	s.logger.Info("stats API listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// #endregion server

// #region handlers

// getScopeStats handles GET /api/stats/scope?kind=&attempt=
func (s *Server) getScopeStats(c *gin.Context) {
	f, ok := s.filterFrom(c)
	if !ok {
		return
	}
	stats, err := s.store.ScopeStats(f)
	if err != nil {
		s.logger.Error("failed to load scope stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load scope stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total":        stats.Total,
		"successes":    stats.Successes,
		"success_rate": stats.SuccessRate,
		"avg_score":    stats.AvgScore,
	})
}

// getTemperatureBuckets handles GET /api/stats/temperature?kind=
func (s *Server) getTemperatureBuckets(c *gin.Context) {
	f, ok := s.filterFrom(c)
	if !ok {
		return
	}
	buckets, err := s.store.TemperatureBuckets(f)
	if err != nil {
		s.logger.Error("failed to load temperature buckets", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load temperature buckets"})
		return
	}

	rec, err := s.advisor.Recommend(f)
	if err != nil {
		s.logger.Error("failed to compute recommendation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute recommendation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"buckets":        buckets,
		"recommendation": rec,
	})
}

// getSweetSpots handles GET /api/sweetspots
func (s *Server) getSweetSpots(c *gin.Context) {
	spots, err := s.store.SweetSpots(feedback.GenericScope)
	if err != nil {
		s.logger.Error("failed to load sweet spots", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sweet spots"})
		return
	}

	analysis, err := s.analyzer.Analyze(feedback.Filter{})
	if err != nil {
		s.logger.Error("failed to analyze attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze attempts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"persisted":    spots,
		"sufficient":   analysis.Sufficient,
		"sample_count": analysis.SampleCount,
		"confidence":   analysis.Confidence,
		"correlations": analysis.Correlations,
	})
}

// getPatterns handles GET /api/patterns?kind=
func (s *Server) getPatterns(c *gin.Context) {
	f, ok := s.filterFrom(c)
	if !ok {
		return
	}
	report, err := s.learner.Analyze(f)
	if err != nil {
		s.logger.Error("failed to analyze patterns", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to analyze patterns"})
		return
	}
	c.JSON(http.StatusOK, report)
}

// getPrediction handles GET /api/predict?kind=&temperature=&attempt=
func (s *Server) getPrediction(c *gin.Context) {
	kind := c.Query("kind")
	temperature, err := strconv.ParseFloat(c.DefaultQuery("temperature", "0.8"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "temperature must be a number"})
		return
	}
	attempt, err := strconv.Atoi(c.DefaultQuery("attempt", "1"))
	if err != nil || attempt < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "attempt must be a positive integer"})
		return
	}

	pred, err := s.predictor.Predict(kind, temperature, attempt)
	if err != nil {
		s.logger.Error("failed to predict", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to predict"})
		return
	}
	c.JSON(http.StatusOK, pred)
}

// getRecentDecisions handles GET /api/decisions/recent?limit=
func (s *Server) getRecentDecisions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	decisions, err := s.store.RecentDecisions(limit)
	if err != nil {
		s.logger.Error("failed to load decisions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load decisions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"decisions": decisions})
}

// getRecentAttempts handles GET /api/attempts/recent?kind=&attempt=&limit=
func (s *Server) getRecentAttempts(c *gin.Context) {
	f, ok := s.filterFrom(c)
	if !ok {
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	attempts, err := s.store.ScoredAttempts(f, limit)
	if err != nil {
		s.logger.Error("failed to load attempts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attempts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// #endregion handlers

// #region helpers

// filterFrom parses the shared kind/attempt query filter. On a bad attempt
// value it writes the 400 itself and reports !ok.
func (s *Server) filterFrom(c *gin.Context) (feedback.Filter, bool) {
	f := feedback.Filter{Kind: c.Query("kind")}
	if raw := c.Query("attempt"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "attempt must be a positive integer"})
			return feedback.Filter{}, false
		}
		f.AttemptNum = n
	}
	return f, true
}

// #endregion helpers
