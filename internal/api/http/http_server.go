package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gridwatt/energy-market/internal/api/dto"
	"github.com/gridwatt/energy-market/internal/core"
	"github.com/gridwatt/energy-market/internal/domain"
	"github.com/gridwatt/energy-market/internal/middleware"
)

type HTTPServer struct {
	Eng       *core.Engine
	log       *slog.Logger
	rateLimit time.Duration
}

func NewHTTPServer(eng *core.Engine, log *slog.Logger, rateLimit time.Duration) *HTTPServer {
	if log == nil {
		log = slog.Default()
	}
	return &HTTPServer{Eng: eng, log: log, rateLimit: rateLimit}
}

func (s *HTTPServer) Run(addr string) error {
	return s.Router().Run(addr)
}

func (s *HTTPServer) Router() *gin.Engine {
	r := gin.Default()

	rl := middleware.NewRateLimiter(s.rateLimit)
	r.Use(rl.Middleware())

	r.POST("/market/init", s.initMarket)
	r.POST("/market/close", s.closeMarket)
	r.GET("/market", s.getMarket)
	r.GET("/market/settlement", s.getSettlement)
	r.POST("/trades", s.submitTrade)
	r.GET("/trades", s.getLedger)
	r.GET("/trades/:participant", s.getTrade)

	return r
}

func caller(c *gin.Context) string {
	return c.GetHeader(middleware.ClientIDHeader)
}

func (s *HTTPServer) initMarket(c *gin.Context) {
	var req dto.InitMarketRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	m, err := s.Eng.InitMarket(c.Request.Context(), caller(c), req.TradeEndUTC)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarketResponse{Market: dto.FromMarket(m)})
}

func (s *HTTPServer) submitTrade(c *gin.Context) {
	var req dto.SubmitTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	t := domain.Trade{
		Participant:  caller(c),
		Side:         side,
		EnergyAmount: req.EnergyAmount,
		Currency:     req.Currency,
	}
	m, err := s.Eng.SubmitTrade(c.Request.Context(), t)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SubmitTradeResponse{
		Trade:          dto.FromTrade(&t),
		TotalPushed:    m.TotalPushed,
		TotalRequested: m.TotalRequested,
	})
}

func (s *HTTPServer) closeMarket(c *gin.Context) {
	settlement, err := s.Eng.CloseMarket(c.Request.Context(), caller(c))
	if err != nil {
		// A second close is a reported no-op, not a failure.
		if errors.Is(err, domain.ErrAlreadyClosed) {
			resp := dto.SettlementResponse{Message: "market already closed"}
			if settlement != nil {
				resp = dto.FromSettlement(settlement)
				resp.Message = "market already closed"
				resp.Payouts = nil
			}
			c.JSON(http.StatusOK, resp)
			return
		}
		s.fail(c, err)
		return
	}
	resp := dto.FromSettlement(settlement)
	if len(resp.Payouts) == 0 && len(resp.Failures) == 0 {
		resp.Message = domain.ErrNoTrades.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) getMarket(c *gin.Context) {
	m, err := s.Eng.Market(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MarketResponse{Market: dto.FromMarket(m)})
}

func (s *HTTPServer) getLedger(c *gin.Context) {
	snap, err := s.Eng.Ledger(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	entries := make([]dto.Trade, 0, len(snap.Entries))
	for i := range snap.Entries {
		entries = append(entries, dto.FromTrade(&snap.Entries[i]))
	}
	c.JSON(http.StatusOK, dto.LedgerResponse{
		MarketID:  snap.MarketID,
		Entries:   entries,
		Timestamp: snap.Timestamp,
	})
}

func (s *HTTPServer) getTrade(c *gin.Context) {
	t, err := s.Eng.Trade(c.Request.Context(), c.Param("participant"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.TradeResponse{Trade: dto.FromTrade(t)})
}

func (s *HTTPServer) getSettlement(c *gin.Context) {
	settlement, err := s.Eng.Settlement(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSettlement(settlement))
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNotInitialized):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrMarketClosed),
		errors.Is(err, domain.ErrTradingClosed),
		errors.Is(err, domain.ErrNotYetClosable):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSide),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidParticipant):
		return http.StatusBadRequest
	default:
		if _, ok := err.(*time.ParseError); ok {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
