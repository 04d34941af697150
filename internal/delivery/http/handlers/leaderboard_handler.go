package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/LavaJover/shvark-lottery-service/internal/delivery/http/dto/response"
	"github.com/LavaJover/shvark-lottery-service/internal/domain"
	"github.com/LavaJover/shvark-lottery-service/internal/usecase/leaderboard"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeaderboardHandler struct {
	uc     leaderboard.LeaderboardUsecase
	logger *zap.Logger
}

func NewLeaderboardHandler(uc leaderboard.LeaderboardUsecase, logger *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{uc: uc, logger: logger}
}

// GetLeaderboard serves GET /api/v1/lotteries/:id/leaderboard.
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, response.Fail("lottery id must be a positive integer"))
		return
	}

	board, err := h.uc.GetLeaderboard(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLotteryNotFound):
			c.JSON(http.StatusNotFound, response.Fail(err.Error()))
		case domain.IsValidation(err):
			c.JSON(http.StatusBadRequest, response.Fail(err.Error()))
		case domain.IsRetryable(err):
			h.logger.Warn("leaderboard unavailable", zap.Int64("lottery_id", id), zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, response.Fail("leaderboard is temporarily unavailable"))
		default:
			h.logger.Error("leaderboard failed", zap.Int64("lottery_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, response.Fail("internal error"))
		}
		return
	}
	c.JSON(http.StatusOK, response.FromLeaderboard(board))
}
