package handler

import (
	"net/http"

	"arena/internal/delivery/api/response"
	"arena/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// StatsHandlerParams holds dependencies for StatsHandler, injected by Fx.
type StatsHandlerParams struct {
	fx.In

	StatsUC usecase.StatsUsecase
}

// StatsHandler records game results.
type StatsHandler struct {
	statsUC usecase.StatsUsecase
}

// NewStatsHandler is the constructor for StatsHandler.
func NewStatsHandler(params StatsHandlerParams) *StatsHandler {
	return &StatsHandler{statsUC: params.StatsUC}
}

// LocalResultRequest is the body of POST /tournament/local-result.
type LocalResultRequest struct {
	Winner         string `json:"winner" validate:"required,max=64"`
	Loser          string `json:"loser" validate:"required,max=64"`
	TournamentName string `json:"tournamentName" validate:"max=128"`
}

// LocalResultResponse confirms the recorded result.
type LocalResultResponse struct {
	Message      string `json:"message"`
	StatsUpdated bool   `json:"stats_updated"`
}

// RecordLocalResult credits the winner and the loser of a local match.
func (h *StatsHandler) RecordLocalResult(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req LocalResultRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid tournament result input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	output, err := h.statsUC.RecordLocalTournamentResult(c.Request().Context(), identity, &usecase.LocalResultInput{
		Winner:         req.Winner,
		Loser:          req.Loser,
		TournamentName: req.TournamentName,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, LocalResultResponse{
		Message:      output.Message,
		StatsUpdated: output.StatsUpdated,
	})
}
