package handler

import (
	"net/http"
	"time"

	"arena/internal/delivery/api/response"
	"arena/internal/domain/entity"
	"arena/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// MatchHandlerParams holds dependencies for MatchHandler, injected by Fx.
type MatchHandlerParams struct {
	fx.In

	MatchUC usecase.MatchUsecase
}

// MatchHandler exposes the match lifecycle.
type MatchHandler struct {
	matchUC usecase.MatchUsecase
}

// NewMatchHandler is the constructor for MatchHandler.
func NewMatchHandler(params MatchHandlerParams) *MatchHandler {
	return &MatchHandler{matchUC: params.MatchUC}
}

// CreateMatchRequest is the body of POST /matches.
type CreateMatchRequest struct {
	Player1Alias string `json:"player1Alias" validate:"required,max=64"`
	Player2Alias string `json:"player2Alias" validate:"required,max=64"`
}

// CompleteMatchRequest is the body of POST /matches/:id/complete.
type CompleteMatchRequest struct {
	WinnerAlias  string `json:"winnerAlias" validate:"required,max=64"`
	Player1Score int    `json:"player1Score" validate:"min=0"`
	Player2Score int    `json:"player2Score" validate:"min=0"`
}

// MatchPlayerResponse is one seat of a match.
type MatchPlayerResponse struct {
	Seat      int        `json:"seat"`
	Alias     string     `json:"alias"`
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Score     *int       `json:"score,omitempty"`
	Result    string     `json:"result,omitempty"`
}

// MatchResponse is a match as returned by every match endpoint.
type MatchResponse struct {
	ID          uuid.UUID             `json:"id"`
	Status      string                `json:"status"`
	Players     []MatchPlayerResponse `json:"players"`
	WinnerAlias string                `json:"winner_alias,omitempty"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	FinishedAt  *time.Time            `json:"finished_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

func newMatchResponse(match *entity.Match) MatchResponse {
	players := make([]MatchPlayerResponse, 0, len(match.Players))
	for _, p := range match.Players {
		players = append(players, MatchPlayerResponse{
			Seat:      p.Seat,
			Alias:     p.Alias,
			AccountID: p.AccountID,
			Score:     p.Score,
			Result:    string(p.Result),
		})
	}

	return MatchResponse{
		ID:          match.ID,
		Status:      string(match.Status),
		Players:     players,
		WinnerAlias: match.WinnerAlias,
		StartedAt:   match.StartedAt,
		FinishedAt:  match.FinishedAt,
		CreatedAt:   match.CreatedAt,
	}
}

// Create stores a new PENDING match.
func (h *MatchHandler) Create(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req CreateMatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid match input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	match, err := h.matchUC.CreateMatch(c.Request().Context(), identity, &usecase.CreateMatchInput{
		Player1Alias: req.Player1Alias,
		Player2Alias: req.Player2Alias,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, newMatchResponse(match))
}

func (h *MatchHandler) Get(c echo.Context) error {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "Invalid match id")
	}

	match, err := h.matchUC.GetMatch(c.Request().Context(), matchID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newMatchResponse(match))
}

// Start moves a PENDING match to ONGOING.
func (h *MatchHandler) Start(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "Invalid match id")
	}

	match, err := h.matchUC.StartMatch(c.Request().Context(), identity, matchID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newMatchResponse(match))
}

// Complete records the final score and credits linked accounts.
func (h *MatchHandler) Complete(c echo.Context) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BindingError(c, "Invalid match id")
	}

	var req CompleteMatchRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "Invalid match result input")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	match, err := h.matchUC.CompleteMatch(c.Request().Context(), identity, &usecase.CompleteMatchInput{
		MatchID:      matchID,
		WinnerAlias:  req.WinnerAlias,
		Player1Score: req.Player1Score,
		Player2Score: req.Player2Score,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, newMatchResponse(match))
}
