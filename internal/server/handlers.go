package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"minicasino/internal/game"
)

// errorResponse maps the core failure taxonomy onto HTTP statuses. Fairness
// violations get their own code so integrity faults never blend into
// ordinary validation noise.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, game.ErrFairnessViolation):
		status = fiber.StatusConflict
		code = "fairness_violation"
	case errors.Is(err, game.ErrNotFound):
		status = fiber.StatusNotFound
		code = "not_found"
	case errors.Is(err, game.ErrInvalidState):
		status = fiber.StatusConflict
		code = "invalid_state"
	case errors.Is(err, game.ErrInsufficientFunds):
		status = fiber.StatusPaymentRequired
		code = "insufficient_funds"
	case errors.Is(err, game.ErrValidation):
		status = fiber.StatusBadRequest
		code = "validation"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

// Solo game handlers

func (s *FiberServer) crashPlayHandler(c *fiber.Ctx) error {
	var req game.CrashPlayRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeCrash)
	if !exists {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Crash game not available"})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

func (s *FiberServer) diceRollHandler(c *fiber.Ctx) error {
	var req game.DiceRollRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeDice)
	if !exists {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Dice game not available"})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

func (s *FiberServer) minesBetHandler(c *fiber.Ctx) error {
	var req game.MinesBetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeMines)
	if !exists {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Mines game not available"})
	}

	resp, err := engine.PlaceBet(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

func (s *FiberServer) minesRevealHandler(c *fiber.Ctx) error {
	var req game.MinesRevealRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" || req.GameID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID and Game ID are required"})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeMines)
	if !exists {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Mines game not available"})
	}

	resp, err := engine.ProcessAction(c.Context(), "reveal", req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

func (s *FiberServer) minesCashoutHandler(c *fiber.Ctx) error {
	var req game.MinesCashoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.UserID == "" || req.GameID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID and Game ID are required"})
	}

	engine, exists := s.gameFactory.GetEngine(game.GameTypeMines)
	if !exists {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Mines game not available"})
	}

	resp, err := engine.ProcessAction(c.Context(), "cashout", req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(resp)
}

// Round audit handlers

// getRoundHandler returns a settled round with its full disclosure tuple.
func (s *FiberServer) getRoundHandler(c *fiber.Ctx) error {
	roundID := c.Params("roundId")
	if roundID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Round ID is required"})
	}

	round, err := s.rounds.GetRound(c.Context(), roundID)
	if err != nil {
		return errorResponse(c, err)
	}

	disclosure, err := round.Disclosure()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"round":      round,
		"disclosure": disclosure,
	})
}

// verifyHandler recomputes a round from its revealed seed triple and checks
// the claimed digest and outcome.
func (s *FiberServer) verifyHandler(c *fiber.Ctx) error {
	var req game.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ServerSeed == "" || req.ClientSeed == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Server seed and client seed are required"})
	}

	gameType, err := game.ParseGameType(req.GameType)
	if err != nil {
		return errorResponse(c, err)
	}

	if req.Digest != "" {
		if err := game.VerifyDigest(req.ServerSeed, req.ClientSeed, req.Nonce, req.Digest); err != nil {
			return errorResponse(c, err)
		}
	}

	digest := game.Digest(req.ServerSeed, req.ClientSeed, req.Nonce)
	result := fiber.Map{"valid": true, "digest": digest}

	switch gameType {
	case game.GameTypeCrash:
		if err := game.VerifyCrashOutcome(req.ServerSeed, req.ClientSeed, req.Nonce, req.Multiplier); err != nil {
			return errorResponse(c, err)
		}
		result["crash_multiplier"] = req.Multiplier
	case game.GameTypeDice:
		if err := game.VerifyDiceOutcome(req.ServerSeed, req.ClientSeed, req.Nonce, req.Result); err != nil {
			return errorResponse(c, err)
		}
		result["dice_result"] = req.Result
	case game.GameTypeMines:
		if err := game.VerifyMinesOutcome(req.ServerSeed, req.ClientSeed, req.Nonce, req.MineCount, req.GridSize, req.MineCells); err != nil {
			return errorResponse(c, err)
		}
		result["mine_cells"] = req.MineCells
	}

	return c.JSON(result)
}

// User balance handlers

func (s *FiberServer) getUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	balance, err := s.userLedger.GetBalance(c.Context(), userID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": balance,
	})
}

// setUserBalanceHandler overwrites a balance (for testing/admin).
func (s *FiberServer) setUserBalanceHandler(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	var body struct {
		Balance float64 `json:"balance"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := s.userLedger.SetBalance(c.Context(), userID, body.Balance); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to set balance"})
	}

	return c.JSON(fiber.Map{
		"user_id": userID,
		"balance": body.Balance,
		"message": "Balance updated successfully",
	})
}

// Room handlers

func (s *FiberServer) listRoomsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"rooms": s.rooms.List()})
}

func (s *FiberServer) createRoomHandler(c *fiber.Ctx) error {
	var req game.CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	view, err := s.rooms.Create(c.Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (s *FiberServer) getRoomHandler(c *fiber.Ctx) error {
	view, err := s.rooms.Get(c.Params("roomId"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

type roomUserRequest struct {
	UserID string `json:"user_id"`
}

func (s *FiberServer) joinRoomHandler(c *fiber.Ctx) error {
	var req roomUserRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	view, err := s.rooms.Join(c.Context(), c.Params("roomId"), req.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *FiberServer) leaveRoomHandler(c *fiber.Ctx) error {
	var req roomUserRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	if err := s.rooms.Leave(c.Context(), c.Params("roomId"), req.UserID); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Left room"})
}

func (s *FiberServer) startRoomHandler(c *fiber.Ctx) error {
	var req roomUserRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	view, err := s.rooms.Start(c.Context(), c.Params("roomId"), req.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}

func (s *FiberServer) submitActionHandler(c *fiber.Ctx) error {
	var req struct {
		UserID string            `json:"user_id"`
		Action game.PlayerAction `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	if err := s.rooms.SubmitAction(c.Context(), c.Params("roomId"), req.UserID, req.Action); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"message": "Action recorded"})
}

func (s *FiberServer) finishRoomHandler(c *fiber.Ctx) error {
	var req roomUserRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "User ID is required"})
	}

	view, err := s.rooms.Finish(c.Context(), c.Params("roomId"), req.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(view)
}
