package server

// RegisterGameRoutes registers the per-game and room endpoints.
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	crash := api.Group("/crash")
	crash.Post("/play", s.crashPlayHandler)

	dice := api.Group("/dice")
	dice.Post("/roll", s.diceRollHandler)

	mines := api.Group("/mines")
	mines.Post("/bet", s.minesBetHandler)
	mines.Post("/reveal", s.minesRevealHandler)
	mines.Post("/cashout", s.minesCashoutHandler)

	rooms := api.Group("/rooms")
	rooms.Get("/", s.listRoomsHandler)
	rooms.Post("/", s.createRoomHandler)
	rooms.Get("/:roomId", s.getRoomHandler)
	rooms.Post("/:roomId/join", s.joinRoomHandler)
	rooms.Post("/:roomId/leave", s.leaveRoomHandler)
	rooms.Post("/:roomId/start", s.startRoomHandler)
	rooms.Post("/:roomId/action", s.submitActionHandler)
	rooms.Post("/:roomId/finish", s.finishRoomHandler)
}
