package game

// Termination reasons sent to clients. Stable symbolic values: clients
// key their end-of-game dialogs on these.
const (
	// Win reasons
	WinCheckmate         = "CHECKMATE"
	WinOpponentOutOfTime = "OPPONENT_OUT_OF_TIME"
	WinOpponentResigned  = "OPPONENT_RESIGNED"
	WinOpponentLeft      = "OPPONENT_LEFT"

	// Loss reasons
	LossCheckmated = "CHECKMATED"
	LossOutOfTime  = "OUT_OF_TIME"
	LossResigned   = "RESIGNED"

	// Draw reasons
	DrawStalemate            = "STALEMATE"
	DrawInsufficientMaterial = "INSUFFICIENT_MATERIAL"
	DrawConsensus            = "CONSENSUS"
	DrawInfraFailure         = "INFRA_FAILURE"
)
