package domain

// TurnStatus is the outcome classification of one conversational turn.
// Anticipated failures (guardrail rejections, provider outages, tool errors)
// still produce TurnHandled with an explanatory message; TurnError is
// reserved for unexpected defects.
type TurnStatus string

const (
	TurnHandled TurnStatus = "handled"
	TurnError   TurnStatus = "error"
)

// TurnRequest is the upward-facing input for one conversational turn.
type TurnRequest struct {
	Message string        `json:"message"`
	History []Message     `json:"history,omitempty"`
	Context ActingContext `json:"context"`
	// BroadcastNonce is generated by the client per turn. Possession of the
	// nonce is the sole authorization to observe this turn's progress.
	BroadcastNonce string `json:"broadcast_nonce"`
	// SessionKey identifies the conversation for session-state persistence.
	SessionKey string `json:"session_key"`
}

// TurnResponse is the upward-facing result of one conversational turn.
type TurnResponse struct {
	Status      TurnStatus   `json:"status"`
	Message     string       `json:"message"`
	Worker      NextStep     `json:"worker,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}
