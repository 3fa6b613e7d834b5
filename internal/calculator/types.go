package calculator

import "pocket-calc/internal/engine"

// PressRequest is the JSON body for POST /calculator/sessions/{id}/press.
// Either a single token or a list may be sent; a single token is applied
// first.
type PressRequest struct {
	Token  string   `json:"token,omitempty"`
	Tokens []string `json:"tokens,omitempty"` // keypad labels, e.g. "7", "+", "="
}

func (r PressRequest) keys() []string {
	if r.Token == "" {
		return r.Tokens
	}
	return append([]string{r.Token}, r.Tokens...)
}

// SessionResponse is returned by every session endpoint except DELETE.
type SessionResponse struct {
	ID      string      `json:"id"`
	View    engine.View `json:"view"`
	Ignored []string    `json:"ignored,omitempty"`
}

// HistoryResponse is the JSON response for GET /calculator/sessions/{id}/history.
type HistoryResponse struct {
	ID      string         `json:"id"`
	Entries []engine.Entry `json:"entries"`
}

// EvaluateRequest is the JSON body for POST /calculator/evaluate.
type EvaluateRequest struct {
	Tokens []string `json:"tokens"`
}

// EvaluateResponse is the view of a fresh calculator after all tokens.
type EvaluateResponse struct {
	Tokens  []string       `json:"tokens"`
	Ignored []string       `json:"ignored,omitempty"`
	View    engine.View    `json:"view"`
	History []engine.Entry `json:"history"`
}
