package workflow

import (
	"github.com/Veraticus/recon/internal/model"
)

// envelope carries the success flag every workflow endpoint returns.
type envelope struct {
	Error   string `json:"error"`
	Success bool   `json:"success"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type uploadResponse struct {
	envelope
	model.UploadResult
}

type identifyResponse struct {
	ColumnInfo *model.ColumnInfo `json:"column_info"`
	envelope
}

type matchResponse struct {
	envelope
	model.MatchingResult
}
