package server

import (
	"errors"
	"fmt"
)

const HTTP_SUCCESS = 200

var (
	ErrGameInProgress = errors.New("game already in progress")
	ErrGameFull       = errors.New("game has no free seat")
	ErrBadSelection   = errors.New("no such game")
	ErrBadPlayerCount = errors.New("player count must be 1 or 2")
	ErrStaleHandle    = errors.New("stale session handle")
)

func (gss GameSessionState) Name() string {
	switch gss {
	case GS_NEW:
		return "GS_NEW"
	case GS_WAIT:
		return "GS_WAIT"
	case GS_PLAY:
		return "GS_PLAY"
	case GS_OVER:
		return "GS_OVER"
	default:
		return fmt.Sprintf("n/a:%d", gss)
	}
}

func (ps PlayerSessionState) Name() string {
	switch ps {
	case PS_NEW:
		return "NEW"
	case PS_PLAY:
		return "PLAY"
	case PS_OVER:
		return "OVER"
	case PS_ERR:
		return "ERR"
	default:
		return "N/A"
	}
}

// GameInfo is the JSON view of one game.
type GameInfo struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Levels     int    `json:"levels"`
	State      string `json:"state"`
	InProgress bool   `json:"in_progress"`
	Seated     int    `json:"seated"`
}
