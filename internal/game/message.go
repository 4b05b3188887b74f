package game

import (
	"fmt"

	"github.com/nilsonaj/racko-frontend/internal/game/racko"
)

// 提示语
const (
	MessageYourTurn      = "Your turn!"
	MessageYouWin        = "🎉 You win!"
	MessageMustUseCard   = "Must use card"
	MessagePlaceDiscard  = "Place or discard"
	MessageNoCardsToDraw = "No cards left to draw!"
	MessageGameFull      = "Game full"
	MessageConnection    = "Connection error"
)

// StatusMessage 根据快照计算 playerID 视角下的提示语
func StatusMessage(snap *racko.Snapshot, playerID string) string {
	if snap == nil {
		return ""
	}

	switch {
	case !snap.Seated():
		return fmt.Sprintf("Waiting for %d more...", snap.MaxPlayers-len(snap.Players))
	case snap.Winner != "":
		if snap.Winner == playerID {
			return MessageYouWin
		}
		name := ""
		if w := snap.WinnerPlayer(); w != nil {
			name = w.Name
		}
		return fmt.Sprintf("%s wins!", name)
	case snap.IsTurnOf(playerID):
		return MessageYourTurn
	default:
		name := ""
		if cur := snap.CurrentPlayer(); cur != nil {
			name = cur.Name
		}
		return fmt.Sprintf("%s's turn...", name)
	}
}
