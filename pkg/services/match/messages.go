package match

import (
	"fmt"
	"strings"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
)

func battleStartMessage(v SessionView) notify.Message {
	text := fmt.Sprintf("⚔️ Battle started!\n\n🆚 <@%s> vs <@%s>\n💰 Stake: %d tokens\n🏆 Prize pool: %d tokens\n\nMake your move!",
		v.PlayerA.UserID, v.PlayerB.UserID, v.PlayerA.Stake, v.Pot())
	return notify.Message{Text: text, Affordances: notify.MoveAffordances(v.ID)}
}

// BracketStartMessage is sent to both players of a new bracket match
func BracketStartMessage(v SessionView) notify.Message {
	text := fmt.Sprintf("🏟️ Tournament round %d!\n\n🆚 <@%s> vs <@%s>\n\nMake your move!",
		v.Round, v.PlayerA.UserID, v.PlayerB.UserID)
	return notify.Message{Text: text, Affordances: notify.MoveAffordances(v.ID)}
}

func expiredMessage(v SessionView) notify.Message {
	return notify.Text(fmt.Sprintf("⌛ Battle expired with no result. Your stake of %d tokens has been returned.", v.PlayerA.Stake))
}

func resultMessage(res *Resolution, playerID string, balance int64) notify.Message {
	if res.Failed {
		return notify.Text("❌ An error occurred while settling the battle. Any stakes that could be returned have been refunded.")
	}

	var b strings.Builder
	switch {
	case res.Replay:
		b.WriteString("🤝 It's a draw! Play again.\n")
	case res.Outcome == entities.OutcomeDraw:
		b.WriteString("🤝 It's a draw!\n")
	case res.WinnerID == playerID:
		b.WriteString("🏆 You win!\n")
	default:
		b.WriteString("💀 You lose!\n")
	}

	fmt.Fprintf(&b, "<@%s> chose %s %s\n", res.PlayerA.UserID, res.MoveA.Emoji(), res.MoveA)
	fmt.Fprintf(&b, "<@%s> chose %s %s\n", res.PlayerB.UserID, res.MoveB.Emoji(), res.MoveB)

	if res.TournamentID == "" {
		if res.Outcome == entities.OutcomeDraw {
			b.WriteString("Stakes have been returned.\n")
		} else {
			fmt.Fprintf(&b, "Prize: %d tokens (%d%% of pot)\n", res.Prize, PrizePercent)
			if res.Bonus > 0 {
				fmt.Fprintf(&b, "🎉 Event bonus: %d tokens\n", res.Bonus)
			}
		}
	}
	if res.Note != "" {
		b.WriteString(res.Note + "\n")
	}
	if balance >= 0 {
		fmt.Fprintf(&b, "\nYour new balance: %d tokens", balance)
	}

	msg := notify.Message{Text: strings.TrimRight(b.String(), "\n")}
	if res.Replay {
		msg.Affordances = notify.MoveAffordances(res.SessionID)
	}
	return msg
}
