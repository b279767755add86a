package tournament

import (
	"fmt"
	"strings"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/notify"
)

func joinedMessage(v View, userID string) notify.Message {
	text := fmt.Sprintf("🏟️ <@%s> joined the tournament (%d/%d)\n💰 Prize pool: %d tokens",
		userID, len(v.Players), entities.TournamentCapacity, v.PrizePool)
	if v.Spots() == 0 {
		text += "\nRegistration is closed, the bracket is being drawn!"
	}
	return notify.Text(text)
}

func cancelledMessage(v View, reason string) notify.Message {
	return notify.Text(fmt.Sprintf("❌ Tournament cancelled: %s. Your entry fee of %d tokens has been refunded.", reason, v.EntryFee))
}

func completedMessage(v View, payouts []payout) notify.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Tournament over! Prize pool: %d tokens\n", v.PrizePool)
	for _, p := range payouts {
		fmt.Fprintf(&b, "%s: <@%s> (%d tokens)\n", strings.ToUpper(p.place[:1])+p.place[1:], p.userID, p.amount)
	}
	return notify.Text(strings.TrimRight(b.String(), "\n"))
}

// JoinAffordance is the button inviting players into an open tournament
func JoinAffordance(v View) notify.Affordance {
	return notify.Affordance{
		Label:  fmt.Sprintf("Join (%d tokens)", v.EntryFee),
		Emoji:  "🏟️",
		Action: notify.JoinAction(v.ID),
	}
}
