package tournament

import (
	"context"
	"fmt"
	"log"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/services/events"
	"github.com/fadedpez/rpsarena/pkg/services/match"
)

// bracketSettler advances a tournament when one of its sessions resolves.
// The manager calls it with the session locked.
type bracketSettler struct {
	s *Service
	t *Tournament
}

func (b *bracketSettler) Settle(ctx context.Context, res *match.Resolution) (match.Verdict, error) {
	s, t := b.s, b.t

	var out outbox
	var orphans []string
	defer func() {
		s.abandon(ctx, orphans, res.SessionID)
		s.send(out)
	}()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != entities.TournamentInProgress {
		res.Note = "This tournament is no longer running; the result does not count."
		return match.VerdictSettled, nil
	}
	if res.Round != t.round || !t.pending[res.SessionID] {
		orphans = t.viewLocked().Pending
		return match.VerdictSettled, s.corruptLocked(ctx, t, &out,
			fmt.Sprintf("session %s (round %d) is not an open match of round %d", res.SessionID, res.Round, t.round))
	}

	if res.Outcome == entities.OutcomeDraw {
		log.Printf("[TOURNAMENT] %s round %d: %s and %s drew, replaying", t.id, t.round, res.PlayerA.UserID, res.PlayerB.UserID)
		return match.VerdictReplay, nil
	}

	if !t.removePlayer(res.LoserID) {
		orphans = t.viewLocked().Pending
		return match.VerdictSettled, s.corruptLocked(ctx, t, &out,
			fmt.Sprintf("loser %s of session %s is not in the bracket", res.LoserID, res.SessionID))
	}
	delete(t.pending, res.SessionID)
	t.eliminated[t.round] = append(t.eliminated[t.round], res.LoserID)
	log.Printf("[TOURNAMENT] %s round %d: %s eliminated by %s", t.id, t.round, res.LoserID, res.WinnerID)

	if len(t.pending) > 0 {
		res.Note = fmt.Sprintf("<@%s> advances. Waiting for the rest of round %d.", res.WinnerID, t.round)
		return match.VerdictSettled, nil
	}

	if len(t.players) == 1 {
		s.completeLocked(ctx, t, &out)
		res.Note = fmt.Sprintf("🏆 <@%s> wins the tournament!", res.WinnerID)
		return match.VerdictSettled, nil
	}

	if err := s.startRoundLocked(ctx, t, &out); err != nil {
		return match.VerdictSettled, err
	}
	res.Note = fmt.Sprintf("<@%s> advances to round %d.", res.WinnerID, t.round)
	return match.VerdictSettled, nil
}

// completeLocked pays the prizes and retires the tournament
func (s *Service) completeLocked(ctx context.Context, t *Tournament, out *outbox) {
	t.status = entities.TournamentCompleted
	payouts := t.prizesLocked()

	for i := range payouts {
		p := &payouts[i]
		if _, err := s.ledger.Credit(ctx, p.userID, p.amount, entities.ReasonPrizePayout, t.id); err != nil {
			log.Printf("[TOURNAMENT] ERROR: %s prize of %d to %s for %s failed: %v", p.place, p.amount, p.userID, t.id, err)
			p.amount = 0
			continue
		}
		if bonus := s.modifiers.ApplyActive(events.TargetReward, p.amount) - p.amount; bonus > 0 {
			if _, err := s.ledger.Credit(ctx, p.userID, bonus, entities.ReasonBonus, t.id); err != nil {
				log.Printf("[TOURNAMENT] Bonus of %d to %s for %s failed: %v", bonus, p.userID, t.id, err)
			}
		}
	}
	s.remove(t.id)

	log.Printf("[TOURNAMENT] %s completed: %s won %d of %d tokens", t.id, t.players[0], payouts[0].amount, t.prizePool)
	out.addAll(t.entrants, completedMessage(t.viewLocked(), payouts))
}
