package match

import (
	"context"
	"errors"
	"log"

	"github.com/fadedpez/rpsarena/pkg/entities"
	"github.com/fadedpez/rpsarena/pkg/services/events"
)

// duelSettler pays out a 1v1 session from its escrowed pot
type duelSettler struct {
	m *Manager
}

func (d duelSettler) Settle(ctx context.Context, res *Resolution) (Verdict, error) {
	m := d.m
	players := []Player{res.PlayerA, res.PlayerB}

	if res.Outcome == entities.OutcomeDraw {
		var errs []error
		for _, p := range players {
			if _, err := m.ledger.Credit(ctx, p.UserID, p.Stake, entities.ReasonStakeRefund, res.SessionID); err != nil {
				errs = append(errs, err)
			}
		}
		return VerdictSettled, errors.Join(errs...)
	}

	prize := Prize(res.PlayerA.Stake + res.PlayerB.Stake)
	if _, err := m.ledger.Credit(ctx, res.WinnerID, prize, entities.ReasonPrizePayout, res.SessionID); err != nil {
		d.compensate(ctx, res)
		return VerdictSettled, err
	}
	res.Prize = prize

	// Modifier surplus is minted as its own entry so the pot still balances
	if bonus := m.modifiers.ApplyActive(events.TargetReward, prize) - prize; bonus > 0 {
		if _, err := m.ledger.Credit(ctx, res.WinnerID, bonus, entities.ReasonBonus, res.SessionID); err != nil {
			log.Printf("[MATCH] Bonus of %d to %s for session %s failed: %v", bonus, res.WinnerID, res.SessionID, err)
		} else {
			res.Bonus = bonus
		}
	}

	res.RatingChange = int(m.modifiers.ApplyActive(events.TargetRating, RatingChange))
	if _, err := m.ledger.UpdateRecord(ctx, res.WinnerID, entities.RecordDelta{Wins: 1, Rating: res.RatingChange}); err != nil {
		log.Printf("[MATCH] Error updating record for %s: %v", res.WinnerID, err)
	}
	if _, err := m.ledger.UpdateRecord(ctx, res.LoserID, entities.RecordDelta{Losses: 1, Rating: -res.RatingChange}); err != nil {
		log.Printf("[MATCH] Error updating record for %s: %v", res.LoserID, err)
	}

	log.Printf("[MATCH] Session %s settled: %s won %d tokens (+%d bonus)", res.SessionID, res.WinnerID, prize, res.Bonus)
	return VerdictSettled, nil
}

// compensate returns both stakes after the payout could not be made, so
// neither player is left without their tokens or a result
func (d duelSettler) compensate(ctx context.Context, res *Resolution) {
	for _, p := range []Player{res.PlayerA, res.PlayerB} {
		if _, err := d.m.ledger.Credit(ctx, p.UserID, p.Stake, entities.ReasonStakeRefund, res.SessionID); err != nil {
			log.Printf("[MATCH] ERROR: compensating refund of %d to %s for session %s failed: %v", p.Stake, p.UserID, res.SessionID, err)
		}
	}
}
