package gametrack

import (
	"testing"

	"github.com/dutchthenomad/rugfeed/internal/domain"
)

func TestNextPhasePriority(t *testing.T) {
	cases := []struct {
		name string
		snap domain.GameStateSnapshot
		want domain.Phase
	}{
		{"rug wins over active", domain.GameStateSnapshot{Rugged: true, Active: true}, domain.PhaseRug},
		{"active wins over cooldown", domain.GameStateSnapshot{Active: true, CooldownTimer: 20000}, domain.PhaseActive},
		{"long cooldown", domain.GameStateSnapshot{CooldownTimer: 10001}, domain.PhaseCooldown},
		{"pre-round window", domain.GameStateSnapshot{CooldownTimer: 5000, AllowPreRoundBuy: true}, domain.PhasePreRound},
		{"waiting default", domain.GameStateSnapshot{CooldownTimer: 0}, domain.PhaseWaiting},
		{"cooldown without pre-round flag stays waiting", domain.GameStateSnapshot{CooldownTimer: 5000, AllowPreRoundBuy: false}, domain.PhaseWaiting},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := nextPhase(c.snap); got != c.want {
				t.Errorf("nextPhase(%+v) = %s, want %s", c.snap, got, c.want)
			}
		})
	}
}

func TestIsGodCandle(t *testing.T) {
	cases := []struct {
		name           string
		from, to       float64
		wantOK         bool
	}{
		{"10x under cap qualifies", 5, 50, true},
		{"under 10x does not qualify", 5, 49.9, false},
		{"origin above cap disqualifies", 150, 2000, false},
		{"zero origin disqualifies", 0, 50, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := isGodCandle(c.from, c.to)
			if ok != c.wantOK {
				t.Errorf("isGodCandle(%v, %v) ok = %v, want %v", c.from, c.to, ok, c.wantOK)
			}
		})
	}
}

func TestOHLCIndexBucketing(t *testing.T) {
	cases := []struct {
		tick                   int
		index, start, end int
	}{
		{0, 0, 0, 4},
		{4, 0, 0, 4},
		{5, 1, 5, 9},
		{32, 6, 30, 34},
	}
	for _, c := range cases {
		idx, start, end := ohlcIndex(c.tick)
		if idx != c.index || start != c.start || end != c.end {
			t.Errorf("ohlcIndex(%d) = (%d,%d,%d), want (%d,%d,%d)", c.tick, idx, start, end, c.index, c.start, c.end)
		}
	}
}
