package tracker

import "errors"

// Phase 单个追踪槽位的生命周期阶段
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseBackfilling
	PhaseLive
)

func (p Phase) String() string {
	switch p {
	case PhaseBackfilling:
		return "backfilling"
	case PhaseLive:
		return "live"
	default:
		return "idle"
	}
}

// ErrNoHistory means the backfill grid came back empty; the instrument
// cannot be started. Surfaced to the operator, who should check the
// symbol spelling.
var ErrNoHistory = errors.New("no historical data for symbol (check the symbol spelling)")

// ErrBadSlot 槽位序号越界
var ErrBadSlot = errors.New("slot index out of range")

// SlotStatus is a read-only view of one tracking slot.
type SlotStatus struct {
	Slot   int
	Symbol string
	Phase  Phase
	Points int
}
