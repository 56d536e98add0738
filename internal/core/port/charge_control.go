package port

import (
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
)

// ChargeControlLogic translates charge commands into the holding-register
// writes that realize them.
type ChargeControlLogic interface {
	ACChargeWrites(enable bool) []domain.RegisterWrite
	ChargeRateWrites(ratePercent uint8) ([]domain.RegisterWrite, error)
	CutoffSoCWrites(cutoffSoC uint8) ([]domain.RegisterWrite, error)
	SetRatedPowerWatt(powerWatt uint32)
	RatedPowerWatt() uint32
}
