package service

import (
	"fmt"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/port"

	"go.uber.org/zap"
)

// Holding registers driving AC charge behavior. The power rate is a percent
// of the inverter's rated power, the SoC limit stops charging once reached.
const (
	HoldRegACChargeEnable    = 64
	HoldRegACChargePowerRate = 66
	HoldRegACChargeSoCLimit  = 67
)

type DefaultChargeControlLogic struct {
	ratedPowerWatt uint32
	Logger         *zap.Logger
}

func NewDefaultChargeControlLogic(ratedPowerWatt uint32, logger *zap.Logger) *DefaultChargeControlLogic {
	return &DefaultChargeControlLogic{
		ratedPowerWatt: ratedPowerWatt,
		Logger:         logger,
	}
}

func (l *DefaultChargeControlLogic) ACChargeWrites(enable bool) []domain.RegisterWrite {
	var value uint16
	if enable {
		value = 1
	}
	return []domain.RegisterWrite{
		{Address: HoldRegACChargeEnable, Value: value},
	}
}

func (l *DefaultChargeControlLogic) ChargeRateWrites(ratePercent uint8) ([]domain.RegisterWrite, error) {
	if ratePercent > 100 {
		return nil, fmt.Errorf("charge rate must be 0-100, got %d", ratePercent)
	}
	l.Logger.Sugar().Debugf("charge rate %d%% of %d W = %d W",
		ratePercent, l.ratedPowerWatt, uint32(ratePercent)*l.ratedPowerWatt/100)
	return []domain.RegisterWrite{
		{Address: HoldRegACChargePowerRate, Value: uint16(ratePercent)},
	}, nil
}

func (l *DefaultChargeControlLogic) CutoffSoCWrites(cutoffSoC uint8) ([]domain.RegisterWrite, error) {
	if cutoffSoC > 100 {
		return nil, fmt.Errorf("cutoff SoC must be 0-100, got %d", cutoffSoC)
	}
	return []domain.RegisterWrite{
		{Address: HoldRegACChargeSoCLimit, Value: uint16(cutoffSoC)},
	}, nil
}

func (l *DefaultChargeControlLogic) RatedPowerWatt() uint32 {
	return l.ratedPowerWatt
}

func (l *DefaultChargeControlLogic) SetRatedPowerWatt(powerWatt uint32) {
	l.ratedPowerWatt = powerWatt
}

// ensure interface compliance
var _ port.ChargeControlLogic = (*DefaultChargeControlLogic)(nil)
