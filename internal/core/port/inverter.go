package port

import (
	"context"

	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"
)

// InverterReader is the slice of the register client the actors depend on.
type InverterReader interface {
	Connect(ctx context.Context) error
	Close() error
	ReadRegisters(ctx context.Context, start, count uint16) (lxpmodbus.RegisterSnapshot, error)
	ReadAll(ctx context.Context) (lxpmodbus.RegisterSnapshot, error)
	WriteRegister(ctx context.Context, address, value uint16) error
	ProbeModel(ctx context.Context) (string, error)
	ReadOnly() bool
}

// ensure interface compliance
var _ InverterReader = (*lxpmodbus.Client)(nil)
