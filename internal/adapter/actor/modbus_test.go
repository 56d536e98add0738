package actor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/config"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/util/actorutil"
	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeInverterReader struct {
	regs     lxpmodbus.RegisterSnapshot
	readOnly bool
	writeErr error
	writes   []domain.RegisterWrite
}

func newFakeInverterReader() *fakeInverterReader {
	return &fakeInverterReader{regs: lxpmodbus.RegisterSnapshot{}}
}

func (f *fakeInverterReader) Connect(_ context.Context) error { return nil }

func (f *fakeInverterReader) Close() error { return nil }

func (f *fakeInverterReader) ReadRegisters(_ context.Context, start, count uint16) (lxpmodbus.RegisterSnapshot, error) {
	snap := lxpmodbus.RegisterSnapshot{}
	for addr := start; addr < start+count; addr++ {
		snap[addr] = f.regs[addr]
	}
	return snap, nil
}

func (f *fakeInverterReader) ReadAll(_ context.Context) (lxpmodbus.RegisterSnapshot, error) {
	return f.ReadRegisters(nil, 0, lxpmodbus.TotalRegisters)
}

func (f *fakeInverterReader) WriteRegister(_ context.Context, address, value uint16) error {
	if f.readOnly {
		return lxpmodbus.ErrReadOnly
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, domain.RegisterWrite{Address: address, Value: value})
	f.regs[address] = value
	return nil
}

func (f *fakeInverterReader) ProbeModel(_ context.Context) (string, error) {
	model, ok := lxpmodbus.DecodeModel(f.regs)
	if !ok {
		return "", errors.New("model fetch failed")
	}
	return model, nil
}

func (f *fakeInverterReader) ReadOnly() bool { return f.readOnly }

func testInverterConfig() config.InverterConfig {
	return config.InverterConfig{
		Transport:      config.TransportTCP,
		Host:           "10.0.0.10",
		Port:           8000,
		DongleSerial:   "BA12345678",
		InverterSerial: "CD12345678",
		RatedPowerWatt: 5000,
	}
}

func TestGetInverterInfoModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader := newFakeInverterReader()
	reader.regs[lxpmodbus.RegModelLow] = 0x0003

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, testInverterConfig(), logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetInverterInfoRequest{}
	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetInverterInfoResponse)

	assert.NoError(resp.GetResponseError())
	assert.Equal("LXP-5K", resp.Info.Model, "inverter model")
	assert.Equal("CD12345678", resp.Info.InverterSerial, "inverter serial")
	assert.Equal("BA12345678", resp.Info.DongleSerial, "dongle serial")
	assert.Equal(uint32(5000), resp.Info.RatedPowerWatt, "rated power")

	context.Stop(pid)

	as.Shutdown()
}

func TestGetTelemetryModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader := newFakeInverterReader()
	reader.regs[lxpmodbus.RegStatus] = 0x10
	reader.regs[lxpmodbus.RegPV1Power] = 1500
	reader.regs[lxpmodbus.RegPV2Power] = 700
	reader.regs[lxpmodbus.RegSOC] = 72 | 99<<8

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, testInverterConfig(), logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.GetTelemetryRequest{}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.GetTelemetryResponse)

	assert.NoError(resp.GetResponseError())
	assert.Equal(float64(2200), resp.Telemetry.PVPower, "pv power sum")
	assert.Equal(float64(72), resp.Telemetry.SOC, "battery soc")
	assert.Equal(float64(99), resp.Telemetry.SOH, "battery soh")

	context.Stop(pid)

	as.Shutdown()
}

func TestWriteRegisterModbusActor(t *testing.T) {

	assert := assert.New(t)

	reader := newFakeInverterReader()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, testInverterConfig(), logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.WriteRegisterRequest{Address: 64, Value: 1}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.WriteRegisterResponse)

	assert.NoError(resp.GetResponseError())
	assert.Equal(uint16(64), resp.Address)
	assert.Equal(uint16(1), resp.Value)
	assert.Equal(uint16(1), reader.regs[64], "register written")

	context.Stop(pid)

	as.Shutdown()
}

func TestWriteRegisterModbusActorReadOnly(t *testing.T) {

	assert := assert.New(t)

	reader := newFakeInverterReader()
	reader.readOnly = true

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewModbusActor(reader, testInverterConfig(), logger) })
	pid := context.Spawn(props)

	time.Sleep(1 * time.Second)

	msg := domain.WriteRegisterRequest{Address: 64, Value: 1}

	result, err := context.RequestFuture(pid, msg, 15*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.WriteRegisterResponse)

	assert.ErrorIs(resp.GetResponseError(), lxpmodbus.ErrReadOnly)

	context.Stop(pid)

	as.Shutdown()
}
