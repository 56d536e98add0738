package actor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	adactor "github.com/OwlBawl/luxpower-ha-modbus/internal/adapter/actor"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/service"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/util"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/util/actorutil"
	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// stubReader fakes the register client for actor tests.
type stubReader struct {
	mu       sync.Mutex
	regs     lxpmodbus.RegisterSnapshot
	readOnly bool
}

func newStubReader() *stubReader {
	return &stubReader{regs: lxpmodbus.RegisterSnapshot{
		lxpmodbus.RegModelLow: 0x0004,
	}}
}

func (s *stubReader) Connect(_ context.Context) error { return nil }

func (s *stubReader) Close() error { return nil }

func (s *stubReader) ReadRegisters(_ context.Context, start, count uint16) (lxpmodbus.RegisterSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := lxpmodbus.RegisterSnapshot{}
	for addr := start; addr < start+count; addr++ {
		snap[addr] = s.regs[addr]
	}
	return snap, nil
}

func (s *stubReader) ReadAll(ctx context.Context) (lxpmodbus.RegisterSnapshot, error) {
	return s.ReadRegisters(ctx, 0, lxpmodbus.TotalRegisters)
}

func (s *stubReader) WriteRegister(_ context.Context, address, value uint16) error {
	if s.readOnly {
		return lxpmodbus.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[address] = value
	return nil
}

func (s *stubReader) ProbeModel(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	model, ok := lxpmodbus.DecodeModel(s.regs)
	if !ok {
		return "", errors.New("model fetch failed")
	}
	return model, nil
}

func (s *stubReader) ReadOnly() bool { return s.readOnly }

func (s *stubReader) register(addr uint16) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

func TestChargeControlFlow(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	cfg := util.LoadTestConfig()
	reader := newStubReader()

	// modbus actor
	modbusProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewModbusActor(reader, cfg.Inverter, logger)
	})
	modbusActorPID := context.Spawn(modbusProps)

	es := eventstream.EventStream{}
	var muEvents sync.Mutex
	var published []any
	sub := es.Subscribe(func(evt interface{}) {
		muEvents.Lock()
		published = append(published, evt)
		muEvents.Unlock()
	})
	defer es.Unsubscribe(sub)

	// chargeControl actor
	logic := service.NewDefaultChargeControlLogic(cfg.Inverter.RatedPowerWatt, logger)
	ccProps := actor.PropsFromProducer(func() actor.Actor {
		return NewChargeControlActor(&cfg, modbusActorPID, &es, logic, logger)
	})
	ccActorPID := context.Spawn(ccProps)

	time.Sleep(2 * time.Second)

	hcr, err := healthCheck(context, ccActorPID)
	if err != nil {
		t.Error(err)
		return
	}
	assert.True(t, hcr.Healthy, "actor should be healthy")
	assert.Equal(t, "idle", hcr.State, "actor state should be idle")

	// enable AC charge
	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlACChargeRequest{Enable: true}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	acResp, ok := res.(domain.ChargeControlACChargeResponse)
	assert.True(t, ok)
	assert.False(t, acResp.HasResponseError())
	assert.True(t, acResp.Changed, "switch should change")
	assert.Equal(t, uint16(1), reader.register(service.HoldRegACChargeEnable), "enable register written")

	// enabling again is a no-op
	res, err = context.RequestFuture(ccActorPID, domain.ChargeControlACChargeRequest{Enable: true}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	acResp, ok = res.(domain.ChargeControlACChargeResponse)
	assert.True(t, ok)
	assert.False(t, acResp.Changed, "switch should not change")

	// set charge rate
	res, err = context.RequestFuture(ccActorPID, domain.ChargeControlSetChargeRateRequest{RatePercent: 50}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	rateResp, ok := res.(domain.ChargeControlSetChargeRateResponse)
	assert.True(t, ok)
	assert.False(t, rateResp.HasResponseError())
	assert.Equal(t, uint8(50), rateResp.RatePercent)
	assert.Equal(t, uint16(50), reader.register(service.HoldRegACChargePowerRate), "rate register written")

	// set cutoff SoC
	res, err = context.RequestFuture(ccActorPID, domain.ChargeControlSetCutoffSoCRequest{CutoffSoC: 90}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	socResp, ok := res.(domain.ChargeControlSetCutoffSoCResponse)
	assert.True(t, ok)
	assert.False(t, socResp.HasResponseError())
	assert.Equal(t, uint16(90), reader.register(service.HoldRegACChargeSoCLimit), "cutoff register written")

	// out of range rate fails without touching the inverter
	res, err = context.RequestFuture(ccActorPID, domain.ChargeControlSetChargeRateRequest{RatePercent: 150}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	rateResp, ok = res.(domain.ChargeControlSetChargeRateResponse)
	assert.True(t, ok)
	assert.True(t, rateResp.HasResponseError())
	assert.Equal(t, uint16(50), reader.register(service.HoldRegACChargePowerRate), "rate register untouched")

	muEvents.Lock()
	assert.NotEmpty(t, published, "state should be mirrored to the event stream")
	muEvents.Unlock()

	context.Stop(ccActorPID)
	context.Stop(modbusActorPID)

	as.Shutdown()
}

func TestChargeControlRefusedWhenReadOnly(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Inverter.ReadOnly = true
	reader := newStubReader()
	reader.readOnly = true

	modbusProps := actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewModbusActor(reader, cfg.Inverter, logger)
	})
	modbusActorPID := context.Spawn(modbusProps)

	logic := service.NewDefaultChargeControlLogic(cfg.Inverter.RatedPowerWatt, logger)
	ccProps := actor.PropsFromProducer(func() actor.Actor {
		return NewChargeControlActor(&cfg, modbusActorPID, &eventstream.EventStream{}, logic, logger)
	})
	ccActorPID := context.Spawn(ccProps)

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(ccActorPID, domain.ChargeControlACChargeRequest{Enable: true}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	acResp, ok := res.(domain.ChargeControlACChargeResponse)
	assert.True(t, ok)
	assert.True(t, acResp.HasResponseError(), "read only bridge must refuse commands")
	assert.Equal(t, uint16(0), reader.register(service.HoldRegACChargeEnable), "register untouched")

	context.Stop(ccActorPID)
	context.Stop(modbusActorPID)

	as.Shutdown()
}
