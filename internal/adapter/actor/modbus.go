package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/config"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/port"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/util/actorutil"
	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/reugn/go-quartz/logger"
	"go.uber.org/zap"
)

const (
	MODBUS_ACTOR_ID = "modbus"

	infoTimeout      = 10 * time.Second
	telemetryTimeout = 60 * time.Second
	writeTimeout     = 15 * time.Second
)

type ModbusActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	inverter port.InverterReader
	invCfg   config.InverterConfig
	info     *domain.InverterInfo
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewModbusActor(inverter port.InverterReader, invCfg config.InverterConfig, logger *zap.Logger) *ModbusActor {
	act := &ModbusActor{
		inverter: inverter,
		invCfg:   invCfg,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger("modbus", logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ModbusActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ModbusActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("modbus@starting started")
		connCtx, cancel := context.WithTimeout(context.Background(), infoTimeout)
		defer cancel()
		if err := state.inverter.Connect(connCtx); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		_ = state.inverter.Close()
	default:
		state.logger.Debug("modbus@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ModbusActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("modbus@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      MODBUS_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetInverterInfoRequest:
		state.logger.Debug("modbus@default: GetInverterInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getInverterInfo),
			mapTaskResult[domain.GetInverterInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetInverterInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(infoTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.GetTelemetryRequest:
		state.logger.Debug("modbus@default: GetTelemetryRequest")
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getTelemetry),
			mapTaskResult[domain.GetTelemetryResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetTelemetryResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(telemetryTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case domain.WriteRegisterRequest:
		state.logger.Debug("modbus@default: WriteRegisterRequest",
			zap.Uint16("address", msg.Address), zap.Uint16("value", msg.Value))
		sender := ctx.Sender()
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.WriteRegisterResponse {
			a := state.writeRegister(msg.Address, msg.Value)
			return &a
		}),
			mapTaskResult[domain.WriteRegisterResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.WriteRegisterResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(writeTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingModbus)
	case *actor.Stopping:
		_ = state.inverter.Close()
	default:
		state.logger.Debug("modbus@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ModbusActor) WaitingModbus(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("modbus@WaitingModbus backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		_ = state.inverter.Close()
	default:
		state.logger.Debug("modbus@WaitingModbus stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *ModbusActor) getInverterInfo() (*domain.GetInverterInfoResponse, error) {
	if a.info != nil {
		return &domain.GetInverterInfoResponse{Info: a.info}, nil
	}
	taskCtx, cancel := context.WithTimeout(context.Background(), infoTimeout)
	defer cancel()
	model, err := a.inverter.ProbeModel(taskCtx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	a.info = &domain.InverterInfo{
		Model:          model,
		InverterSerial: a.invCfg.InverterSerial,
		DongleSerial:   a.invCfg.DongleSerial,
		RatedPowerWatt: a.invCfg.RatedPowerWatt,
	}
	return &domain.GetInverterInfoResponse{Info: a.info}, nil
}

func (a *ModbusActor) getTelemetry() (*domain.GetTelemetryResponse, error) {
	taskCtx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
	defer cancel()
	regs, err := a.inverter.ReadAll(taskCtx)
	if err != nil {
		logger.Error(err)
		return nil, err
	}
	decoded := lxpmodbus.Decode(regs)
	return &domain.GetTelemetryResponse{
		Telemetry: &decoded,
		Registers: regs,
	}, nil
}

func (a *ModbusActor) writeRegister(address, value uint16) domain.WriteRegisterResponse {
	taskCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := a.inverter.WriteRegister(taskCtx, address, value); err != nil {
		logger.Error(err)
		return domain.WriteRegisterResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
			Address: address,
			Value:   value,
		}
	}
	return domain.WriteRegisterResponse{
		Address: address,
		Value:   value,
	}
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
