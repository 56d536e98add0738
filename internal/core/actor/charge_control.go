package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/config"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/port"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/events"
	. "github.com/OwlBawl/luxpower-ha-modbus/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

const (
	DEFAULT_CHARGE_RATE_PERCENT = 100
	DEFAULT_CUTOFF_SOC          = 100
)

// ChargeControlActor translates charge commands into holding register writes
// and mirrors the resulting state back to the event stream. Writes on the
// inverter persist until changed, there is no revert loop to feed.
type ChargeControlActor struct {
	ActorWithStates
	stash       *Stash
	modbusActor *actor.PID
	config      *config.Config
	eventStream *eventstream.EventStream
	logic       port.ChargeControlLogic

	acChargeEnabled bool
	chargeRate      uint8
	cutoffSoC       uint8

	logger *zap.Logger
}

func NewChargeControlActor(config *config.Config, modbusActor *actor.PID, eventStream *eventstream.EventStream,
	logic port.ChargeControlLogic, logger *zap.Logger) *ChargeControlActor {
	act := &ChargeControlActor{
		config:      config,
		modbusActor: modbusActor,
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_CHARGE_CONTROL, logger),
		eventStream: eventStream,
		logic:       logic,
		chargeRate:  DEFAULT_CHARGE_RATE_PERCENT,
		cutoffSoC:   DEFAULT_CUTOFF_SOC,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CCStartingState{
		actor: act,
	})
	return act
}

func (state *ChargeControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type CCStartingState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCStartingState) Name() string {
	return "starting"
}

func (state CCStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("charge_control@starting started")

		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.modbusActor, domain.GetInverterInfoRequest{}, 15*time.Second), func(err error) any {
			return domain.GetInverterInfoResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
		state.actor.Become(CCWaitingInfoState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("charge_control@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Waiting info state

type CCWaitingInfoState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCWaitingInfoState) Name() string {
	return "waitingInfo"
}

func (state CCWaitingInfoState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetInverterInfoResponse:
		if msg.HasResponseError() {
			state.actor.logger.Error("charge_control@waitingInfo GetInverterInfoResponse error", zap.Error(msg.GetResponseError()))
			panic(msg.GetResponseError())
		}
		state.actor.logger.Debug("charge_control@waitingInfo GetInverterInfoResponse")
		if msg.Info.RatedPowerWatt > 0 {
			state.actor.logic.SetRatedPowerWatt(msg.Info.RatedPowerWatt)
		}
		state.actor.Become(CCIdleState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	default:
		state.actor.logger.Debug("charge_control@waitingInfo: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state

type CCIdleState struct {
	ActorState
	actor *ChargeControlActor
}

func (state CCIdleState) Name() string {
	return "idle"
}

func (state CCIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("charge_control@idle: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CHARGE_CONTROL,
			Healthy: true,
			State:   state.Name(),
		})
	case domain.ChargeControlRequest:
		if state.actor.config.Inverter.ReadOnly {
			state.actor.logger.Warn("charge_control@idle: command refused, bridge is read only",
				zap.String("command", msg.ChargeControlCommand()))
			state.actor.respondRefused(ctx, msg)
			return
		}
		switch cmd := msg.(type) {
		case domain.ChargeControlACChargeRequest:
			state.actor.logger.Sugar().Debugf("charge_control@idle: cmd acCharge %t", cmd.Enable)
			if cmd.Enable == state.actor.acChargeEnabled {
				state.actor.respondTo(ctx, domain.ChargeControlACChargeResponse{ChargeControlResponseMixIn: okResponse(), Changed: false})
				return
			}
			writes := state.actor.logic.ACChargeWrites(cmd.Enable)
			state.actor.applyWrites(ctx, writes, func(ctx actor.Context, err error, replyTo *actor.PID) {
				if err != nil {
					state.actor.sendResponse(ctx, replyTo, domain.ChargeControlACChargeResponse{
						ChargeControlResponseMixIn: failedResponse(err),
					})
					return
				}
				state.actor.acChargeEnabled = cmd.Enable
				state.actor.eventStream.Publish(events.ACChargeSwitchUpdateEvent(cmd.Enable))
				state.actor.sendResponse(ctx, replyTo, domain.ChargeControlACChargeResponse{ChargeControlResponseMixIn: okResponse(), Changed: true})
			})
		case domain.ChargeControlSetChargeRateRequest:
			state.actor.logger.Sugar().Debugf("charge_control@idle: cmd setChargeRate %d", cmd.RatePercent)
			writes, err := state.actor.logic.ChargeRateWrites(cmd.RatePercent)
			if err != nil {
				state.actor.respondTo(ctx, domain.ChargeControlSetChargeRateResponse{
					ChargeControlResponseMixIn: failedResponse(err),
				})
				return
			}
			state.actor.applyWrites(ctx, writes, func(ctx actor.Context, err error, replyTo *actor.PID) {
				if err != nil {
					state.actor.sendResponse(ctx, replyTo, domain.ChargeControlSetChargeRateResponse{
						ChargeControlResponseMixIn: failedResponse(err),
					})
					return
				}
				state.actor.chargeRate = cmd.RatePercent
				state.actor.eventStream.Publish(events.ACChargeRateUpdateEvent(cmd.RatePercent))
				state.actor.sendResponse(ctx, replyTo, domain.ChargeControlSetChargeRateResponse{ChargeControlResponseMixIn: okResponse(), RatePercent: cmd.RatePercent})
			})
		case domain.ChargeControlSetCutoffSoCRequest:
			state.actor.logger.Sugar().Debugf("charge_control@idle: cmd setCutoffSoC %d", cmd.CutoffSoC)
			writes, err := state.actor.logic.CutoffSoCWrites(cmd.CutoffSoC)
			if err != nil {
				state.actor.respondTo(ctx, domain.ChargeControlSetCutoffSoCResponse{
					ChargeControlResponseMixIn: failedResponse(err),
				})
				return
			}
			state.actor.applyWrites(ctx, writes, func(ctx actor.Context, err error, replyTo *actor.PID) {
				if err != nil {
					state.actor.sendResponse(ctx, replyTo, domain.ChargeControlSetCutoffSoCResponse{
						ChargeControlResponseMixIn: failedResponse(err),
					})
					return
				}
				state.actor.cutoffSoC = cmd.CutoffSoC
				state.actor.eventStream.Publish(events.ACChargeCutoffSoCUpdateEvent(cmd.CutoffSoC))
				state.actor.sendResponse(ctx, replyTo, domain.ChargeControlSetCutoffSoCResponse{ChargeControlResponseMixIn: okResponse(), CutoffSoC: cmd.CutoffSoC})
			})
		}
	default:
		state.actor.logger.Debug("charge_control@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state CCIdleState) OnEnter(ctx actor.Context) CCIdleState {
	state.actor.publishControlState()
	return state
}

// Await write response state

type ccWriteDone func(ctx actor.Context, err error, replyTo *actor.PID)

type CCAwaitWriteResponseState struct {
	ActorState
	actor   *ChargeControlActor
	pending []domain.RegisterWrite
	replyTo *actor.PID
	done    ccWriteDone
}

func (state CCAwaitWriteResponseState) Name() string {
	return "awaitWriteReceive"
}

func (state CCAwaitWriteResponseState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.WriteRegisterResponse:
		ctx.SetReceiveTimeout(0)
		if msg.HasResponseError() {
			state.actor.logger.Error("charge_control@awaitWriteReceive: WriteRegisterResponse error", zap.Error(msg.GetResponseError()))
			state.finish(ctx, msg.GetResponseError())
			return
		}
		state.actor.logger.Debug("charge_control@awaitWriteReceive: WriteRegisterResponse",
			zap.Uint16("address", msg.Address), zap.Uint16("value", msg.Value))
		if len(state.pending) > 0 {
			next := state.pending[0]
			state.pending = state.pending[1:]
			state.actor.Become(state.sendWrite(ctx, next))
			return
		}
		state.finish(ctx, nil)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Debug("charge_control@awaitWriteReceive: ReceiveTimeout")
		state.finish(ctx, errors.New("receive timeout"))
	default:
		state.actor.logger.Debug("charge_control@awaitWriteReceive: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state CCAwaitWriteResponseState) finish(ctx actor.Context, err error) {
	state.actor.Become(CCIdleState{
		actor: state.actor,
	})
	state.done(ctx, err, state.replyTo)
	state.actor.stash.UnstashAll(ctx)
}

func (state CCAwaitWriteResponseState) sendWrite(ctx actor.Context, write domain.RegisterWrite) CCAwaitWriteResponseState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.modbusActor,
		domain.WriteRegisterRequest{Address: write.Address, Value: write.Value}, 20*time.Second),
		func(err error) any {
			return domain.WriteRegisterResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	ctx.SetReceiveTimeout(25 * time.Second)
	return state
}

// Other actor function helpers

func (state *ChargeControlActor) applyWrites(ctx actor.Context, writes []domain.RegisterWrite, done ccWriteDone) {
	if len(writes) == 0 {
		done(ctx, nil, ctx.Sender())
		return
	}
	await := CCAwaitWriteResponseState{
		actor:   state,
		pending: writes[1:],
		replyTo: ctx.Sender(),
		done:    done,
	}
	state.Become(await.sendWrite(ctx, writes[0]))
}

func (state *ChargeControlActor) respondRefused(ctx actor.Context, msg domain.ChargeControlRequest) {
	err := errors.New("charge control disabled: bridge is read only")
	switch msg.(type) {
	case domain.ChargeControlACChargeRequest:
		state.respondTo(ctx, domain.ChargeControlACChargeResponse{ChargeControlResponseMixIn: failedResponse(err)})
	case domain.ChargeControlSetChargeRateRequest:
		state.respondTo(ctx, domain.ChargeControlSetChargeRateResponse{ChargeControlResponseMixIn: failedResponse(err)})
	case domain.ChargeControlSetCutoffSoCRequest:
		state.respondTo(ctx, domain.ChargeControlSetCutoffSoCResponse{ChargeControlResponseMixIn: failedResponse(err)})
	}
}

func (state *ChargeControlActor) respondTo(ctx actor.Context, response any) {
	state.sendResponse(ctx, ctx.Sender(), response)
}

func (state *ChargeControlActor) sendResponse(ctx actor.Context, replyTo *actor.PID, response any) {
	if replyTo != nil {
		ctx.Send(replyTo, response)
	}
}

// publishControlState mirrors the assumed control state so retained MQTT
// topics match after a restart.
func (state *ChargeControlActor) publishControlState() {
	state.eventStream.Publish(events.ACChargeSwitchUpdateEvent(state.acChargeEnabled))
	state.eventStream.Publish(events.ACChargeRateUpdateEvent(state.chargeRate))
	state.eventStream.Publish(events.ACChargeCutoffSoCUpdateEvent(state.cutoffSoC))
}

func okResponse() domain.ChargeControlResponseMixIn {
	return failedResponse(nil)
}

func failedResponse(err error) domain.ChargeControlResponseMixIn {
	return domain.ChargeControlResponseMixIn{
		ActorResponse: domain.ActorResponseMixIn{
			ResponseError: err,
		},
	}
}
