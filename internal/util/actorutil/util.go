package actorutil

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/events"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/mqtt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/lmittmann/tint"
	"go.uber.org/zap"
)

func PipeToSelfWithRecover(ctx actor.Context, future *actor.Future, mapFn func(error) any) {
	ctx.ReenterAfter(future, func(msg any, err error) {
		if err != nil {
			ctx.Send(ctx.Self(), mapFn(err))
			return
		}
		ctx.Send(ctx.Self(), msg)
	})
}

func NewActorSystemWithZapLogger(logger *zap.Logger) *actor.ActorSystem {
	stdOutLogger := zap.NewStdLog(logger)

	var slogLevel slog.Level = slog.LevelInfo

	switch logger.Level() {
	case zap.DebugLevel:
		slogLevel = slog.LevelDebug
	case zap.InfoLevel:
		slogLevel = slog.LevelInfo
	case zap.WarnLevel:
		slogLevel = slog.LevelWarn
	case zap.ErrorLevel:
		slogLevel = slog.LevelError
	case zap.PanicLevel:
		slogLevel = slog.LevelError
	}

	return actor.NewActorSystem(actor.WithLoggerFactory(func(system *actor.ActorSystem) *slog.Logger {
		return slog.New(tint.NewHandler(stdOutLogger.Writer(), &tint.Options{
			Level:      slogLevel,
			TimeFormat: time.DateTime,
		}))
	}))
}

func ActorLogger(actorName string, logger *zap.Logger) *zap.Logger {
	return logger.With(zap.String("actor", actorName))
}

// ParsedMQTTCommandToCommand maps an inbound MQTT command topic to the actor
// request it stands for. Unknown device ids map to nil without error.
func ParsedMQTTCommandToCommand(cmd mqtt.ParsedMQTTCommand) (domain.ActorRequest, error) {
	switch cmd.DeviceId {
	case events.SWITCH_ID_AC_CHARGE:
		return domain.ChargeControlACChargeRequest{
			Enable: cmd.Payload == "on",
		}, nil
	case events.INPUT_NUMBER_ID_AC_CHARGE_RATE:
		value, err := parsePercent(cmd.Payload)
		if err != nil {
			return nil, err
		}
		return domain.ChargeControlSetChargeRateRequest{
			RatePercent: value,
		}, nil
	case events.INPUT_NUMBER_ID_AC_CHARGE_SOC_STOP:
		value, err := parsePercent(cmd.Payload)
		if err != nil {
			return nil, err
		}
		return domain.ChargeControlSetCutoffSoCRequest{
			CutoffSoC: value,
		}, nil
	}
	return nil, nil
}

func parsePercent(payload string) (uint8, error) {
	value, err := strconv.ParseFloat(payload, 64)
	if err != nil {
		return 0, err
	}
	if value < 0 || value > 100 {
		return 0, strconv.ErrRange
	}
	return uint8(value), nil
}
