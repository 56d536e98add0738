package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/OwlBawl/luxpower-ha-modbus/internal/adapter/actor"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/config"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/actor"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/server"
	"github.com/OwlBawl/luxpower-ha-modbus/internal/util/actorutil"
	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus actor provider
	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => LUXBRIDGE_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("LUXBRIDGE_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("luxbridge")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	clientCfg := lxpmodbus.ClientConfig{
		DongleSerial:      cfg.Inverter.DongleSerial,
		InverterSerial:    cfg.Inverter.InverterSerial,
		SlaveID:           uint8(cfg.Inverter.SlaveID),
		RegisterBlockSize: cfg.Inverter.RegisterBlockSize,
		ConnectionRetries: cfg.Inverter.ConnectionRetries,
		ReadOnly:          cfg.Inverter.ReadOnly,
	}

	var client *lxpmodbus.Client
	var err error
	switch cfg.Inverter.Transport {
	case config.TransportRTU:
		client, err = lxpmodbus.NewRTUClient(lxpmodbus.SerialConfig{
			Device:   cfg.Inverter.SerialDevice,
			BaudRate: cfg.Inverter.BaudRate,
			DataBits: cfg.Inverter.DataBits,
			StopBits: cfg.Inverter.StopBits,
			Parity:   cfg.Inverter.Parity,
		}, clientCfg, logger)
	default:
		client, err = lxpmodbus.NewTCPClient(cfg.Inverter.Host, cfg.Inverter.Port, clientCfg, logger)
	}
	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(client, cfg.Inverter, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "luxbridge")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_seconds", 60)
	viper.SetDefault("inverter.transport", "tcp")
	viper.SetDefault("inverter.port", 8000)
	viper.SetDefault("inverter.register_block_size", 125)
	viper.SetDefault("inverter.connection_retries", 3)
	viper.SetDefault("inverter.rated_power_watt", 5000)
	viper.SetDefault("inverter.baud_rate", 19200)
	viper.SetDefault("inverter.data_bits", 8)
	viper.SetDefault("inverter.stop_bits", 1)
	viper.SetDefault("inverter.parity", "N")
	viper.SetDefault("inverter.slave_id", 1)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
