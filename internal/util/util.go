package util

import (
	"github.com/OwlBawl/luxpower-ha-modbus/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverter: config.InverterConfig{
			Transport:         config.TransportTCP,
			Host:              "-.-.-.-",
			Port:              8000,
			DongleSerial:      "BA12345678",
			InverterSerial:    "CD12345678",
			RegisterBlockSize: 125,
			ConnectionRetries: 3,
			RatedPowerWatt:    5000,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "luxbridge",
		},
		Monitor: config.MonitorConfig{
			PollIntervalSeconds: 60,
		},
		Port: 8080,
	}
}
