package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validTCPConfig() Config {
	return Config{
		Inverter: InverterConfig{
			Transport:         TransportTCP,
			Host:              "192.168.1.50",
			Port:              8000,
			DongleSerial:      "BA12345678",
			InverterSerial:    "CD12345678",
			RegisterBlockSize: 125,
			ConnectionRetries: 3,
			RatedPowerWatt:    5000,
		},
		MQTT: MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "luxbridge",
			HADiscoveryTopic: "homeassistant",
		},
		Monitor: MonitorConfig{PollIntervalSeconds: 60},
		Port:    8080,
	}
}

func validRTUConfig() Config {
	cfg := validTCPConfig()
	cfg.Inverter.Transport = TransportRTU
	cfg.Inverter.SerialDevice = "/dev/ttyUSB0"
	cfg.Inverter.BaudRate = 19200
	cfg.Inverter.DataBits = 8
	cfg.Inverter.StopBits = 1
	cfg.Inverter.Parity = "N"
	cfg.Inverter.SlaveID = 1
	return cfg
}

func TestValidateTCP(t *testing.T) {
	cfg := validTCPConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRTU(t *testing.T) {
	cfg := validRTUConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRTULineParameters(t *testing.T) {
	cfg := validRTUConfig()
	cfg.Inverter.BaudRate = 14400
	assert.ErrorContains(t, cfg.Validate(), "baud_rate")

	cfg = validRTUConfig()
	cfg.Inverter.Parity = "X"
	assert.ErrorContains(t, cfg.Validate(), "parity")

	// empty parity is not a valid default at this layer, the viper
	// default supplies "N"
	cfg = validRTUConfig()
	cfg.Inverter.Parity = ""
	assert.ErrorContains(t, cfg.Validate(), "parity")

	cfg = validRTUConfig()
	cfg.Inverter.DataBits = 9
	assert.ErrorContains(t, cfg.Validate(), "data_bits")

	cfg = validRTUConfig()
	cfg.Inverter.StopBits = 3
	assert.ErrorContains(t, cfg.Validate(), "stop_bits")

	for _, baud := range []int{9600, 19200, 38400, 57600, 115200} {
		cfg = validRTUConfig()
		cfg.Inverter.BaudRate = baud
		assert.NoError(t, cfg.Validate(), "baud %d", baud)
	}
}

func TestValidateBadTransport(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Inverter.Transport = "tcp2"
	assert.Error(t, cfg.Validate())
}

func TestValidateBadSerials(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Inverter.DongleSerial = "SHORT"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "dongle_serial")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Inverter.Host = ""
	cfg.Inverter.ConnectionRetries = 0
	cfg.Monitor.PollIntervalSeconds = 0
	err := cfg.Validate()
	assert.ErrorContains(t, err, "inverter.host")
	assert.ErrorContains(t, err, "connection_retries")
	assert.ErrorContains(t, err, "poll_interval_seconds")
}

func TestValidateNormalizesTopics(t *testing.T) {
	cfg := validTCPConfig()
	cfg.MQTT.BaseTopic = "LuxBridge"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "luxbridge", cfg.MQTT.BaseTopic)
}

func TestValidateRejectsBadBlockSize(t *testing.T) {
	cfg := validTCPConfig()
	cfg.Inverter.RegisterBlockSize = 100
	assert.ErrorContains(t, cfg.Validate(), "register_block_size")
}

func TestApplyUpdate(t *testing.T) {
	cfg := validTCPConfig()
	interval := uint32(30)
	readOnly := true
	next, err := cfg.ApplyUpdate(ConfigUpdate{
		PollIntervalSeconds: &interval,
		ReadOnly:            &readOnly,
	})
	assert.NoError(t, err)
	assert.Equal(t, uint32(30), next.Monitor.PollIntervalSeconds)
	assert.True(t, next.Inverter.ReadOnly)
	// original untouched
	assert.Equal(t, uint32(60), cfg.Monitor.PollIntervalSeconds)
	assert.False(t, cfg.Inverter.ReadOnly)
}

func TestApplyUpdateRejectsInvalid(t *testing.T) {
	cfg := validTCPConfig()
	retries := 99
	next, err := cfg.ApplyUpdate(ConfigUpdate{ConnectionRetries: &retries})
	assert.Error(t, err)
	assert.Equal(t, cfg, next, "failed update must return the original")
}

func TestCheckMQTTTopic(t *testing.T) {
	topic, err := CheckMQTTTopic("Lux_Bridge9")
	assert.NoError(t, err)
	assert.Equal(t, "lux_bridge9", topic)

	_, err = CheckMQTTTopic("bad/topic")
	assert.Error(t, err)
}
