package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

	"go.uber.org/zap/zapcore"
)

const (
	TransportTCP = "tcp"
	TransportRTU = "rtu"

	MinPollIntervalTCPSeconds = 2
	MinPollIntervalRTUSeconds = 1
	MaxPollIntervalSeconds    = 600

	MinRatedPowerWatt = 1000
	MaxRatedPowerWatt = 100000
)

type Config struct {
	LogLevel zapcore.Level
	Inverter InverterConfig `mapstructure:"inverter"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Port     uint           `mapstructure:"port"`
	HttpLog  bool           `mapstructure:"http_log"`
}

type InverterConfig struct {
	Transport string `mapstructure:"transport"`

	// tcp transport (WiFi dongle)
	Host           string `mapstructure:"host"`
	Port           uint16 `mapstructure:"port"`
	DongleSerial   string `mapstructure:"dongle_serial"`
	InverterSerial string `mapstructure:"inverter_serial"`

	// rtu transport (RS-485)
	SerialDevice string `mapstructure:"serial_device"`
	BaudRate     int    `mapstructure:"baud_rate"`
	DataBits     int    `mapstructure:"data_bits"`
	StopBits     int    `mapstructure:"stop_bits"`
	Parity       string `mapstructure:"parity"`
	SlaveID      uint   `mapstructure:"slave_id"`

	RegisterBlockSize uint16 `mapstructure:"register_block_size"`
	ConnectionRetries int    `mapstructure:"connection_retries"`
	ReadOnly          bool   `mapstructure:"read_only"`
	RatedPowerWatt    uint32 `mapstructure:"rated_power_watt"`
}

type MonitorConfig struct {
	PollIntervalSeconds uint32 `mapstructure:"poll_interval_seconds"`
}

type MQTTConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// Validate reports every configuration problem at once instead of stopping
// at the first one.
func (c *Config) Validate() error {
	var errs []error

	switch c.Inverter.Transport {
	case TransportTCP:
		if c.Inverter.Host == "" {
			errs = append(errs, errors.New("inverter.host must not be empty"))
		}
		if len(c.Inverter.DongleSerial) != lxpmodbus.SerialLength {
			errs = append(errs, fmt.Errorf("inverter.dongle_serial must be %d characters", lxpmodbus.SerialLength))
		}
		if len(c.Inverter.InverterSerial) != lxpmodbus.SerialLength {
			errs = append(errs, fmt.Errorf("inverter.inverter_serial must be %d characters", lxpmodbus.SerialLength))
		}
		if c.Monitor.PollIntervalSeconds < MinPollIntervalTCPSeconds {
			errs = append(errs, fmt.Errorf("monitor.poll_interval_seconds must be >= %d for tcp", MinPollIntervalTCPSeconds))
		}
	case TransportRTU:
		if c.Inverter.SerialDevice == "" {
			errs = append(errs, errors.New("inverter.serial_device must not be empty"))
		}
		if c.Inverter.SlaveID < lxpmodbus.SlaveIDMin || c.Inverter.SlaveID > lxpmodbus.SlaveIDMax {
			errs = append(errs, fmt.Errorf("inverter.slave_id must be %d-%d", lxpmodbus.SlaveIDMin, lxpmodbus.SlaveIDMax))
		}
		if !slices.Contains(lxpmodbus.SupportedBaudRates, c.Inverter.BaudRate) {
			errs = append(errs, fmt.Errorf("inverter.baud_rate must be one of %v", lxpmodbus.SupportedBaudRates))
		}
		switch c.Inverter.Parity {
		case "N", "E", "O":
		default:
			errs = append(errs, fmt.Errorf("inverter.parity must be N, E or O, got %q", c.Inverter.Parity))
		}
		if c.Inverter.DataBits != 7 && c.Inverter.DataBits != 8 {
			errs = append(errs, fmt.Errorf("inverter.data_bits must be 7 or 8, got %d", c.Inverter.DataBits))
		}
		if c.Inverter.StopBits != 1 && c.Inverter.StopBits != 2 {
			errs = append(errs, fmt.Errorf("inverter.stop_bits must be 1 or 2, got %d", c.Inverter.StopBits))
		}
		if c.Monitor.PollIntervalSeconds < MinPollIntervalRTUSeconds {
			errs = append(errs, fmt.Errorf("monitor.poll_interval_seconds must be >= %d for rtu", MinPollIntervalRTUSeconds))
		}
	default:
		errs = append(errs, fmt.Errorf("inverter.transport must be %q or %q", TransportTCP, TransportRTU))
	}

	if c.Monitor.PollIntervalSeconds > MaxPollIntervalSeconds {
		errs = append(errs, fmt.Errorf("monitor.poll_interval_seconds must be <= %d", MaxPollIntervalSeconds))
	}
	if c.Inverter.ConnectionRetries < 1 || c.Inverter.ConnectionRetries > 10 {
		errs = append(errs, errors.New("inverter.connection_retries must be 1-10"))
	}
	if c.Inverter.RegisterBlockSize != lxpmodbus.DefaultRegisterBlock && c.Inverter.RegisterBlockSize != lxpmodbus.LegacyRegisterBlock {
		errs = append(errs, fmt.Errorf("inverter.register_block_size must be %d or %d", lxpmodbus.DefaultRegisterBlock, lxpmodbus.LegacyRegisterBlock))
	}
	if c.Inverter.RatedPowerWatt < MinRatedPowerWatt || c.Inverter.RatedPowerWatt > MaxRatedPowerWatt {
		errs = append(errs, fmt.Errorf("inverter.rated_power_watt must be %d-%d", MinRatedPowerWatt, MaxRatedPowerWatt))
	}

	if baseTopic, err := CheckMQTTTopic(c.MQTT.BaseTopic); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.base_topic: %w", err))
	} else {
		c.MQTT.BaseTopic = baseTopic
	}
	if hadTopic, err := CheckMQTTTopic(c.MQTT.HADiscoveryTopic); err != nil {
		errs = append(errs, fmt.Errorf("mqtt.ha_discovery_topic: %w", err))
	} else {
		c.MQTT.HADiscoveryTopic = hadTopic
	}

	return errors.Join(errs...)
}

// ConfigUpdate is a partial overlay: nil fields keep their current value.
// Identity fields (transport, serials, addresses) are fixed for the life of
// the process and cannot be overlaid.
type ConfigUpdate struct {
	PollIntervalSeconds *uint32
	RegisterBlockSize   *uint16
	ConnectionRetries   *int
	ReadOnly            *bool
	RatedPowerWatt      *uint32
}

// ApplyUpdate overlays the update onto a copy of the config and revalidates
// the result. The receiver is untouched when validation fails.
func (c Config) ApplyUpdate(update ConfigUpdate) (Config, error) {
	next := c
	if update.PollIntervalSeconds != nil {
		next.Monitor.PollIntervalSeconds = *update.PollIntervalSeconds
	}
	if update.RegisterBlockSize != nil {
		next.Inverter.RegisterBlockSize = *update.RegisterBlockSize
	}
	if update.ConnectionRetries != nil {
		next.Inverter.ConnectionRetries = *update.ConnectionRetries
	}
	if update.ReadOnly != nil {
		next.Inverter.ReadOnly = *update.ReadOnly
	}
	if update.RatedPowerWatt != nil {
		next.Inverter.RatedPowerWatt = *update.RatedPowerWatt
	}
	if err := next.Validate(); err != nil {
		return c, err
	}
	return next, nil
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
