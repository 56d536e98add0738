package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE           = "bridge"
	SENSOR_ID_INVERTER_STATUS        = "inverter_status"
	SENSOR_ID_PV_POWER               = "pv_power"
	SENSOR_ID_PV1_VOLTAGE            = "pv1_voltage"
	SENSOR_ID_PV2_VOLTAGE            = "pv2_voltage"
	SENSOR_ID_PV3_VOLTAGE            = "pv3_voltage"
	SENSOR_ID_INVERTER_POWER         = "inverter_power"
	SENSOR_ID_POWER_TO_GRID          = "power_to_grid"
	SENSOR_ID_POWER_FROM_GRID        = "power_from_grid"
	SENSOR_ID_GRID_VOLTAGE           = "grid_voltage"
	SENSOR_ID_GRID_FREQUENCY         = "grid_frequency"
	SENSOR_ID_GRID_POWER_FACTOR      = "grid_power_factor"
	SENSOR_ID_BATTERY_VOLTAGE        = "battery_voltage"
	SENSOR_ID_BATTERY_SOC            = "battery_soc"
	SENSOR_ID_BATTERY_SOH            = "battery_soh"
	SENSOR_ID_BATTERY_CHARGE_POWER   = "battery_charge_power"
	SENSOR_ID_BATTERY_DISCHARGE_PWR  = "battery_discharge_power"
	SENSOR_ID_PV_ENERGY_TODAY        = "pv_energy_today"
	SENSOR_ID_INVERTER_ENERGY_TODAY  = "inverter_energy_today"
	SENSOR_ID_CHARGE_ENERGY_TODAY    = "charge_energy_today"
	SENSOR_ID_DISCHARGE_ENERGY_TODAY = "discharge_energy_today"
	SENSOR_ID_EXPORTED_ENERGY_TODAY  = "exported_energy_today"
	SENSOR_ID_IMPORTED_ENERGY_TODAY  = "imported_energy_today"
	SENSOR_ID_PV_ENERGY_TOTAL        = "pv_energy_total"
	SENSOR_ID_INVERTER_ENERGY_TOTAL  = "inverter_energy_total"
	SENSOR_ID_CHARGE_ENERGY_TOTAL    = "charge_energy_total"
	SENSOR_ID_DISCHARGE_ENERGY_TOTAL = "discharge_energy_total"
	SENSOR_ID_EXPORTED_ENERGY_TOTAL  = "exported_energy_total"
	SENSOR_ID_IMPORTED_ENERGY_TOTAL  = "imported_energy_total"
	SENSOR_ID_FAULT_CODE             = "fault_code"
	SENSOR_ID_WARNING_CODE           = "warning_code"
	SENSOR_ID_INNER_TEMPERATURE      = "inner_temperature"
	SENSOR_ID_RADIATOR_TEMPERATURE   = "radiator_temperature"
	SENSOR_ID_BATTERY_TEMPERATURE    = "battery_temperature"
	SENSOR_ID_RUNTIME                = "runtime"

	SWITCH_ID_AC_CHARGE                = "ac_charge"
	INPUT_NUMBER_ID_AC_CHARGE_RATE     = "ac_charge_rate"
	INPUT_NUMBER_ID_AC_CHARGE_SOC_STOP = "ac_charge_cutoff_soc"

	STATE_CLASS_DURATION         = "duration"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_BATTERY         = "battery"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_POWER_FACTOR    = "power_factor"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	ENTITY_CLASS_CONFIG          = "config"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"
	INPUT_NUMBER_MODE_BOX        = "box"
	INPUT_NUMBER_MODE_SLIDER     = "slider"
)

func BridgeDevice(baseTopic string) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("luxbridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "OwlBawl",
		Model:        "LuxPower Bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("LuxPower Bridge %s", md5HashShort(baseTopic)),
	}
}

func InverterDevice(info *domain.InverterInfo) domain.Device {
	return domain.Device{
		Id:           fmt.Sprintf("lux_inverter_%s", md5HashShort(info.InverterSerial)),
		Manufacturer: "LuxPower",
		Model:        info.Model,
		Name:         fmt.Sprintf("LuxPower %s %s", info.Model, md5HashShort(info.InverterSerial)),
	}
}

func IdDevice(device domain.Device) domain.Device {
	return domain.Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func InverterPowerSensors(inverterDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	sensors = append(sensors, domain.GenericSensor{
		Device:     inverterDevice,
		Id:         SENSOR_ID_INVERTER_STATUS,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Inverter status",
		UniqueId:   uniqueId(inverterDevice.Id, SENSOR_ID_INVERTER_STATUS),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_PV_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "PV power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:solar-power",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_PV_POWER),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_INVERTER_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Inverter power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_INVERTER_POWER),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_POWER_TO_GRID,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Power to grid",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower-import",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_POWER_TO_GRID),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_POWER_FROM_GRID,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Power from grid",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		Icon:              "mdi:transmission-tower-export",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_POWER_FROM_GRID),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_VOLTAGE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_GRID_FREQUENCY,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Grid frequency",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_FREQUENCY,
		UnitOfMeasurement: "Hz",
		Icon:              "mdi:sine-wave",
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_GRID_FREQUENCY),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:           inverterDevice,
		Id:               SENSOR_ID_GRID_POWER_FACTOR,
		SensorType:       SENSOR_TYPE_SENSOR,
		Name:             "Grid power factor",
		StateClass:       STATE_CLASS_MEASUREMENT,
		DeviceClass:      DEVICE_CLASS_POWER_FACTOR,
		EnabledByDefault: optionalBool(false),
		UniqueId:         uniqueId(inverterDevice.Id, SENSOR_ID_GRID_POWER_FACTOR),
	})

	return sensors
}

func InverterBatterySensors(inverterDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_VOLTAGE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery voltage",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_VOLTAGE,
		UnitOfMeasurement: "V",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_VOLTAGE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_SOC,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoC",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_BATTERY,
		UnitOfMeasurement: "%",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_SOC),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_SOH,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery SoH",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		Icon:              "mdi:battery-heart-variant",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_SOH),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_CHARGE_POWER,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery charge power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_CHARGE_POWER),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_BATTERY_DISCHARGE_PWR,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Battery discharge power",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_POWER,
		UnitOfMeasurement: "W",
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_BATTERY_DISCHARGE_PWR),
	})

	return sensors
}

func InverterEnergySensors(inverterDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	daily := []struct {
		id   string
		name string
	}{
		{SENSOR_ID_PV_ENERGY_TODAY, "PV energy today"},
		{SENSOR_ID_INVERTER_ENERGY_TODAY, "Inverter energy today"},
		{SENSOR_ID_CHARGE_ENERGY_TODAY, "Charge energy today"},
		{SENSOR_ID_DISCHARGE_ENERGY_TODAY, "Discharge energy today"},
		{SENSOR_ID_EXPORTED_ENERGY_TODAY, "Exported energy today"},
		{SENSOR_ID_IMPORTED_ENERGY_TODAY, "Imported energy today"},
	}
	totals := []struct {
		id   string
		name string
	}{
		{SENSOR_ID_PV_ENERGY_TOTAL, "PV energy total"},
		{SENSOR_ID_INVERTER_ENERGY_TOTAL, "Inverter energy total"},
		{SENSOR_ID_CHARGE_ENERGY_TOTAL, "Charge energy total"},
		{SENSOR_ID_DISCHARGE_ENERGY_TOTAL, "Discharge energy total"},
		{SENSOR_ID_EXPORTED_ENERGY_TOTAL, "Exported energy total"},
		{SENSOR_ID_IMPORTED_ENERGY_TOTAL, "Imported energy total"},
	}

	for _, s := range daily {
		sensors = append(sensors, domain.GenericSensor{
			Device:            inverterDevice,
			Id:                s.id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              s.name,
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(inverterDevice.Id, s.id),
		})
	}
	for _, s := range totals {
		sensors = append(sensors, domain.GenericSensor{
			Device:            inverterDevice,
			Id:                s.id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              s.name,
			StateClass:        STATE_CLASS_TOTAL_INCREASING,
			DeviceClass:       DEVICE_CLASS_ENERGY,
			UnitOfMeasurement: "kWh",
			UniqueId:          uniqueId(inverterDevice.Id, s.id),
		})
	}

	return sensors
}

func InverterDiagnosticSensors(inverterDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	sensors = append(sensors, domain.GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_FAULT_CODE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Fault code",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:alert-circle",
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_FAULT_CODE),
	})

	sensors = append(sensors, domain.GenericSensor{
		Device:         inverterDevice,
		Id:             SENSOR_ID_WARNING_CODE,
		SensorType:     SENSOR_TYPE_SENSOR,
		Name:           "Warning code",
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		Icon:           "mdi:alert",
		UniqueId:       uniqueId(inverterDevice.Id, SENSOR_ID_WARNING_CODE),
	})

	temps := []struct {
		id   string
		name string
	}{
		{SENSOR_ID_INNER_TEMPERATURE, "Inner temperature"},
		{SENSOR_ID_RADIATOR_TEMPERATURE, "Radiator temperature"},
		{SENSOR_ID_BATTERY_TEMPERATURE, "Battery temperature"},
	}
	for _, s := range temps {
		sensors = append(sensors, domain.GenericSensor{
			Device:            inverterDevice,
			Id:                s.id,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              s.name,
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_TEMPERATURE,
			UnitOfMeasurement: "°C",
			EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:          uniqueId(inverterDevice.Id, s.id),
		})
	}

	sensors = append(sensors, domain.GenericSensor{
		Device:            inverterDevice,
		Id:                SENSOR_ID_RUNTIME,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Runtime",
		StateClass:        STATE_CLASS_TOTAL_INCREASING,
		DeviceClass:       DEVICE_CLASS_DURATION,
		UnitOfMeasurement: "s",
		EntityCategory:    ENTITY_CLASS_DIAGNOSTIC,
		EnabledByDefault:  optionalBool(false),
		UniqueId:          uniqueId(inverterDevice.Id, SENSOR_ID_RUNTIME),
	})

	return sensors
}

func BridgeSensors(bridgeDevice domain.Device) []domain.GenericSensor {

	var sensors []domain.GenericSensor

	sensors = append(sensors, domain.GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func ChargeControlSwitches(inverterDevice domain.Device) []domain.GenericSwitch {

	var switches []domain.GenericSwitch

	switches = append(switches, domain.GenericSwitch{
		Device:   inverterDevice,
		Id:       SWITCH_ID_AC_CHARGE,
		Name:     "AC charge",
		UniqueId: uniqueId(inverterDevice.Id, SWITCH_ID_AC_CHARGE),
		Icon:     "mdi:battery-plus",
	})

	return switches
}

func ChargeControlInputNumbers(inverterDevice domain.Device) []domain.GenericInputNumber {

	var inputNumbers []domain.GenericInputNumber

	inputNumbers = append(inputNumbers, domain.GenericInputNumber{
		Device:       inverterDevice,
		Id:           INPUT_NUMBER_ID_AC_CHARGE_RATE,
		Name:         "AC charge rate",
		UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_AC_CHARGE_RATE),
		Icon:         "mdi:battery-charging",
		Max:          100,
		Min:          0,
		Step:         5,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: 100,
	})

	inputNumbers = append(inputNumbers, domain.GenericInputNumber{
		Device:       inverterDevice,
		Id:           INPUT_NUMBER_ID_AC_CHARGE_SOC_STOP,
		Name:         "AC charge cutoff SoC",
		UniqueId:     uniqueId(inverterDevice.Id, INPUT_NUMBER_ID_AC_CHARGE_SOC_STOP),
		Icon:         "mdi:ticket-percent",
		Max:          100,
		Min:          0,
		Step:         5,
		Mode:         INPUT_NUMBER_MODE_BOX,
		InitialValue: 100,
	})

	return inputNumbers
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}

func optionalBool(value bool) *bool {
	return &value
}
