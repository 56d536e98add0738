package events

import (
	"fmt"

	. "github.com/OwlBawl/luxpower-ha-modbus/internal/core/domain"
	"github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"
)

// statusNames maps the inverter status register to a readable state. Codes
// follow the LuxPower register documentation.
var statusNames = map[uint16]string{
	0x00: "standby",
	0x01: "fault",
	0x02: "programming",
	0x04: "pv on-grid",
	0x08: "pv charging",
	0x0C: "pv charging on-grid",
	0x10: "battery on-grid",
	0x14: "pv and battery on-grid",
	0x20: "ac charging",
	0x28: "pv and ac charging",
	0x40: "battery off-grid",
	0x80: "pv off-grid",
	0xC0: "pv and battery off-grid",
}

func StatusName(status uint16) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return fmt.Sprintf("unknown (%d)", status)
}

func floatEvent(id string, value float64, decimals uint) FloatSensorUpdateEvent {
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: id,
		},
		Value:    value,
		Decimals: decimals,
	}
}

func TelemetryPowerUpdateEvents(v *lxpmodbus.DecodedValues) []any {
	var events []any

	events = append(events, TextSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_INVERTER_STATUS,
		},
		Value: StatusName(v.Status),
	})
	events = append(events, floatEvent(SENSOR_ID_PV_POWER, v.PVPower, 0))
	events = append(events, floatEvent(SENSOR_ID_INVERTER_POWER, v.InverterPower, 0))
	events = append(events, floatEvent(SENSOR_ID_POWER_TO_GRID, v.PowerToGrid, 0))
	events = append(events, floatEvent(SENSOR_ID_POWER_FROM_GRID, v.PowerFromGrid, 0))
	events = append(events, floatEvent(SENSOR_ID_GRID_VOLTAGE, v.GridVoltageR, 1))
	events = append(events, floatEvent(SENSOR_ID_GRID_FREQUENCY, v.GridFrequency, 2))
	events = append(events, floatEvent(SENSOR_ID_GRID_POWER_FACTOR, v.GridPowerFactor, 3))

	return events
}

func TelemetryBatteryUpdateEvents(v *lxpmodbus.DecodedValues) []any {
	var events []any

	events = append(events, floatEvent(SENSOR_ID_BATTERY_VOLTAGE, v.BatteryVoltage, 1))
	events = append(events, floatEvent(SENSOR_ID_BATTERY_SOC, v.SOC, 0))
	events = append(events, floatEvent(SENSOR_ID_BATTERY_SOH, v.SOH, 0))
	events = append(events, floatEvent(SENSOR_ID_BATTERY_CHARGE_POWER, v.ChargePower, 0))
	events = append(events, floatEvent(SENSOR_ID_BATTERY_DISCHARGE_PWR, v.DischargePower, 0))

	return events
}

func TelemetryEnergyUpdateEvents(v *lxpmodbus.DecodedValues) []any {
	var events []any

	events = append(events, floatEvent(SENSOR_ID_PV_ENERGY_TODAY, v.PVEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_INVERTER_ENERGY_TODAY, v.InverterEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_CHARGE_ENERGY_TODAY, v.ChargeEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_DISCHARGE_ENERGY_TODAY, v.DischargeEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_EXPORTED_ENERGY_TODAY, v.ExportedEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_IMPORTED_ENERGY_TODAY, v.ImportedEnergyToday, 1))
	events = append(events, floatEvent(SENSOR_ID_PV_ENERGY_TOTAL, v.PVEnergyTotal, 1))
	events = append(events, floatEvent(SENSOR_ID_INVERTER_ENERGY_TOTAL, v.InverterEnergyTotal, 1))
	events = append(events, floatEvent(SENSOR_ID_CHARGE_ENERGY_TOTAL, v.ChargeEnergyTotal, 1))
	events = append(events, floatEvent(SENSOR_ID_DISCHARGE_ENERGY_TOTAL, v.DischargeEnergyTotal, 1))
	events = append(events, floatEvent(SENSOR_ID_EXPORTED_ENERGY_TOTAL, v.ExportedEnergyTotal, 1))
	events = append(events, floatEvent(SENSOR_ID_IMPORTED_ENERGY_TOTAL, v.ImportedEnergyTotal, 1))

	return events
}

func TelemetryDiagnosticUpdateEvents(v *lxpmodbus.DecodedValues) []any {
	var events []any

	events = append(events, floatEvent(SENSOR_ID_FAULT_CODE, float64(v.FaultCode), 0))
	events = append(events, floatEvent(SENSOR_ID_WARNING_CODE, float64(v.WarningCode), 0))
	events = append(events, floatEvent(SENSOR_ID_INNER_TEMPERATURE, v.InnerTemperature, 0))
	events = append(events, floatEvent(SENSOR_ID_RADIATOR_TEMPERATURE, v.RadiatorTemperature, 0))
	events = append(events, floatEvent(SENSOR_ID_BATTERY_TEMPERATURE, v.BatteryTemperature, 0))
	events = append(events, floatEvent(SENSOR_ID_RUNTIME, float64(v.RuntimeSeconds), 0))

	return events
}

// TelemetryToUpdateEvents flattens one poll cycle into the full set of
// sensor updates.
func TelemetryToUpdateEvents(v *lxpmodbus.DecodedValues) []any {
	var events []any
	events = append(events, TelemetryPowerUpdateEvents(v)...)
	events = append(events, TelemetryBatteryUpdateEvents(v)...)
	events = append(events, TelemetryEnergyUpdateEvents(v)...)
	events = append(events, TelemetryDiagnosticUpdateEvents(v)...)
	return events
}

func BridgeStateUpdateEvents(online bool) []any {
	return []any{
		BridgeStateUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_BRIDGE_STATE,
			},
			Value: online,
		},
	}
}

func ACChargeSwitchUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_AC_CHARGE,
		},
		Value: enabled,
	}
}

func ACChargeRateUpdateEvent(ratePercent uint8) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_AC_CHARGE_RATE,
		},
		Value: float64(ratePercent),
	}
}

func ACChargeCutoffSoCUpdateEvent(cutoffSoC uint8) any {
	return InputNumberSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: INPUT_NUMBER_ID_AC_CHARGE_SOC_STOP,
		},
		Value: float64(cutoffSoC),
	}
}
