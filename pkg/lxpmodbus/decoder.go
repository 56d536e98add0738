package lxpmodbus

// Holding register map. Scaling factors follow the LuxPower register
// documentation: voltages are tenths, frequencies and currents hundredths,
// energy counters tenths of a kWh. 32-bit counters span two consecutive
// registers, low word first.
const (
	RegModelLow  = 7
	RegModelHigh = 8

	RegStatus         = 16
	RegPV1Voltage     = 17
	RegPV2Voltage     = 18
	RegPV3Voltage     = 19
	RegBatteryVoltage = 20
	RegSOC            = 21 // SOC low byte, SOH high byte
	RegPV1Power       = 22
	RegPV2Power       = 23
	RegPV3Power       = 24
	RegChargePower    = 25
	RegDischargePower = 26
	RegGridVoltageR   = 27
	RegGridVoltageS   = 28
	RegGridVoltageT   = 29
	RegGridFrequency  = 30
	RegInverterPower  = 31
	RegPowerToGrid    = 32
	RegPowerFromGrid  = 33
	RegPowerFactor    = 34

	RegPVEnergyToday        = 40
	RegInverterEnergyToday  = 41
	RegChargeEnergyToday    = 42
	RegDischargeEnergyToday = 43
	RegExportedEnergyToday  = 44
	RegImportedEnergyToday  = 45

	RegPVEnergyTotal        = 50 // 32-bit pairs from here on
	RegInverterEnergyTotal  = 52
	RegChargeEnergyTotal    = 54
	RegDischargeEnergyTotal = 56
	RegExportedEnergyTotal  = 58
	RegImportedEnergyTotal  = 60

	RegFaultCode   = 70
	RegWarningCode = 72

	RegInnerTemp    = 80
	RegRadiatorTemp = 81
	RegBatteryTemp  = 82
	RegRuntime      = 84
)

// modelNames maps the 32-bit code in registers 7-8 to the marketing name.
var modelNames = map[uint32]string{
	0x0001: "LXP-LB-3K",
	0x0002: "LXP-LB-5K",
	0x0003: "LXP-5K",
	0x0004: "LXP-12K",
	0x0005: "LXP-LB-EU-3600",
	0x0006: "LXP-LB-EU-5000",
	0x0007: "SNA-5000",
	0x0008: "LXP-TRI-10K",
}

// RegisterSnapshot is the register map assembled from one complete poll
// cycle. Missing addresses read as zero.
type RegisterSnapshot map[uint16]uint16

func (s RegisterSnapshot) at(addr uint16) uint16 {
	return s[addr]
}

// u32 composes a 32-bit counter from two consecutive registers, low word
// first per the protocol documentation.
func (s RegisterSnapshot) u32(low uint16) uint32 {
	return uint32(s.at(low)) | uint32(s.at(low+1))<<16
}

// DecodedValues is the typed view over one snapshot. Recomputed every
// cycle, never mutated in place.
type DecodedValues struct {
	Status uint16

	PV1Voltage     float64
	PV2Voltage     float64
	PV3Voltage     float64
	BatteryVoltage float64
	SOC            float64
	SOH            float64

	PV1Power       float64
	PV2Power       float64
	PV3Power       float64
	PVPower        float64
	ChargePower    float64
	DischargePower float64
	InverterPower  float64

	GridVoltageR    float64
	GridVoltageS    float64
	GridVoltageT    float64
	GridFrequency   float64
	PowerToGrid     float64
	PowerFromGrid   float64
	GridPowerFactor float64

	PVEnergyToday        float64
	InverterEnergyToday  float64
	ChargeEnergyToday    float64
	DischargeEnergyToday float64
	ExportedEnergyToday  float64
	ImportedEnergyToday  float64

	PVEnergyTotal        float64
	InverterEnergyTotal  float64
	ChargeEnergyTotal    float64
	DischargeEnergyTotal float64
	ExportedEnergyTotal  float64
	ImportedEnergyTotal  float64

	FaultCode   uint32
	WarningCode uint32

	InnerTemperature    float64
	RadiatorTemperature float64
	BatteryTemperature  float64
	RuntimeSeconds      uint32
}

// DecodeModel extracts the model name from registers 7-8. The second value
// is false when the registers are absent or carry an unknown code.
func DecodeModel(regs RegisterSnapshot) (string, bool) {
	if _, ok := regs[RegModelLow]; !ok {
		return "", false
	}
	name, ok := modelNames[regs.u32(RegModelLow)]
	return name, ok
}

// Decode maps a snapshot to typed quantities. Pure; unknown or missing
// registers decode to zero values rather than failing the snapshot.
func Decode(regs RegisterSnapshot) DecodedValues {
	tenth := func(addr uint16) float64 { return float64(int16(regs.at(addr))) / 10 }
	watts := func(addr uint16) float64 { return float64(int16(regs.at(addr))) }
	kwh := func(low uint16) float64 { return float64(int32(regs.u32(low))) / 10 }

	v := DecodedValues{
		Status:         regs.at(RegStatus),
		PV1Voltage:     tenth(RegPV1Voltage),
		PV2Voltage:     tenth(RegPV2Voltage),
		PV3Voltage:     tenth(RegPV3Voltage),
		BatteryVoltage: tenth(RegBatteryVoltage),
		SOC:            float64(regs.at(RegSOC) & 0xFF),
		SOH:            float64(regs.at(RegSOC) >> 8),

		PV1Power:       watts(RegPV1Power),
		PV2Power:       watts(RegPV2Power),
		PV3Power:       watts(RegPV3Power),
		ChargePower:    watts(RegChargePower),
		DischargePower: watts(RegDischargePower),
		InverterPower:  watts(RegInverterPower),

		GridVoltageR:    tenth(RegGridVoltageR),
		GridVoltageS:    tenth(RegGridVoltageS),
		GridVoltageT:    tenth(RegGridVoltageT),
		GridFrequency:   float64(regs.at(RegGridFrequency)) / 100,
		PowerToGrid:     watts(RegPowerToGrid),
		PowerFromGrid:   watts(RegPowerFromGrid),
		GridPowerFactor: float64(int16(regs.at(RegPowerFactor))) / 1000,

		PVEnergyToday:        tenth(RegPVEnergyToday),
		InverterEnergyToday:  tenth(RegInverterEnergyToday),
		ChargeEnergyToday:    tenth(RegChargeEnergyToday),
		DischargeEnergyToday: tenth(RegDischargeEnergyToday),
		ExportedEnergyToday:  tenth(RegExportedEnergyToday),
		ImportedEnergyToday:  tenth(RegImportedEnergyToday),

		PVEnergyTotal:        kwh(RegPVEnergyTotal),
		InverterEnergyTotal:  kwh(RegInverterEnergyTotal),
		ChargeEnergyTotal:    kwh(RegChargeEnergyTotal),
		DischargeEnergyTotal: kwh(RegDischargeEnergyTotal),
		ExportedEnergyTotal:  kwh(RegExportedEnergyTotal),
		ImportedEnergyTotal:  kwh(RegImportedEnergyTotal),

		FaultCode:   regs.u32(RegFaultCode),
		WarningCode: regs.u32(RegWarningCode),

		InnerTemperature:    float64(int16(regs.at(RegInnerTemp))),
		RadiatorTemperature: float64(int16(regs.at(RegRadiatorTemp))),
		BatteryTemperature:  float64(int16(regs.at(RegBatteryTemp))),
		RuntimeSeconds:      regs.u32(RegRuntime),
	}
	v.PVPower = v.PV1Power + v.PV2Power + v.PV3Power
	return v
}
