package domain

import "github.com/OwlBawl/luxpower-ha-modbus/pkg/lxpmodbus"

const (
	ACTOR_ID_MASTER         = "master"
	ACTOR_ID_MODBUS         = "modbus"
	ACTOR_ID_MONITOR        = "monitor"
	ACTOR_ID_MQTT           = "mqtt"
	ACTOR_ID_CHARGE_CONTROL = "charge_control"
	ACTOR_ID_HA_DISCOVERY   = "hadiscovery"
)

// InverterInfo is the result of the startup probe: identity plus the decoded
// model name.
type InverterInfo struct {
	Model          string
	InverterSerial string
	DongleSerial   string
	RatedPowerWatt uint32
}

type GetInverterInfoRequest struct {
	ActorRequestMixIn
}

type GetInverterInfoResponse struct {
	ActorResponseMixIn
	Info *InverterInfo
}

type GetTelemetryRequest struct {
	ActorRequestMixIn
}

type GetTelemetryResponse struct {
	ActorResponseMixIn
	Telemetry *lxpmodbus.DecodedValues
	Registers lxpmodbus.RegisterSnapshot
}

type WriteRegisterRequest struct {
	ActorRequestMixIn
	Address uint16
	Value   uint16
}

type WriteRegisterResponse struct {
	ActorResponseMixIn
	Address uint16
	Value   uint16
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors      []GenericSensor
	Switches     []GenericSwitch
	InputNumbers []GenericInputNumber
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
