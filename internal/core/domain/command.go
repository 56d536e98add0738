package domain

import "fmt"

// ChargeControlRequest

type ChargeControlRequest interface {
	ActorRequest
	ChargeControlCommand() string
}

type ChargeControlRequestMixIn struct {
	ActorRequestMixIn
}

func (r ChargeControlRequestMixIn) ChargeControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControlResponse

type ChargeControlResponse interface {
	ActorResponse
	ChargeControlResponse() string
}

type ChargeControlResponseMixIn struct {
	ActorResponse
}

func (r ChargeControlResponseMixIn) ChargeControlResponse() string {
	return fmt.Sprintf("%T", r)
}

// ChargeControl commands

type ChargeControlACChargeRequest struct {
	ChargeControlRequestMixIn
	Enable bool
}

type ChargeControlACChargeResponse struct {
	ChargeControlResponseMixIn
	Changed bool
}

type ChargeControlSetChargeRateRequest struct {
	ChargeControlRequestMixIn
	RatePercent uint8
}

type ChargeControlSetChargeRateResponse struct {
	ChargeControlResponseMixIn
	RatePercent uint8
}

type ChargeControlSetCutoffSoCRequest struct {
	ChargeControlRequestMixIn
	CutoffSoC uint8
}

type ChargeControlSetCutoffSoCResponse struct {
	ChargeControlResponseMixIn
	CutoffSoC uint8
}

// RegisterWrite is one holding-register write produced by the charge control
// logic. A command may expand to several writes, applied in order.
type RegisterWrite struct {
	Address uint16
	Value   uint16
}

// ensure interface compliance
var _ ChargeControlRequest = (*ChargeControlACChargeRequest)(nil)
