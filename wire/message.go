package wire

import "fmt"

// Measurement is a CO2 sample published by the device.
type Measurement struct {
	// ID is a wrapping counter, incremented by one per new sample.
	ID uint32
	// Timestamp is a wrapping cycle counter sample; compare only by
	// wrap-aware difference.
	Timestamp uint32
	// CO2 concentration in ppm.
	CO2 float32
}

func (m Measurement) String() string {
	return fmt.Sprintf("Measurement{id=%d ts=%d co2=%.1fppm}", m.ID, m.Timestamp, m.CO2)
}

// RequestKind is the tag of a host to device message.
type RequestKind uint8

const (
	// GetLastMeasurement asks for the most recent measurement.
	GetLastMeasurement RequestKind = 0
)

func (k RequestKind) String() string {
	switch k {
	case GetLastMeasurement:
		return "GetLastMeasurement"
	default:
		return fmt.Sprintf("RequestKind(%d)", uint8(k))
	}
}

// Request is a host to device message.
type Request struct {
	Kind RequestKind
}

// ResponseKind is the tag of a device to host message.
type ResponseKind uint8

const (
	// NotReady means no measurement has been taken yet.
	NotReady ResponseKind = 0
	// MeasurementReady carries the last measurement.
	MeasurementReady ResponseKind = 1
)

func (k ResponseKind) String() string {
	switch k {
	case NotReady:
		return "NotReady"
	case MeasurementReady:
		return "Measurement"
	default:
		return fmt.Sprintf("ResponseKind(%d)", uint8(k))
	}
}

// Response is a device to host message. Measurement is only meaningful when
// Kind is MeasurementReady.
type Response struct {
	Kind        ResponseKind
	Measurement Measurement
}

// NewNotReady returns a NotReady response.
func NewNotReady() Response {
	return Response{Kind: NotReady}
}

// NewMeasurement returns a response carrying m.
func NewMeasurement(m Measurement) Response {
	return Response{Kind: MeasurementReady, Measurement: m}
}

func (r Response) String() string {
	if r.Kind == MeasurementReady {
		return r.Measurement.String()
	}

	return r.Kind.String()
}
