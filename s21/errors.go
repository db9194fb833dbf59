package s21

import "fmt"

// CommunicationError wraps a transport-level failure. It is propagated
// unmodified apart from the operation context; retry policy belongs to the
// transport layer or the caller, never to the client.
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("s21: %s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

// ValidationError reports a caller-supplied value outside the legal domain
// of a field. It is raised before any network I/O, so an invalid input never
// causes a partial device mutation.
type ValidationError struct {
	Field  Field
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("s21: %s: %s", e.Field, e.Reason)
}

// MappingError reports a raw register value with no known enum member. This
// usually means the register map and the device firmware disagree; it is
// surfaced instead of silently defaulting.
type MappingError struct {
	Field Field
	Raw   uint16
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("s21: %s: raw value %d has no mapping", e.Field, e.Raw)
}

// UnsupportedDeviceError reports that the device-type register does not
// identify an S21 unit.
type UnsupportedDeviceError struct {
	DeviceType uint16
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("s21: unsupported device type %d (expected %d)", e.DeviceType, deviceTypeS21)
}
