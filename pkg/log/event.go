package log

import (
	"time"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the notification session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// DeviceID is the hardware-derived device identifier.
	DeviceID string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Command     *CommandEvent     `cbor:"11,keyasint,omitempty"` // Service layer (dispatched)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session/pump state
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an inbound characteristic write.
	DirectionIn Direction = 0
	// DirectionOut indicates an outbound notification or read.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the characteristic framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSession is the encryption and lock state machine.
	LayerSession Layer = 1
	// LayerService is the command dispatch layer.
	LayerService Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSession:
		return "SESSION"
	case LayerService:
		return "SERVICE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (frame or command).
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame bytes at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Encrypted indicates the frame carried the ciphertext marker.
	Encrypted bool `cbor:"2,keyasint,omitempty"`

	// Bypass indicates the frame skipped the paced queue.
	Bypass bool `cbor:"3,keyasint,omitempty"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"4,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"5,keyasint,omitempty"`
}

// CommandEvent captures a dispatched command at the service layer.
type CommandEvent struct {
	// Command is the command keyword, or "ssid" for connection requests.
	Command string `cbor:"1,keyasint"`

	// Target is the notification target module ("wifi", "crypto", ...).
	Target string `cbor:"2,keyasint,omitempty"`

	// Response is the queued response text, if any.
	Response string `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures session and pump lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityLock indicates a lock posture change.
	StateEntityLock StateEntity = 0
	// StateEntityCipher indicates a cipher negotiation change.
	StateEntityCipher StateEntity = 1
	// StateEntityPump indicates a notification pump change.
	StateEntityPump StateEntity = 2
	// StateEntityTimer indicates the disconnect timer was armed or fired.
	StateEntityTimer StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityLock:
		return "LOCK"
	case StateEntityCipher:
		return "CIPHER"
	case StateEntityPump:
		return "PUMP"
	case StateEntityTimer:
		return "TIMER"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
