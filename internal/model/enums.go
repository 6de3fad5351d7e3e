// Package model holds the static, compile-time data the supervisor
// validates every inbound message and action request against: the
// action allow-list, the message dictionary, and the message-kind
// length table (§3, §6). None of it is mutable at runtime — there is no
// dynamic action registration (Non-goal).
package model

// PRNDL is the gear selector position reported by the Control Module.
type PRNDL uint8

const (
	Park PRNDL = iota
	Reverse
	Neutral
	Drive
	Low
)

func (p PRNDL) String() string {
	switch p {
	case Park:
		return "Park"
	case Reverse:
		return "Reverse"
	case Neutral:
		return "Neutral"
	case Drive:
		return "Drive"
	case Low:
		return "Low"
	default:
		return "Unknown"
	}
}

// Freshness tags how recently a VehicleStatus field was updated.
type Freshness uint8

const (
	Fresh Freshness = iota
	Outdated
)

// AsiState is the single global state (§4.4). SafeState is absorbing.
type AsiState uint8

const (
	StateInitial AsiState = iota
	StateStartupTest
	StateNormalOp
	StateSafeState
	StateInvalid
)

func (s AsiState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateStartupTest:
		return "StartupTest"
	case StateNormalOp:
		return "NormalOp"
	case StateSafeState:
		return "SafeState"
	default:
		return "Invalid"
	}
}

// MessageKind distinguishes the wire message families (§6).
type MessageKind uint8

const (
	KindAction MessageKind = iota
	KindStatus
	KindAck
	KindNotification
	KindCalReadback
)

// MessageType is the 16-bit value on the wire (§6).
type MessageType uint16

const (
	TypeAction       MessageType = 0xFF11
	TypeStatus       MessageType = 0xFF22
	TypeAck          MessageType = 0xFF33
	TypeNotification MessageType = 0xFF44
	TypeCalReadback  MessageType = 0xFF55
)

// MessageRole is the logical identity of a message, distinct from its
// wire type (GLOSSARY). Roles index the rolling-counter and
// sequence-number registers (§3) and the message dictionary (§3).
type MessageRole uint8

const (
	RoleActionRequest MessageRole = iota
	RoleCMStatus
	RoleAckFromVAM
	RoleAckFromCM
	RoleCalReadback
	RoleFailCritical
	RoleFailNonCritical
	RoleHVACFan
	RoleHVACTemp
	RoleWiperSpeed
	RoleSeatDriver
	RoleSeatPassenger
	RoleSeatHeatDriver
	RoleSeatHeatPassenger
	RoleDoorLock
	RoleTurnSignal
	RoleAmbientLight
	RoleTorqueCalib
	RoleRainSensor
	RoleNotificationOut
	RoleSafeStateStatus
	RoleStartupTestResult
)

// Severity classifies fault events (§7).
type Severity uint8

const (
	SeverityMinor Severity = iota
	SeverityNormal
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "Minor"
	case SeverityNormal:
		return "Normal"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// NotificationKind enumerates the user-visible action notifications
// (§7 "User-visible failures").
type NotificationKind uint8

const (
	NotifyApproved NotificationKind = iota
	NotifyPreconditionFail
	NotifyInvalidActionReq
	NotifyTimeoutLimit
	NotifyRateLimiterDrop
	NotifyTransmissionFailed
	NotifySUTNotPerformed
	NotifyVehicleStatusFail
	NotifyMismatch
	NotifyStartupTest
	NotifyASIStatus
)

func (n NotificationKind) String() string {
	switch n {
	case NotifyApproved:
		return "Approved"
	case NotifyPreconditionFail:
		return "PreconditionFail"
	case NotifyInvalidActionReq:
		return "InvalidActionReq"
	case NotifyTimeoutLimit:
		return "TimeoutLimit"
	case NotifyRateLimiterDrop:
		return "RateLimiterDrop"
	case NotifyTransmissionFailed:
		return "TransmissionFailed"
	case NotifySUTNotPerformed:
		return "SUTNotPerformed"
	case NotifyVehicleStatusFail:
		return "VehicleStatusFail"
	case NotifyMismatch:
		return "Mismatch"
	case NotifyStartupTest:
		return "StartupTest"
	case NotifyASIStatus:
		return "ASIStatus"
	default:
		return "Unknown"
	}
}

// Precondition classifies an action's eligibility gate (§3).
type Precondition uint8

const (
	PrecondNone Precondition = iota
	PrecondPark
)

// UnassignedMessageID marks a MessageDictionaryEntry with no wire id.
const UnassignedMessageID uint16 = 0xFFFF
