// Package fault implements the bounded, severity-prioritized event queue
// and the fault manager (FM) task body (spec.md §4.5, §7).
package fault

import "github.com/nmxmxh/asi-supervisor/internal/model"

// EventID enumerates every fault/lifecycle event the supervisor can
// raise. Values are stable across a run (never renumbered at runtime —
// compile-time constant, matching the "no dynamic action registration"
// posture of the rest of the static tables).
type EventID uint16

const (
	EventNone EventID = iota

	// Integrity faults (Critical) — §7.
	EventMsgCRCCheck
	EventRollCount
	EventMsgTypeLength
	EventMsgTimeout
	EventCalReadbackTimeout
	EventCalReadbackError
	EventStartupMemError
	EventECUCriticalFail
	EventSMTransitionError
	EventOverrun

	// Info faults (Normal) — §7.
	EventInfoAckLoss
	EventInfoAckUnsuccess
	EventVehicleStatusMismatch
	EventVehicleStatusError
	EventInfoInvalidVehicleData
	EventInfoMsgLoss
	EventCommLoss
	EventActionListError
	EventActionReqRangeCheckError
	EventActionReqPrecondListError
	EventActionRequestProcessTimeout
	EventECUNonCriticalFail

	// Lifecycle (Minor) — §7.
	EventInitComplete
	EventStartupTestResult

	eventIDCount
)

// severityTable is the compile-time event-id -> severity mapping (§4.5
// "Each event-id has a compile-time severity mapping").
var severityTable = [eventIDCount]model.Severity{
	EventNone:                         model.SeverityMinor,
	EventMsgCRCCheck:                  model.SeverityCritical,
	EventRollCount:                    model.SeverityCritical,
	EventMsgTypeLength:                model.SeverityCritical,
	EventMsgTimeout:                   model.SeverityCritical,
	EventCalReadbackTimeout:           model.SeverityCritical,
	EventCalReadbackError:             model.SeverityCritical,
	EventStartupMemError:              model.SeverityCritical,
	EventECUCriticalFail:              model.SeverityCritical,
	EventSMTransitionError:            model.SeverityCritical,
	EventOverrun:                      model.SeverityCritical,
	EventInfoAckLoss:                  model.SeverityNormal,
	EventInfoAckUnsuccess:             model.SeverityNormal,
	EventVehicleStatusMismatch:        model.SeverityNormal,
	EventVehicleStatusError:           model.SeverityNormal,
	EventInfoInvalidVehicleData:       model.SeverityNormal,
	EventInfoMsgLoss:                  model.SeverityNormal,
	EventCommLoss:                     model.SeverityNormal,
	EventActionListError:              model.SeverityNormal,
	EventActionReqRangeCheckError:     model.SeverityNormal,
	EventActionReqPrecondListError:    model.SeverityNormal,
	EventActionRequestProcessTimeout:  model.SeverityNormal,
	EventECUNonCriticalFail:           model.SeverityNormal,
	EventInitComplete:                 model.SeverityMinor,
	EventStartupTestResult:            model.SeverityMinor,
}

// Severity returns the compile-time severity of id, or false if id is
// outside the valid range (§4.5 "Valid event-id range check").
func Severity(id EventID) (model.Severity, bool) {
	if id <= EventNone || id >= eventIDCount {
		return 0, false
	}
	return severityTable[id], true
}

// IsCritical reports whether id's severity sets the CriticalFaultFlag.
func IsCritical(id EventID) bool {
	sev, ok := Severity(id)
	return ok && sev == model.SeverityCritical
}

func (id EventID) String() string {
	names := [eventIDCount]string{
		"None",
		"MsgCRCCheck", "RollCount", "MsgTypeLength", "MsgTimeout",
		"CalReadbackTimeout", "CalReadbackError", "StartupMemError",
		"ECUCriticalFail", "SMTransitionError", "Overrun",
		"InfoAckLoss", "InfoAckUnsuccess", "VehicleStatusMismatch",
		"VehicleStatusError", "InfoInvalidVehicleData", "InfoMsgLoss",
		"CommLoss", "ActionListError", "ActionReqRangeCheckError",
		"ActionReqPrecondListError", "ActionRequestProcessTimeout",
		"ECUNonCriticalFail", "InitComplete", "StartupTestResult",
	}
	if int(id) < len(names) {
		return names[id]
	}
	return "Unknown"
}
