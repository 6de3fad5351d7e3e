package model

// ActionEntry is one row of the static, compile-time action allow-list
// (§3, §6 "Action IDs & range limits"). 12 entries; range_lo <= range_hi;
// action_id unique.
type ActionEntry struct {
	ActionID uint16
	Precond  Precondition
	RangeLo  uint32
	RangeHi  uint32
	Name     string
}

// Actions is the authoritative 12-entry action list (§6). The design
// note in spec.md §9 warns against indexing this table by enum
// arithmetic (role - action-role-base); callers must look entries up by
// ActionID via ActionByID, never by positional/arithmetic index.
var Actions = [12]ActionEntry{
	{ActionID: 0x0000, Precond: PrecondNone, RangeLo: 0, RangeHi: 4, Name: "hvac_fan"},
	{ActionID: 0x0001, Precond: PrecondNone, RangeLo: 0x32, RangeHi: 0x64, Name: "hvac_cabin_temp"},
	{ActionID: 0x0002, Precond: PrecondNone, RangeLo: 0, RangeHi: 4, Name: "wiper_speed"},
	{ActionID: 0x0003, Precond: PrecondPark, RangeLo: 0, RangeHi: 0x64, Name: "seat_pos_driver"},
	{ActionID: 0x0004, Precond: PrecondNone, RangeLo: 0, RangeHi: 0x64, Name: "seat_pos_passenger"},
	{ActionID: 0x0005, Precond: PrecondNone, RangeLo: 0, RangeHi: 4, Name: "seat_heat_driver"},
	{ActionID: 0x0006, Precond: PrecondNone, RangeLo: 0, RangeHi: 4, Name: "seat_heat_passenger"},
	{ActionID: 0x0007, Precond: PrecondPark, RangeLo: 0, RangeHi: 1, Name: "door_lock"},
	{ActionID: 0x0008, Precond: PrecondNone, RangeLo: 0, RangeHi: 3, Name: "turn_signal"},
	{ActionID: 0x0009, Precond: PrecondNone, RangeLo: 0, RangeHi: 0xFFFFF, Name: "ambient_light"},
	{ActionID: 0x000A, Precond: PrecondPark, RangeLo: 0, RangeHi: 0xFF, Name: "torque_vec_motor_calib"},
	{ActionID: 0x07D0, Precond: PrecondNone, RangeLo: 0, RangeHi: 4, Name: "rain_sensor"},
}

// actionIndex maps action_id -> position in Actions, built once so
// lookups are O(1) by direct map rather than by enum/role arithmetic.
var actionIndex = func() map[uint16]int {
	m := make(map[uint16]int, len(Actions))
	for i, a := range Actions {
		m[a.ActionID] = i
	}
	return m
}()

// ActionByID returns the action entry for id and whether it exists.
func ActionByID(id uint16) (ActionEntry, bool) {
	i, ok := actionIndex[id]
	if !ok {
		return ActionEntry{}, false
	}
	return Actions[i], true
}
