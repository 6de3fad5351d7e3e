package model

// ProcessMsg is the canonical post-parse carrier handed from ICM-RX to
// downstream tasks (§3).
type ProcessMsg struct {
	Type    uint16
	Length  uint16
	MsgID   uint16
	Seq     uint16
	Payload [8]byte
}

// MessageDictionaryEntry binds a MessageRole to its wire message_id (or
// UnassignedMessageID when the role carries no identity of its own — e.g.
// acks, which identify their subject via the payload's own msg_id field)
// and its MessageKind (§3, 22 entries, role unique, message_id unique
// when assigned).
type MessageDictionaryEntry struct {
	Role      MessageRole
	MessageID uint16
	Kind      MessageKind
}

// MessageDictionary is the static 22-entry table (§3).
var MessageDictionary = [22]MessageDictionaryEntry{
	{Role: RoleActionRequest, MessageID: UnassignedMessageID, Kind: KindAction},
	{Role: RoleHVACFan, MessageID: 0x0000, Kind: KindAction},
	{Role: RoleHVACTemp, MessageID: 0x0001, Kind: KindAction},
	{Role: RoleWiperSpeed, MessageID: 0x0002, Kind: KindAction},
	{Role: RoleSeatDriver, MessageID: 0x0003, Kind: KindAction},
	{Role: RoleSeatPassenger, MessageID: 0x0004, Kind: KindAction},
	{Role: RoleSeatHeatDriver, MessageID: 0x0005, Kind: KindAction},
	{Role: RoleSeatHeatPassenger, MessageID: 0x0006, Kind: KindAction},
	{Role: RoleDoorLock, MessageID: 0x0007, Kind: KindAction},
	{Role: RoleTurnSignal, MessageID: 0x0008, Kind: KindAction},
	{Role: RoleAmbientLight, MessageID: 0x0009, Kind: KindAction},
	{Role: RoleTorqueCalib, MessageID: 0x000A, Kind: KindAction},
	{Role: RoleRainSensor, MessageID: 0x07D0, Kind: KindAction},
	{Role: RoleCMStatus, MessageID: 0x0100, Kind: KindStatus},
	{Role: RoleAckFromVAM, MessageID: UnassignedMessageID, Kind: KindAck},
	{Role: RoleAckFromCM, MessageID: UnassignedMessageID, Kind: KindAck},
	{Role: RoleCalReadback, MessageID: UnassignedMessageID, Kind: KindCalReadback},
	{Role: RoleFailCritical, MessageID: 0x0200, Kind: KindNotification},
	{Role: RoleFailNonCritical, MessageID: 0x0201, Kind: KindNotification},
	{Role: RoleNotificationOut, MessageID: UnassignedMessageID, Kind: KindNotification},
	{Role: RoleSafeStateStatus, MessageID: 0x0300, Kind: KindNotification},
	{Role: RoleStartupTestResult, MessageID: 0x0301, Kind: KindNotification},
}

var messageByRole = func() map[MessageRole]MessageDictionaryEntry {
	m := make(map[MessageRole]MessageDictionaryEntry, len(MessageDictionary))
	for _, e := range MessageDictionary {
		m[e.Role] = e
	}
	return m
}()

// MessageByRole looks up a dictionary entry by role.
func MessageByRole(r MessageRole) (MessageDictionaryEntry, bool) {
	e, ok := messageByRole[r]
	return e, ok
}

// MessageKindEntry declares the allowed TLV payload lengths for a wire
// type (§3, 5 entries, up to 3 allowed lengths each).
type MessageKindEntry struct {
	TypeID        uint16
	Kind          MessageKind
	AllowedLengths [3]uint8
	NumLengths    int
}

// MessageKinds is the static 5-entry kind/length table (§6 message types).
var MessageKinds = [5]MessageKindEntry{
	{TypeID: uint16(TypeAction), Kind: KindAction, AllowedLengths: [3]uint8{1, 4, 8}, NumLengths: 3},
	{TypeID: uint16(TypeStatus), Kind: KindStatus, AllowedLengths: [3]uint8{8}, NumLengths: 1},
	{TypeID: uint16(TypeAck), Kind: KindAck, AllowedLengths: [3]uint8{1}, NumLengths: 1},
	{TypeID: uint16(TypeNotification), Kind: KindNotification, AllowedLengths: [3]uint8{1, 2}, NumLengths: 2},
	{TypeID: uint16(TypeCalReadback), Kind: KindCalReadback, AllowedLengths: [3]uint8{1, 4, 8}, NumLengths: 3},
}

var kindByType = func() map[uint16]MessageKindEntry {
	m := make(map[uint16]MessageKindEntry, len(MessageKinds))
	for _, e := range MessageKinds {
		m[e.TypeID] = e
	}
	return m
}()

// KindByType looks up the kind/length table by wire type.
func KindByType(t uint16) (MessageKindEntry, bool) {
	e, ok := kindByType[t]
	return e, ok
}

// LengthAllowed reports whether length is one of the entry's allowed
// lengths.
func (e MessageKindEntry) LengthAllowed(length uint16) bool {
	for i := 0; i < e.NumLengths; i++ {
		if uint16(e.AllowedLengths[i]) == length {
			return true
		}
	}
	return false
}
