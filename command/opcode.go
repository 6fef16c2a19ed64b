package command

// Opcode identifies one entity-mutation instruction on the wire
// Numbering is a private contract between Encode and Decode; it is not
// meaningful to anything outside this package
type Opcode uint8

const (
	OpSpawnEntity         Opcode = 1
	OpDespawnEntity       Opcode = 2
	OpSetPosition         Opcode = 3
	OpSetVelocity         Opcode = 4
	OpSetRotation         Opcode = 5
	OpSetScale            Opcode = 6
	OpSetTextureLayer     Opcode = 7
	OpSetMeshHandle       Opcode = 8
	OpSetRenderPrimitive  Opcode = 9
	OpSetParent           Opcode = 10
	OpSetPrimParams0      Opcode = 11
	OpSetPrimParams1      Opcode = 12
	OpSetListenerPosition Opcode = 13

	// OpShutdown is an in-band control marker used by the topology bridge
	// to tell the consumer side to stop draining. Never issued by callers
	OpShutdown Opcode = 0xFF
)

// UnparentSentinel in a SetParent payload detaches the entity
const UnparentSentinel uint32 = 0xFFFFFFFF

// HeaderSize is opcode byte plus entity id
const HeaderSize = 1 + 4

// MaxEncodedSize is the largest command on the wire (header + 4xf32)
const MaxEncodedSize = HeaderSize + 16

// PayloadSize returns the fixed payload byte count for op
// The decoder knows every opcode's shape, so no length prefix is carried
func PayloadSize(op Opcode) (int, bool) {
	switch op {
	case OpSpawnEntity, OpDespawnEntity, OpShutdown:
		return 0, true
	case OpSetPosition, OpSetVelocity, OpSetScale, OpSetListenerPosition:
		return 12, true
	case OpSetRotation, OpSetPrimParams0, OpSetPrimParams1:
		return 16, true
	case OpSetTextureLayer, OpSetMeshHandle, OpSetRenderPrimitive, OpSetParent:
		return 4, true
	default:
		return 0, false
	}
}

// EncodedSize returns header plus payload for op
func EncodedSize(op Opcode) (int, bool) {
	p, ok := PayloadSize(op)
	if !ok {
		return 0, false
	}
	return HeaderSize + p, true
}

func (op Opcode) String() string {
	switch op {
	case OpSpawnEntity:
		return "SpawnEntity"
	case OpDespawnEntity:
		return "DespawnEntity"
	case OpSetPosition:
		return "SetPosition"
	case OpSetVelocity:
		return "SetVelocity"
	case OpSetRotation:
		return "SetRotation"
	case OpSetScale:
		return "SetScale"
	case OpSetTextureLayer:
		return "SetTextureLayer"
	case OpSetMeshHandle:
		return "SetMeshHandle"
	case OpSetRenderPrimitive:
		return "SetRenderPrimitive"
	case OpSetParent:
		return "SetParent"
	case OpSetPrimParams0:
		return "SetPrimParams0"
	case OpSetPrimParams1:
		return "SetPrimParams1"
	case OpSetListenerPosition:
		return "SetListenerPosition"
	case OpShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}
