package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Command is one decoded entity-mutation instruction
// Only the fields relevant to Op are meaningful:
//   - Vec:  SetPosition, SetVelocity, SetScale, SetListenerPosition
//   - Quad: SetRotation (quaternion x,y,z,w), SetPrimParams0/1
//   - Ref:  SetTextureLayer, SetMeshHandle, SetRenderPrimitive, SetParent
type Command struct {
	Op     Opcode
	Entity uint32
	Vec    [3]float32
	Quad   [4]float32
	Ref    uint32
}

var (
	// ErrUnknownOpcode means the stream carries an opcode this build does
	// not know; producer and consumer are protocol-mismatched
	ErrUnknownOpcode = errors.New("command: unknown opcode")

	// ErrTruncated means the span ends before the opcode's fixed payload
	ErrTruncated = errors.New("command: truncated command")

	// ErrShortBuffer means the destination cannot hold the encoded command
	ErrShortBuffer = errors.New("command: destination buffer too small")
)

// Encode writes c into dst little-endian, unaligned, and returns the byte
// count. Encoding is deterministic: the same command always produces the
// same bytes
func Encode(dst []byte, c Command) (int, error) {
	size, ok := EncodedSize(c.Op)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownOpcode, c.Op)
	}
	if len(dst) < size {
		return 0, ErrShortBuffer
	}

	dst[0] = byte(c.Op)
	binary.LittleEndian.PutUint32(dst[1:], c.Entity)

	switch c.Op {
	case OpSpawnEntity, OpDespawnEntity, OpShutdown:
		// Header only
	case OpSetPosition, OpSetVelocity, OpSetScale, OpSetListenerPosition:
		putF32(dst[5:], c.Vec[0])
		putF32(dst[9:], c.Vec[1])
		putF32(dst[13:], c.Vec[2])
	case OpSetRotation, OpSetPrimParams0, OpSetPrimParams1:
		putF32(dst[5:], c.Quad[0])
		putF32(dst[9:], c.Quad[1])
		putF32(dst[13:], c.Quad[2])
		putF32(dst[17:], c.Quad[3])
	case OpSetTextureLayer, OpSetMeshHandle, OpSetRenderPrimitive, OpSetParent:
		binary.LittleEndian.PutUint32(dst[5:], c.Ref)
	}
	return size, nil
}

// Decode reads one command from the front of src and returns it along with
// the bytes consumed. Spans shorter than the opcode's required size are
// rejected without reading past the end
func Decode(src []byte) (Command, int, error) {
	if len(src) < HeaderSize {
		return Command{}, 0, ErrTruncated
	}
	op := Opcode(src[0])
	size, ok := EncodedSize(op)
	if !ok {
		return Command{}, 0, fmt.Errorf("%w: %d", ErrUnknownOpcode, op)
	}
	if len(src) < size {
		return Command{}, 0, fmt.Errorf("%w: %s needs %d bytes, have %d",
			ErrTruncated, op, size, len(src))
	}

	c := Command{
		Op:     op,
		Entity: binary.LittleEndian.Uint32(src[1:]),
	}
	switch op {
	case OpSpawnEntity, OpDespawnEntity, OpShutdown:
		// Header only
	case OpSetPosition, OpSetVelocity, OpSetScale, OpSetListenerPosition:
		c.Vec[0] = getF32(src[5:])
		c.Vec[1] = getF32(src[9:])
		c.Vec[2] = getF32(src[13:])
	case OpSetRotation, OpSetPrimParams0, OpSetPrimParams1:
		c.Quad[0] = getF32(src[5:])
		c.Quad[1] = getF32(src[9:])
		c.Quad[2] = getF32(src[13:])
		c.Quad[3] = getF32(src[17:])
	case OpSetTextureLayer, OpSetMeshHandle, OpSetRenderPrimitive, OpSetParent:
		c.Ref = binary.LittleEndian.Uint32(src[5:])
	}
	return c, size, nil
}

func putF32(dst []byte, f float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
}

func getF32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}

// Constructors for each opcode family, the producer-facing way to build
// commands without touching union fields directly

func Spawn(entity uint32) Command {
	return Command{Op: OpSpawnEntity, Entity: entity}
}

func Despawn(entity uint32) Command {
	return Command{Op: OpDespawnEntity, Entity: entity}
}

func SetPosition(entity uint32, x, y, z float32) Command {
	return Command{Op: OpSetPosition, Entity: entity, Vec: [3]float32{x, y, z}}
}

func SetVelocity(entity uint32, x, y, z float32) Command {
	return Command{Op: OpSetVelocity, Entity: entity, Vec: [3]float32{x, y, z}}
}

func SetRotation(entity uint32, x, y, z, w float32) Command {
	return Command{Op: OpSetRotation, Entity: entity, Quad: [4]float32{x, y, z, w}}
}

func SetScale(entity uint32, x, y, z float32) Command {
	return Command{Op: OpSetScale, Entity: entity, Vec: [3]float32{x, y, z}}
}

func SetTextureLayer(entity uint32, layer uint32) Command {
	return Command{Op: OpSetTextureLayer, Entity: entity, Ref: layer}
}

func SetMeshHandle(entity uint32, mesh uint32) Command {
	return Command{Op: OpSetMeshHandle, Entity: entity, Ref: mesh}
}

func SetRenderPrimitive(entity uint32, prim uint32) Command {
	return Command{Op: OpSetRenderPrimitive, Entity: entity, Ref: prim}
}

func SetParent(entity uint32, parent uint32) Command {
	return Command{Op: OpSetParent, Entity: entity, Ref: parent}
}

func SetPrimParams0(entity uint32, a, b, c, d float32) Command {
	return Command{Op: OpSetPrimParams0, Entity: entity, Quad: [4]float32{a, b, c, d}}
}

func SetPrimParams1(entity uint32, a, b, c, d float32) Command {
	return Command{Op: OpSetPrimParams1, Entity: entity, Quad: [4]float32{a, b, c, d}}
}

func SetListenerPosition(entity uint32, x, y, z float32) Command {
	return Command{Op: OpSetListenerPosition, Entity: entity, Vec: [3]float32{x, y, z}}
}
