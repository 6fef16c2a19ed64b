package command

import (
	"bytes"
	"errors"
	"testing"
)

func TestRoundTripAllOpcodes(t *testing.T) {
	cases := []Command{
		Spawn(42),
		Despawn(7),
		SetPosition(42, 1.0, 2.0, 3.0),
		SetVelocity(42, -0.5, 0.25, 100),
		SetRotation(9, 0, 0.7071, 0, 0.7071),
		SetScale(9, 2, 2, 2),
		SetTextureLayer(3, 17),
		SetMeshHandle(3, 0xDEADBEEF),
		SetRenderPrimitive(3, 4),
		SetParent(3, UnparentSentinel),
		SetPrimParams0(5, 0.1, 0.2, 0.3, 0.4),
		SetPrimParams1(5, 1, 2, 3, 4),
		SetListenerPosition(0, -1, -2, -3),
	}

	var buf [MaxEncodedSize]byte
	for _, want := range cases {
		n, err := Encode(buf[:], want)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", want.Op, err)
		}
		size, _ := EncodedSize(want.Op)
		if n != size {
			t.Errorf("%s: encoded %d bytes, want %d", want.Op, n, size)
		}

		got, consumed, err := Decode(buf[:n])
		if err != nil {
			t.Fatalf("%s: decode failed: %v", want.Op, err)
		}
		if consumed != n {
			t.Errorf("%s: consumed %d bytes, want %d", want.Op, consumed, n)
		}
		if got != want {
			t.Errorf("%s: round trip mismatch:\n got %+v\nwant %+v", want.Op, got, want)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	var a, b [MaxEncodedSize]byte
	cmd := SetPosition(42, 1.0, 2.0, 3.0)
	n1, _ := Encode(a[:], cmd)
	n2, _ := Encode(b[:], cmd)
	if n1 != n2 || !bytes.Equal(a[:n1], b[:n2]) {
		t.Errorf("same command produced different bytes: %x vs %x", a[:n1], b[:n2])
	}
}

func TestWireLayoutLittleEndian(t *testing.T) {
	var buf [MaxEncodedSize]byte
	n, err := Encode(buf[:], SetTextureLayer(0x01020304, 7))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		byte(OpSetTextureLayer), // opcode value 7
		0x04, 0x03, 0x02, 0x01,  // entity id, little-endian
		0x07, 0x00, 0x00, 0x00,  // layer, little-endian
	}
	if !bytes.Equal(buf[:n], want) {
		t.Errorf("wire bytes = %x, want %x", buf[:n], want)
	}
	if buf[0] != 7 {
		t.Errorf("SetTextureLayer opcode byte = %d, want 7", buf[0])
	}
}

func TestDecodeTruncatedPayload(t *testing.T) {
	var buf [MaxEncodedSize]byte
	n, _ := Encode(buf[:], SetPosition(42, 1, 2, 3))

	for cut := 1; cut < n; cut++ {
		_, _, err := Decode(buf[:cut])
		if !errors.Is(err, ErrTruncated) {
			t.Errorf("cut at %d bytes: err = %v, want ErrTruncated", cut, err)
		}
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	raw := []byte{0x60, 0, 0, 0, 0, 0, 0, 0, 0}
	_, _, err := Decode(raw)
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestEncodedSizeTable(t *testing.T) {
	sizes := map[Opcode]int{
		OpSpawnEntity:         5,
		OpDespawnEntity:       5,
		OpSetPosition:         17,
		OpSetVelocity:         17,
		OpSetRotation:         21,
		OpSetScale:            17,
		OpSetTextureLayer:     9,
		OpSetMeshHandle:       9,
		OpSetRenderPrimitive:  9,
		OpSetParent:           9,
		OpSetPrimParams0:      21,
		OpSetPrimParams1:      21,
		OpSetListenerPosition: 17,
		OpShutdown:            5,
	}
	for op, want := range sizes {
		got, ok := EncodedSize(op)
		if !ok || got != want {
			t.Errorf("EncodedSize(%s) = %d,%v, want %d", op, got, ok, want)
		}
	}
	if _, ok := EncodedSize(Opcode(200)); ok {
		t.Error("EncodedSize accepted an unknown opcode")
	}
}

func TestEncodeShortBuffer(t *testing.T) {
	var buf [4]byte
	if _, err := Encode(buf[:], Spawn(1)); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("err = %v, want ErrShortBuffer", err)
	}
}
