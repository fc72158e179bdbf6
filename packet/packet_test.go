package packet

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConnectionless(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xDE, 0xAD, 0xBE, 0xEF}
	got, err := ParsePacket(data, ClientToServer)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	want := ConnectionlessPacket{Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSequenced(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x9A, 0x02, 0xDE, 0xAD, 0xBE, 0xEF}
	got, err := ParsePacket(data, ClientToServer)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	want := SequencedPacket{Sequence: 0, QPort: 666, HasQPort: true, Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFragmented(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x80, // seq 0, fragment bit set
		0x9A, 0x02, // qport 666
		0x01, 0x00, // frag start 1
		0x04, 0x00, // frag len 4
		0xDE, 0xAD, 0xBE, 0xEF,
	}
	got, err := ParsePacket(data, ClientToServer)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	want := FragmentedPacket{
		Sequence: 0, QPort: 666, HasQPort: true,
		FragStart: 1, FragLength: 4,
		Payload: []byte{0xDE, 0xAD, 0xBE, 0xEF},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if fp := got.(FragmentedPacket); !fp.Last() {
		t.Fatal("4-byte fragment below FragmentSize must be last")
	}
}

func TestParsePacketTooShort(t *testing.T) {
	if _, err := ParsePacket([]byte{0, 0, 0}, ClientToServer); err == nil {
		t.Fatal("expected error for 3-byte datagram")
	}
}

func TestParsePacketOversize(t *testing.T) {
	data := make([]byte, MaxPacketLen+1)
	if _, err := ParsePacket(data, ClientToServer); err == nil {
		t.Fatal("expected error for oversize datagram")
	}
}

func TestParseFragmentMismatch(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x80,
		0x9A, 0x02,
		0x01, 0x00,
		0x05, 0x00, // declares 5 bytes
		0xDE, 0xAD, 0xBE, 0xEF, // only 4 remain
	}
	_, err := ParsePacket(data, ClientToServer)
	if _, ok := err.(*FragmentMismatchError); !ok {
		t.Fatalf("expected *FragmentMismatchError, got %T (%v)", err, err)
	}
}

func TestParseZeroQPort(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xDE, 0xAD}
	_, err := ParsePacket(data, ClientToServer)
	if _, ok := err.(*InvalidQPortError); !ok {
		t.Fatalf("expected *InvalidQPortError, got %T (%v)", err, err)
	}
}

func TestParseServerToClientOmitsQPort(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}
	got, err := ParsePacket(data, ServerToClient)
	if err != nil {
		t.Fatalf("ParsePacket: %v", err)
	}
	sp, ok := got.(SequencedPacket)
	if !ok || sp.HasQPort {
		t.Fatalf("expected qport-less sequenced packet, got %#v", got)
	}
	if !bytes.Equal(sp.Payload, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Fatalf("payload = % x", sp.Payload)
	}
}

func TestClassifyCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"getstatus", CmdGetStatus},
		{"GetInfo xyz", CmdGetInfo},
		{"getchallenge", CmdGetChallenge},
		{"CONNECT ...", CmdConnect},
		{"ipAuthorize 1.2.3.4", CmdIPAuthorize},
	}
	for _, c := range cases {
		got, _, err := ClassifyCommand([]byte(c.in))
		if err != nil {
			t.Fatalf("ClassifyCommand(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ClassifyCommand(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestClassifyCommandUnknown(t *testing.T) {
	_, _, err := ClassifyCommand([]byte("rcon foo"))
	if _, ok := err.(*UnknownCommandError); !ok {
		t.Fatalf("expected *UnknownCommandError, got %T", err)
	}
}

func TestEndToEndConnect(t *testing.T) {
	payload := append([]byte("connect"), buildConnectTail()...)
	cmd, rest, err := ClassifyCommand(payload)
	if err != nil {
		t.Fatalf("ClassifyCommand: %v", err)
	}
	if cmd != CmdConnect {
		t.Fatalf("cmd = %v, want CmdConnect", cmd)
	}
	msg, err := ParseConnect(rest)
	if err != nil {
		t.Fatalf("ParseConnect: %v", err)
	}
	if msg.UserInfo.Len() != 19 {
		t.Fatalf("UserInfo.Len() = %d, want 19", msg.UserInfo.Len())
	}
}

// buildConnectTail returns " " + u16(296) + the canonical userinfo Huffman
// blob, matching the literal end-to-end test vector also checked against the
// huffman package directly.
func buildConnectTail() []byte {
	out := []byte{' ', 0x28, 0x01}
	out = append(out, connectUserinfoBlob...)
	return out
}

var connectUserinfoBlob = []byte{
	0x44, 0x74, 0x30, 0x8e, 0x05, 0x0c, 0xc7, 0x26, 0xc3, 0x14, 0xec, 0x8e, 0xf9, 0x67, 0xd0, 0x1a,
	0x4e, 0x29, 0x98, 0x01, 0xc7, 0xc3, 0x7a, 0x30, 0x2c, 0x2c, 0x19, 0x1c, 0x13, 0x87, 0xc2, 0xde,
	0x71, 0x0a, 0x5c, 0xac, 0x30, 0xcd, 0x40, 0xce, 0x3a, 0xca, 0xaf, 0x96, 0x2a, 0xb0, 0xd9, 0x3a,
	0xb7, 0xb0, 0xfd, 0x4d, 0xa8, 0x0e, 0xc9, 0xba, 0x79, 0x4c, 0x28, 0x0a, 0xc4, 0x0a, 0x4f, 0x83,
	0x02, 0x9b, 0x9f, 0x69, 0xe4, 0x0a, 0xc3, 0x38, 0x47, 0x9b, 0xcf, 0x22, 0xaf, 0x61, 0xf6, 0x64,
	0x6f, 0x13, 0x7c, 0xa3, 0xae, 0x1f, 0xaf, 0x06, 0x52, 0xb7, 0x3c, 0xa3, 0x06, 0x5f, 0x3a, 0xf4,
	0x8f, 0x66, 0xd2, 0x40, 0xac, 0xee, 0x2b, 0x2d, 0xea, 0x38, 0x18, 0xf9, 0xb7, 0xf2, 0x36, 0x37,
	0x80, 0xea, 0x17, 0xe9, 0xd5, 0x40, 0x58, 0xf7, 0x0f, 0xc6, 0xb2, 0x3a, 0x85, 0xe5, 0xbb, 0xca,
	0xf7, 0x78, 0x77, 0x09, 0x2c, 0xe1, 0xe5, 0x7b, 0xcc, 0xad, 0x59, 0x0f, 0x3c, 0xea, 0x67, 0x2a,
	0x37, 0x1a, 0x31, 0xc7, 0x83, 0xe5, 0x02, 0xd7, 0xd1, 0xdd, 0xc0, 0x73, 0xeb, 0xe6, 0x5d, 0x4c,
	0x32, 0x87, 0xa4, 0xa4, 0x8d, 0x2e, 0x1b, 0x08, 0x0b, 0x38, 0x11, 0xac, 0x7b, 0x9a, 0x34, 0x16,
	0xe2, 0xe6, 0xd1, 0x3b, 0xf0, 0xf8, 0xf2, 0x99, 0xda, 0xc4, 0x91, 0xb7, 0x4b, 0x53, 0xcf, 0x82,
	0xa6, 0xda, 0x10, 0x61, 0x89, 0xb0, 0x5b, 0x6c, 0x6e, 0xc3, 0x46, 0xe3, 0xb7, 0x7c, 0x19, 0x62,
	0x38, 0xac, 0x42, 0x48, 0x23, 0xab, 0x11, 0xe6, 0x20, 0x0a, 0xb8, 0x75, 0x91, 0x26, 0x12, 0x6e,
	0x92, 0x25, 0x65, 0xc9, 0x00,
}

func FuzzParsePacket(f *testing.F) {
	f.Add([]byte{0xFF, 0xFF, 0xFF, 0xFF}, uint8(0))
	f.Add([]byte{0x00, 0x00, 0x00, 0x00, 0x9A, 0x02}, uint8(0))
	f.Add([]byte{0x00, 0x00, 0x00, 0x80, 0x9A, 0x02, 0x01, 0x00, 0x04, 0x00}, uint8(0))
	f.Fuzz(func(t *testing.T, data []byte, side uint8) {
		s := ClientToServer
		if side%2 == 1 {
			s = ServerToClient
		}
		_, _ = ParsePacket(data, s)
	})
}
