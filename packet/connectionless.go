package packet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/quake3-go/protocol/huffman"
	"github.com/quake3-go/protocol/info"
)

// Command is the closed set of recognised connectionless command tokens
// (§4.D). ClassifyCommand matches case-insensitively, as the wire does.
type Command uint8

const (
	CmdUnknown Command = iota
	CmdGetStatus
	CmdGetInfo
	CmdGetChallenge
	CmdConnect
	CmdIPAuthorize
)

func (c Command) String() string {
	switch c {
	case CmdGetStatus:
		return "getstatus"
	case CmdGetInfo:
		return "getinfo"
	case CmdGetChallenge:
		return "getchallenge"
	case CmdConnect:
		return "connect"
	case CmdIPAuthorize:
		return "ipAuthorize"
	default:
		return "unknown"
	}
}

var commandTokens = map[string]Command{
	"getstatus":    CmdGetStatus,
	"getinfo":      CmdGetInfo,
	"getchallenge": CmdGetChallenge,
	"connect":      CmdConnect,
	"ipauthorize":  CmdIPAuthorize,
}

// UnknownCommandError reports a connectionless payload whose leading token
// isn't one of the recognised commands.
type UnknownCommandError struct{ Token string }

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("packet: unknown command %q", e.Token)
}

// ClassifyCommand reads the leading whitespace-delimited ASCII token from a
// connectionless payload and reports which Command it names, along with the
// untouched remainder (everything after the token, including its leading
// separator, for commands whose payload the caller needs to inspect
// further — e.g. ParseConnect).
func ClassifyCommand(payload []byte) (Command, []byte, error) {
	i := bytes.IndexAny(payload, " \t\n\r")
	token := payload
	rest := payload[len(payload):]
	if i >= 0 {
		token = payload[:i]
		rest = payload[i:]
	}
	cmd, ok := commandTokens[strings.ToLower(string(token))]
	if !ok {
		return CmdUnknown, nil, &UnknownCommandError{Token: string(token)}
	}
	return cmd, rest, nil
}

// ConnectMessage is the fully decoded payload of a connectionless "connect"
// command: a Huffman-compressed, quote-delimited info string (§4.D step
// 1-5).
type ConnectMessage struct {
	UserInfo *info.Map
}

// MissingSpaceError reports that "connect" wasn't followed by a single space.
type MissingSpaceError struct{}

func (e *MissingSpaceError) Error() string { return "packet: connect not followed by a space" }

// MissingQuotesError reports that the decoded Huffman payload wasn't
// wrapped in a leading and trailing double quote.
type MissingQuotesError struct{}

func (e *MissingQuotesError) Error() string { return "packet: decoded connect payload missing quotes" }

// ParseConnect implements §4.D's connect inner format: a single space, a
// little-endian u16 decoded length, then a Huffman blob that must decode to
// a quote-delimited info string parseable under the standard 1024-byte
// limit.
func ParseConnect(rest []byte) (*ConnectMessage, error) {
	if len(rest) < 1 || rest[0] != ' ' {
		return nil, &MissingSpaceError{}
	}
	rest = rest[1:]

	if len(rest) < 2 {
		return nil, &InvalidSizeError{Pos: 0, Want: 2, Got: len(rest)}
	}
	decodedLen := binary.LittleEndian.Uint16(rest[:2])
	blob := rest[2:]

	decoded, err := huffman.Decode(blob, int(decodedLen))
	if err != nil {
		return nil, fmt.Errorf("packet: decoding connect payload: %w", err)
	}

	if len(decoded) < 2 || decoded[0] != '"' || decoded[len(decoded)-1] != '"' {
		return nil, &MissingQuotesError{}
	}
	interior := decoded[1 : len(decoded)-1]

	m, err := info.Parse(interior, info.StandardLimit)
	if err != nil {
		return nil, fmt.Errorf("packet: parsing connect user info: %w", err)
	}

	return &ConnectMessage{UserInfo: m}, nil
}
