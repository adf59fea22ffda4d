package backend

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Minimal OSC 1.0 codec covering the subset QLab speaks: an address
// pattern, a type tag string, and string/int32/float32 arguments, all
// padded to 4-byte boundaries.

type oscMessage struct {
	Addr string
	Args []any
}

func (m oscMessage) encode() ([]byte, error) {
	var buf bytes.Buffer
	writePaddedString(&buf, m.Addr)

	tags := ","
	for _, arg := range m.Args {
		switch arg.(type) {
		case string:
			tags += "s"
		case int32:
			tags += "i"
		case float32:
			tags += "f"
		default:
			return nil, fmt.Errorf("osc: unsupported argument type %T", arg)
		}
	}
	writePaddedString(&buf, tags)

	for _, arg := range m.Args {
		switch v := arg.(type) {
		case string:
			writePaddedString(&buf, v)
		case int32:
			binary.Write(&buf, binary.BigEndian, v)
		case float32:
			binary.Write(&buf, binary.BigEndian, math.Float32bits(v))
		}
	}
	return buf.Bytes(), nil
}

func decodeOSCMessage(data []byte) (oscMessage, error) {
	addr, rest, err := readPaddedString(data)
	if err != nil {
		return oscMessage{}, fmt.Errorf("osc: address: %w", err)
	}
	if !strings.HasPrefix(addr, "/") {
		return oscMessage{}, fmt.Errorf("osc: malformed address %q", addr)
	}
	msg := oscMessage{Addr: addr}

	// Messages without a type tag string are legal (QLab never sends
	// them, but a bare address should not be a parse failure).
	if len(rest) == 0 {
		return msg, nil
	}
	tags, rest, err := readPaddedString(rest)
	if err != nil {
		return oscMessage{}, fmt.Errorf("osc: type tags: %w", err)
	}
	if !strings.HasPrefix(tags, ",") {
		return oscMessage{}, fmt.Errorf("osc: malformed type tags %q", tags)
	}

	for _, tag := range tags[1:] {
		switch tag {
		case 's':
			var s string
			s, rest, err = readPaddedString(rest)
			if err != nil {
				return oscMessage{}, fmt.Errorf("osc: string arg: %w", err)
			}
			msg.Args = append(msg.Args, s)
		case 'i':
			if len(rest) < 4 {
				return oscMessage{}, fmt.Errorf("osc: truncated int32 arg")
			}
			msg.Args = append(msg.Args, int32(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 'f':
			if len(rest) < 4 {
				return oscMessage{}, fmt.Errorf("osc: truncated float32 arg")
			}
			msg.Args = append(msg.Args, math.Float32frombits(binary.BigEndian.Uint32(rest)))
			rest = rest[4:]
		case 'T', 'F', 'N':
			// No payload bytes for these tags.
		default:
			return oscMessage{}, fmt.Errorf("osc: unsupported type tag %q", tag)
		}
	}
	return msg, nil
}

// firstString returns the first string argument, the only payload shape
// QLab replies use.
func (m oscMessage) firstString() (string, bool) {
	for _, arg := range m.Args {
		if s, ok := arg.(string); ok {
			return s, true
		}
	}
	return "", false
}

// replyEnvelope is the JSON body QLab wraps every /reply payload in.
type replyEnvelope struct {
	WorkspaceID string          `json:"workspace_id"`
	Address     string          `json:"address"`
	Status      string          `json:"status"`
	Data        json.RawMessage `json:"data"`
}

func parseReplyEnvelope(payload string) (replyEnvelope, error) {
	var env replyEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return replyEnvelope{}, fmt.Errorf("reply envelope: %w", err)
	}
	return env, nil
}

func writePaddedString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

func readPaddedString(data []byte) (string, []byte, error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, fmt.Errorf("unterminated string")
	}
	s := string(data[:i])
	// Consume the terminator and padding up to the 4-byte boundary.
	end := i + 1
	for end%4 != 0 {
		end++
	}
	if end > len(data) {
		end = len(data)
	}
	return s, data[end:], nil
}
