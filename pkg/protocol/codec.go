package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownType    = errors.New("unknown frame type")
)

// DecodeEvent parses an inbound frame into its typed event. The type
// discriminator is peeked first so a payload error on one field never gets
// confused with a frame of a type this client does not speak.
func DecodeEvent(frame []byte) (Event, error) {
	if !gjson.ValidBytes(frame) {
		return nil, ErrMalformedFrame
	}
	discriminator := gjson.GetBytes(frame, "type")
	if !discriminator.Exists() {
		return nil, fmt.Errorf("%w: missing type discriminator", ErrMalformedFrame)
	}

	switch discriminator.String() {
	case TypeConnectionEstablished:
		var ev ConnectionEstablished
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	case TypeMessage:
		var ev MessageReceived
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	case TypeTyping:
		var ev TypingChanged
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	case TypeReadReceipt:
		var ev ReadReceipt
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	case TypeUserStatus:
		var ev PresenceChanged
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	case TypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, discriminator.String())
	}
}

// EncodeCommand serializes an outbound command to its wire frame.
func EncodeCommand(cmd Command) ([]byte, error) {
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s command: %w", cmd.CommandType(), err)
	}
	return data, nil
}
