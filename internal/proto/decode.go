package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Envelope frames every inbound message. Seq is optional; when present the
// issuer expects an acknowledgement for the command.
type Envelope struct {
	Ver  int             `json:"ver,omitempty"`
	Type string          `json:"type"`
	Seq  uint64          `json:"seq,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ErrUnknownType marks a command type outside the closed union.
var ErrUnknownType = errors.New("unknown command type")

// ErrMissingField marks a payload lacking a required identifier.
var ErrMissingField = errors.New("missing required field")

// DecodeError wraps a decode failure with whatever envelope context was
// recoverable, so the session can still reject an acknowledged command by
// its seq.
type DecodeError struct {
	Type string
	Seq  uint64
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("decode command: %v", e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DecodeCommand parses a raw frame into the command union, validating that
// required identifiers are present. Malformed frames and unknown types
// return a *DecodeError.
func DecodeCommand(payload []byte) (Command, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Command{}, &DecodeError{Err: err}
	}

	cmd := Command{Type: CommandType(env.Type), Seq: env.Seq}
	fail := func(err error) (Command, error) {
		return Command{}, &DecodeError{Type: env.Type, Seq: env.Seq, Err: err}
	}
	unmarshal := func(dst any) error {
		if len(env.Data) == 0 {
			return nil
		}
		return json.Unmarshal(env.Data, dst)
	}

	switch cmd.Type {
	case CmdIdentify:
		payload := &IdentifyCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		cmd.Identify = payload

	case CmdPositionUpdate:
		payload := &PositionCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.TokenID == "" {
			return fail(fmt.Errorf("tokenId: %w", ErrMissingField))
		}
		cmd.Position = payload

	case CmdTokenImageUpdate:
		payload := &TokenImageCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.TokenID == "" {
			return fail(fmt.Errorf("tokenId: %w", ErrMissingField))
		}
		cmd.TokenImage = payload

	case CmdTokenSizeUpdate:
		payload := &TokenSizeCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.TokenID == "" {
			return fail(fmt.Errorf("tokenId: %w", ErrMissingField))
		}
		cmd.TokenSize = payload

	case CmdAddToken:
		payload := &AddTokenCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		cmd.AddToken = payload

	case CmdRemoveToken:
		payload := &RemoveTokenCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.PersistentID == "" {
			return fail(fmt.Errorf("persistentId: %w", ErrMissingField))
		}
		cmd.RemoveToken = payload

	case CmdAddCover:
		payload := &AddCoverCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		cmd.AddCover = payload

	case CmdUpdateCover:
		payload := &UpdateCoverCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.CoverID == "" {
			return fail(fmt.Errorf("coverId: %w", ErrMissingField))
		}
		cmd.UpdateCover = payload

	case CmdRemoveCover:
		payload := &RemoveCoverCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.CoverID == "" {
			return fail(fmt.Errorf("coverId: %w", ErrMissingField))
		}
		cmd.RemoveCover = payload

	case CmdBattlemapCreate:
		payload := &BattlemapCreateCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.Name == "" {
			return fail(fmt.Errorf("name: %w", ErrMissingField))
		}
		cmd.Create = payload

	case CmdBattlemapRename:
		payload := &BattlemapRenameCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.BattlemapID == "" {
			return fail(fmt.Errorf("battlemapId: %w", ErrMissingField))
		}
		if payload.Name == "" {
			return fail(fmt.Errorf("name: %w", ErrMissingField))
		}
		cmd.Rename = payload

	case CmdBattlemapMapPath:
		payload := &BattlemapMapPathCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.BattlemapID == "" {
			return fail(fmt.Errorf("battlemapId: %w", ErrMissingField))
		}
		cmd.MapPath = payload

	case CmdBattlemapSettings:
		payload := &BattlemapSettingsCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.BattlemapID == "" {
			return fail(fmt.Errorf("battlemapId: %w", ErrMissingField))
		}
		cmd.Settings = payload

	case CmdBattlemapGridData:
		payload := &BattlemapGridDataCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.BattlemapID == "" {
			return fail(fmt.Errorf("battlemapId: %w", ErrMissingField))
		}
		cmd.GridData = payload

	case CmdBattlemapDelete, CmdBattlemapSetActive, CmdBattlemapGet:
		payload := &BattlemapTargetCommand{}
		if err := unmarshal(payload); err != nil {
			return fail(err)
		}
		if payload.BattlemapID == "" {
			return fail(fmt.Errorf("battlemapId: %w", ErrMissingField))
		}
		cmd.Target = payload

	case CmdBattlemapList:
		// No payload.

	default:
		return fail(fmt.Errorf("%q: %w", env.Type, ErrUnknownType))
	}

	return cmd, nil
}
