package proto

import (
	"errors"
	"testing"
)

func TestDecodeCommandEveryType(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		verify  func(t *testing.T, cmd Command)
	}{
		{
			name:    "identify",
			payload: `{"ver":1,"type":"identify","data":{"persistentId":"p1","role":"display","mutationAuthority":false,"suppressPresence":true}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Identify == nil {
					t.Fatalf("missing identify payload")
				}
				if cmd.Identify.PersistentID != "p1" || cmd.Identify.Role != "display" {
					t.Fatalf("unexpected payload: %+v", cmd.Identify)
				}
				if cmd.Identify.MutationAuthority == nil || *cmd.Identify.MutationAuthority {
					t.Fatalf("expected explicit authority override to survive")
				}
				if !cmd.Identify.SuppressPresence {
					t.Fatalf("expected suppressPresence flag")
				}
			},
		},
		{
			name:    "position-update",
			payload: `{"ver":1,"type":"position-update","data":{"tokenId":"p1","position":{"x":12.5,"y":80}}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Position == nil || cmd.Position.TokenID != "p1" || cmd.Position.Position.X != 12.5 {
					t.Fatalf("unexpected payload: %+v", cmd.Position)
				}
			},
		},
		{
			name:    "token-image-update",
			payload: `{"ver":1,"type":"token-image-update","data":{"tokenId":"p1","imageSrc":"/uploads/t.png"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.TokenImage == nil || cmd.TokenImage.ImageSrc != "/uploads/t.png" {
					t.Fatalf("unexpected payload: %+v", cmd.TokenImage)
				}
			},
		},
		{
			name:    "token-size-update",
			payload: `{"ver":1,"type":"token-size-update","data":{"tokenId":"p1","size":"huge"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.TokenSize == nil || cmd.TokenSize.Size != "huge" {
					t.Fatalf("unexpected payload: %+v", cmd.TokenSize)
				}
			},
		},
		{
			name:    "add-token",
			payload: `{"ver":1,"type":"add-token","seq":4,"data":{"color":"#ef4444","position":{"x":50,"y":50}}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.AddToken == nil || cmd.AddToken.Color != "#ef4444" {
					t.Fatalf("unexpected payload: %+v", cmd.AddToken)
				}
				if cmd.Seq != 4 {
					t.Fatalf("expected seq 4, got %d", cmd.Seq)
				}
			},
		},
		{
			name:    "remove-token",
			payload: `{"ver":1,"type":"remove-token","seq":5,"data":{"persistentId":"p9"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.RemoveToken == nil || cmd.RemoveToken.PersistentID != "p9" {
					t.Fatalf("unexpected payload: %+v", cmd.RemoveToken)
				}
			},
		},
		{
			name:    "add-cover",
			payload: `{"ver":1,"type":"add-cover","seq":6,"data":{"x":10,"y":20,"width":30,"height":5}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.AddCover == nil || cmd.AddCover.Width != 30 {
					t.Fatalf("unexpected payload: %+v", cmd.AddCover)
				}
			},
		},
		{
			name:    "update-cover",
			payload: `{"ver":1,"type":"update-cover","seq":7,"data":{"coverId":"c1","width":40}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.UpdateCover == nil || cmd.UpdateCover.CoverID != "c1" {
					t.Fatalf("unexpected payload: %+v", cmd.UpdateCover)
				}
				if cmd.UpdateCover.Width == nil || *cmd.UpdateCover.Width != 40 {
					t.Fatalf("expected width pointer 40")
				}
				if cmd.UpdateCover.X != nil {
					t.Fatalf("expected omitted fields to stay nil")
				}
			},
		},
		{
			name:    "remove-cover",
			payload: `{"ver":1,"type":"remove-cover","seq":8,"data":{"coverId":"c1"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.RemoveCover == nil || cmd.RemoveCover.CoverID != "c1" {
					t.Fatalf("unexpected payload: %+v", cmd.RemoveCover)
				}
			},
		},
		{
			name:    "battlemap:create",
			payload: `{"ver":1,"type":"battlemap:create","seq":9,"data":{"name":"Caves","mapPath":"/uploads/caves.png"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Create == nil || cmd.Create.Name != "Caves" {
					t.Fatalf("unexpected payload: %+v", cmd.Create)
				}
			},
		},
		{
			name:    "battlemap:rename",
			payload: `{"ver":1,"type":"battlemap:rename","seq":10,"data":{"battlemapId":"m1","name":"Keep"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Rename == nil || cmd.Rename.Name != "Keep" {
					t.Fatalf("unexpected payload: %+v", cmd.Rename)
				}
			},
		},
		{
			name:    "battlemap:update-map-path",
			payload: `{"ver":1,"type":"battlemap:update-map-path","seq":11,"data":{"battlemapId":"m1","mapPath":"/uploads/new.png"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.MapPath == nil || cmd.MapPath.MapPath != "/uploads/new.png" {
					t.Fatalf("unexpected payload: %+v", cmd.MapPath)
				}
			},
		},
		{
			name:    "battlemap:update-settings",
			payload: `{"ver":1,"type":"battlemap:update-settings","seq":12,"data":{"battlemapId":"m1","gridScale":2.5}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Settings == nil || cmd.Settings.GridScale == nil || *cmd.Settings.GridScale != 2.5 {
					t.Fatalf("unexpected payload: %+v", cmd.Settings)
				}
				if cmd.Settings.GridOffsetX != nil {
					t.Fatalf("expected omitted offset to stay nil")
				}
			},
		},
		{
			name:    "battlemap:update-grid-data",
			payload: `{"ver":1,"type":"battlemap:update-grid-data","seq":13,"data":{"battlemapId":"m1","gridData":{"xLines":[1],"yLines":[2],"width":800,"height":600}}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.GridData == nil || len(cmd.GridData.GridData) == 0 {
					t.Fatalf("expected raw grid payload: %+v", cmd.GridData)
				}
			},
		},
		{
			name:    "battlemap:delete",
			payload: `{"ver":1,"type":"battlemap:delete","seq":14,"data":{"battlemapId":"m1"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Target == nil || cmd.Target.BattlemapID != "m1" {
					t.Fatalf("unexpected payload: %+v", cmd.Target)
				}
			},
		},
		{
			name:    "battlemap:set-active",
			payload: `{"ver":1,"type":"battlemap:set-active","seq":15,"data":{"battlemapId":"m1"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Target == nil || cmd.Target.BattlemapID != "m1" {
					t.Fatalf("unexpected payload: %+v", cmd.Target)
				}
			},
		},
		{
			name:    "battlemap:get",
			payload: `{"ver":1,"type":"battlemap:get","seq":16,"data":{"battlemapId":"m1"}}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Target == nil || cmd.Target.BattlemapID != "m1" {
					t.Fatalf("unexpected payload: %+v", cmd.Target)
				}
			},
		},
		{
			name:    "battlemap:list",
			payload: `{"ver":1,"type":"battlemap:list","seq":17}`,
			verify: func(t *testing.T, cmd Command) {
				if cmd.Seq != 17 {
					t.Fatalf("expected seq 17, got %d", cmd.Seq)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, err := DecodeCommand([]byte(tc.payload))
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if string(cmd.Type) != tc.name {
				t.Fatalf("expected type %q, got %q", tc.name, cmd.Type)
			}
			tc.verify(t, cmd)
		})
	}
}

func TestDecodeCommandRejectsUnknownType(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"ver":1,"type":"teleport","seq":3,"data":{}}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected unknown-type error, got %v", err)
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if decodeErr.Seq != 3 {
		t.Fatalf("expected seq preserved for rejection, got %d", decodeErr.Seq)
	}
}

func TestDecodeCommandRejectsMissingIdentifiers(t *testing.T) {
	cases := []string{
		`{"ver":1,"type":"position-update","data":{"position":{"x":1,"y":2}}}`,
		`{"ver":1,"type":"remove-token","seq":1,"data":{}}`,
		`{"ver":1,"type":"update-cover","seq":2,"data":{"width":10}}`,
		`{"ver":1,"type":"battlemap:rename","seq":3,"data":{"battlemapId":"m1"}}`,
		`{"ver":1,"type":"battlemap:delete","seq":4,"data":{}}`,
	}
	for _, payload := range cases {
		if _, err := DecodeCommand([]byte(payload)); !errors.Is(err, ErrMissingField) {
			t.Fatalf("expected missing-field error for %s, got %v", payload, err)
		}
	}
}

func TestDecodeCommandRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeCommand([]byte(`{"type":`))
	if err == nil {
		t.Fatalf("expected error for truncated frame")
	}

	_, err = DecodeCommand([]byte(`{"ver":1,"type":"position-update","seq":9,"data":{"tokenId":42}}`))
	if err == nil {
		t.Fatalf("expected error for mistyped payload")
	}
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Seq != 9 {
		t.Fatalf("expected seq preserved, got %v", err)
	}
}
