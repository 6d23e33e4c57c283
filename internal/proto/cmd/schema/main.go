package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"battlemat/server/internal/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

type commandSurface struct {
	Catalog []proto.Spec `json:"catalog"`

	Identify    proto.IdentifyCommand    `json:"identify"`
	Position    proto.PositionCommand    `json:"position-update"`
	TokenImage  proto.TokenImageCommand  `json:"token-image-update"`
	TokenSize   proto.TokenSizeCommand   `json:"token-size-update"`
	AddToken    proto.AddTokenCommand    `json:"add-token"`
	RemoveToken proto.RemoveTokenCommand `json:"remove-token"`

	AddCover    proto.AddCoverCommand    `json:"add-cover"`
	UpdateCover proto.UpdateCoverCommand `json:"update-cover"`
	RemoveCover proto.RemoveCoverCommand `json:"remove-cover"`

	Create   proto.BattlemapCreateCommand   `json:"battlemap:create"`
	Rename   proto.BattlemapRenameCommand   `json:"battlemap:rename"`
	MapPath  proto.BattlemapMapPathCommand  `json:"battlemap:update-map-path"`
	Settings proto.BattlemapSettingsCommand `json:"battlemap:update-settings"`
	GridData proto.BattlemapGridDataCommand `json:"battlemap:update-grid-data"`
	Target   proto.BattlemapTargetCommand   `json:"battlemap:target"`
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(commandSurface))
	schema.Title = "Battlemat Command Surface"
	schema.Description = "Inbound command payloads and their authority/acknowledgement catalog."
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
