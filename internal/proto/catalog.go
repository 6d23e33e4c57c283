package proto

// Spec is the catalog entry for one inbound command: whether the hub gates
// it on mutation authority, whether the issuer gets a direct reply, and
// whether owning the target token is enough for an unprivileged issuer.
type Spec struct {
	Type              CommandType `json:"type" jsonschema:"required"`
	RequiresAuthority bool        `json:"requiresAuthority"`
	Acknowledged      bool        `json:"acknowledged"`
	OwnerAllowed      bool        `json:"ownerAllowed,omitempty"`
}

var catalog = map[CommandType]Spec{
	CmdIdentify: {Type: CmdIdentify},

	CmdPositionUpdate:   {Type: CmdPositionUpdate, OwnerAllowed: true},
	CmdTokenImageUpdate: {Type: CmdTokenImageUpdate, OwnerAllowed: true},
	CmdTokenSizeUpdate:  {Type: CmdTokenSizeUpdate, OwnerAllowed: true},

	CmdAddToken:    {Type: CmdAddToken, RequiresAuthority: true, Acknowledged: true},
	CmdRemoveToken: {Type: CmdRemoveToken, RequiresAuthority: true, Acknowledged: true},

	CmdAddCover:    {Type: CmdAddCover, RequiresAuthority: true, Acknowledged: true},
	CmdUpdateCover: {Type: CmdUpdateCover, RequiresAuthority: true, Acknowledged: true},
	CmdRemoveCover: {Type: CmdRemoveCover, RequiresAuthority: true, Acknowledged: true},

	CmdBattlemapCreate:    {Type: CmdBattlemapCreate, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapRename:    {Type: CmdBattlemapRename, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapMapPath:   {Type: CmdBattlemapMapPath, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapSettings:  {Type: CmdBattlemapSettings, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapGridData:  {Type: CmdBattlemapGridData, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapDelete:    {Type: CmdBattlemapDelete, RequiresAuthority: true, Acknowledged: true},
	CmdBattlemapSetActive: {Type: CmdBattlemapSetActive, RequiresAuthority: true, Acknowledged: true},

	CmdBattlemapGet:  {Type: CmdBattlemapGet, Acknowledged: true},
	CmdBattlemapList: {Type: CmdBattlemapList, Acknowledged: true},
}

// Lookup returns the catalog entry for a command type.
func Lookup(t CommandType) (Spec, bool) {
	spec, ok := catalog[t]
	return spec, ok
}

// AllCommandTypes lists every inbound command in a stable order, one entry
// per type.
func AllCommandTypes() []CommandType {
	return []CommandType{
		CmdIdentify,
		CmdPositionUpdate,
		CmdTokenImageUpdate,
		CmdTokenSizeUpdate,
		CmdAddToken,
		CmdRemoveToken,
		CmdAddCover,
		CmdUpdateCover,
		CmdRemoveCover,
		CmdBattlemapCreate,
		CmdBattlemapRename,
		CmdBattlemapMapPath,
		CmdBattlemapSettings,
		CmdBattlemapGridData,
		CmdBattlemapDelete,
		CmdBattlemapSetActive,
		CmdBattlemapGet,
		CmdBattlemapList,
	}
}

// CatalogSpecs returns every entry in the order of AllCommandTypes, for the
// schema generator and diagnostics.
func CatalogSpecs() []Spec {
	types := AllCommandTypes()
	out := make([]Spec, 0, len(types))
	for _, t := range types {
		out = append(out, catalog[t])
	}
	return out
}
