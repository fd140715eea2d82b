package field

// Validator is a stateless capability check over a data context. On success
// it has no side effects; on failure it returns a Signal describing exactly
// what the context is missing.
type Validator interface {
	Validate(data Context) error
}

// ParameterPresence requires the context to report availability for each
// named field parameter.
type ParameterPresence struct {
	Parameters []string
}

// RequireParameters builds a ParameterPresence validator.
func RequireParameters(names ...string) ParameterPresence {
	return ParameterPresence{Parameters: names}
}

func (v ParameterPresence) Validate(data Context) error {
	var missing []string
	for _, p := range v.Parameters {
		if !data.HasParameter(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &Signal{Kind: ParameterMissing, Names: missing}
	}
	return nil
}

// DataFieldPresence requires each named primitive field to exist in the
// context's on-disk field list. Probes always pass: synthetic contexts can
// fabricate any field.
type DataFieldPresence struct {
	Fields []string
}

// RequireDataFields builds a DataFieldPresence validator.
func RequireDataFields(names ...string) DataFieldPresence {
	return DataFieldPresence{Fields: names}
}

func (v DataFieldPresence) Validate(data Context) error {
	if data.IsProbe() {
		return nil
	}
	ondisk := make(map[string]struct{})
	for _, f := range data.OnDiskFields() {
		ondisk[f] = struct{}{}
	}
	var missing []string
	for _, f := range v.Fields {
		if _, ok := ondisk[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &Signal{Kind: DataFieldMissing, Fields: missing}
	}
	return nil
}

// PropertyPresence requires the context to declare each named capability.
type PropertyPresence struct {
	Properties []string
}

// RequireProperties builds a PropertyPresence validator.
func RequireProperties(names ...string) PropertyPresence {
	return PropertyPresence{Properties: names}
}

func (v PropertyPresence) Validate(data Context) error {
	var missing []string
	for _, p := range v.Properties {
		if !data.HasCapability(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &Signal{Kind: PropertyMissing, Names: missing}
	}
	return nil
}

// SpatialShape requires a three-dimensional context carrying at least the
// given number of ghost zones. Fields names the inputs the requirement is
// for, so the remedying probe knows what to re-request.
type SpatialShape struct {
	GhostZones int
	Fields     []string
}

// RequireSpatial builds a SpatialShape validator.
func RequireSpatial(ghostZones int, fields ...string) SpatialShape {
	return SpatialShape{GhostZones: ghostZones, Fields: fields}
}

func (v SpatialShape) Validate(data Context) error {
	if !data.IsSpatial() {
		return &Signal{Kind: SpatialInsufficient, GhostZones: v.GhostZones, Fields: v.Fields}
	}
	if v.GhostZones <= data.GhostZones() {
		return nil
	}
	return &Signal{Kind: SpatialInsufficient, GhostZones: v.GhostZones, Fields: v.Fields}
}

// GridTypeOnly requires the context to be an unresampled base grid patch.
// Probes always pass.
type GridTypeOnly struct{}

// RequireGridType builds a GridTypeOnly validator.
func RequireGridType() GridTypeOnly { return GridTypeOnly{} }

func (v GridTypeOnly) Validate(data Context) error {
	if data.IsProbe() {
		return nil
	}
	if data.IsBaseGrid() {
		return nil
	}
	return &Signal{Kind: GridTypeRequired}
}
