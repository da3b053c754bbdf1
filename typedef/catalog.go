// Package typedef loads named datatype definitions from TOML catalogs.
//
// A catalog lists types in dependency order; each entry names a
// constructor kind and its arguments, and may refer to elementary types
// by name or to entries defined above it:
//
//	[options]
//	count = 4
//	chunk = 64
//
//	[[type]]
//	name = "row"
//	kind = "vector"
//	base = "float64"
//	count = 3
//	blocklength = 1
//	stride = 8
//
//	[[type]]
//	name = "particle"
//	kind = "struct"
//	blocklengths = [1, 1]
//	displacements = [0, 8]
//	types = ["int32", "row"]
//
// Every loaded type is committed.
package typedef

import (
	"strconv"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/wippyai/typerep/datatype"
	typerrors "github.com/wippyai/typerep/errors"
)

// Definition is one [[type]] entry.
type Definition struct {
	Name          string   `toml:"name"`
	Kind          string   `toml:"kind"`
	Base          string   `toml:"base"`
	Count         int64    `toml:"count"`
	BlockLength   int64    `toml:"blocklength"`
	BlockLengths  []int64  `toml:"blocklengths"`
	Stride        int64    `toml:"stride"`
	Displacements []int64  `toml:"displacements"`
	Types         []string `toml:"types"`
	LB            int64    `toml:"lb"`
	Extent        int64    `toml:"extent"`
	Value         string   `toml:"value"`
}

type fileConfig struct {
	Options optionsFile  `toml:"options"`
	Types   []Definition `toml:"type"`
}

// Catalog holds the committed types of a loaded catalog. The catalog owns
// one reference to each type until Release.
type Catalog struct {
	Options Options

	names []string
	types map[string]*datatype.Type
	defs  map[string]Definition
}

// Load reads a catalog file.
func Load(path string) (*Catalog, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, typerrors.Wrap(typerrors.PhaseConfig, typerrors.KindInvalidData, err, "decode catalog "+path)
	}
	c, err := build(raw, meta)
	if err != nil {
		return nil, err
	}
	Logger().Info("loaded type catalog", zap.String("path", path), zap.Int("types", len(c.names)))
	return c, nil
}

// Parse reads a catalog from TOML text.
func Parse(data string) (*Catalog, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return nil, typerrors.Wrap(typerrors.PhaseConfig, typerrors.KindInvalidData, err, "decode catalog")
	}
	return build(raw, meta)
}

func build(raw fileConfig, meta toml.MetaData) (*Catalog, error) {
	opts, err := loadOptions(raw.Options, meta)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		Logger().Warn("ignoring unknown catalog keys", zap.Strings("keys", keys))
	}

	c := &Catalog{
		Options: opts,
		types:   make(map[string]*datatype.Type, len(raw.Types)),
		defs:    make(map[string]Definition, len(raw.Types)),
	}
	for i, def := range raw.Types {
		if err := c.add(i, def); err != nil {
			_ = c.Release()
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) add(i int, def Definition) error {
	path := []string{"type", strconv.Itoa(i)}
	if def.Name == "" {
		return typerrors.InvalidArgument(typerrors.PhaseConfig, path, "type entry without a name")
	}
	path = append(path, def.Name)
	if _, ok := datatype.ParseBasic(def.Name); ok {
		return typerrors.InvalidArgument(typerrors.PhaseConfig, path, "name shadows an elementary type")
	}
	if _, ok := c.types[def.Name]; ok {
		return typerrors.InvalidArgument(typerrors.PhaseConfig, path, "duplicate type name")
	}

	dt, err := c.construct(def, path)
	if err != nil {
		return err
	}
	if err := dt.Commit(); err != nil {
		_ = dt.Free()
		return err
	}

	Logger().Debug("defined type", zap.String("name", def.Name), zap.Stringer("type", dt))
	c.names = append(c.names, def.Name)
	c.types[def.Name] = dt
	c.defs[def.Name] = def
	return nil
}

func (c *Catalog) construct(def Definition, path []string) (*datatype.Type, error) {
	kind, ok := datatype.ParseKind(def.Kind)
	if !ok || kind == datatype.KindElementary {
		return nil, typerrors.New(typerrors.PhaseConfig, typerrors.KindInvalidArgument).
			Path(append(path, "kind")...).
			Value(def.Kind).
			Detail("unknown constructor kind %q", def.Kind).
			Build()
	}

	if kind == datatype.KindPair {
		value, ok := datatype.ParseBasic(def.Value)
		if !ok {
			return nil, typerrors.NotFound(typerrors.PhaseConfig, "elementary type", def.Value)
		}
		return datatype.Pair(value)
	}

	if kind == datatype.KindStruct {
		types := make([]*datatype.Type, len(def.Types))
		for i, name := range def.Types {
			t, err := c.resolve(name, append(path, "types", strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return datatype.Struct(def.BlockLengths, def.Displacements, types)
	}

	base, err := c.resolve(def.Base, append(path, "base"))
	if err != nil {
		return nil, err
	}
	switch kind {
	case datatype.KindContiguous:
		return datatype.Contiguous(def.Count, base)
	case datatype.KindVector:
		return datatype.Vector(def.Count, def.BlockLength, def.Stride, base)
	case datatype.KindHVector:
		return datatype.HVector(def.Count, def.BlockLength, def.Stride, base)
	case datatype.KindIndexedBlock:
		return datatype.IndexedBlock(def.BlockLength, def.Displacements, base)
	case datatype.KindHIndexedBlock:
		return datatype.HIndexedBlock(def.BlockLength, def.Displacements, base)
	case datatype.KindIndexed:
		return datatype.Indexed(def.BlockLengths, def.Displacements, base)
	case datatype.KindHIndexed:
		return datatype.HIndexed(def.BlockLengths, def.Displacements, base)
	case datatype.KindResized:
		return datatype.Resized(base, def.LB, def.Extent)
	default:
		return datatype.Dup(base)
	}
}

func (c *Catalog) resolve(name string, path []string) (*datatype.Type, error) {
	if name == "" {
		return nil, typerrors.InvalidArgument(typerrors.PhaseConfig, path, "missing base type")
	}
	if t, ok := c.types[name]; ok {
		return t, nil
	}
	if b, ok := datatype.ParseBasic(name); ok {
		return datatype.Of(b), nil
	}
	return nil, typerrors.New(typerrors.PhaseConfig, typerrors.KindNotFound).
		Path(path...).
		Detail("type %q is not elementary and not defined above", name).
		Build()
}

// Lookup returns the type defined under name, or the elementary type of
// that name.
func (c *Catalog) Lookup(name string) (*datatype.Type, error) {
	if t, ok := c.types[name]; ok {
		return t, nil
	}
	if b, ok := datatype.ParseBasic(name); ok {
		return datatype.Of(b), nil
	}
	return nil, typerrors.NotFound(typerrors.PhaseConfig, "type", name)
}

// Definition returns the catalog entry for name.
func (c *Catalog) Definition(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns the defined type names in catalog order.
func (c *Catalog) Names() []string {
	return c.names
}

// Release drops the catalog's references. Types still retained elsewhere
// stay valid.
func (c *Catalog) Release() error {
	var first error
	for _, name := range c.names {
		if err := c.types[name].Free(); err != nil && first == nil {
			first = err
		}
	}
	c.names = nil
	clear(c.types)
	clear(c.defs)
	return first
}
