package domain

// FieldType is the type tag of a document attribute.
type FieldType string

// Field type tags
const (
	TypeInteger    FieldType = "integer"
	TypeFloat      FieldType = "float"
	TypeString     FieldType = "string"
	TypeSerialized FieldType = "serialized-blob"
	TypeObject     FieldType = "nested-object"
	TypeGeoPoint   FieldType = "geo-point"
	TypeLeftJoin   FieldType = "left-join-aggregate"
)

// IsPrimitive reports whether values of this type are coerced straight from a row column.
func (t FieldType) IsPrimitive() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeString:
		return true
	}
	return false
}

// GeoPointSource names the row columns holding a coordinate pair.
type GeoPointSource struct {
	LatField string
	LonField string
}

// LeftJoinSource describes a child table folded into a key/value map.
// Rows of Table whose ForeignKey equals the parent id contribute
// aggregate[row[KeyColumn]] = row[ValueColumn].
type LeftJoinSource struct {
	Table       string
	ForeignKey  string
	KeyColumn   string
	ValueColumn string
}

// FieldSpec describes one document attribute: its name, type tag and,
// for the composite tags, where its value comes from.
// GeoPoint is set only for TypeGeoPoint and LeftJoin only for TypeLeftJoin.
type FieldSpec struct {
	Name     string
	Type     FieldType
	GeoPoint *GeoPointSource
	LeftJoin *LeftJoinSource
}

// Primitive declares an integer, float or string field read from the row column of the same name.
func Primitive(name string, t FieldType) FieldSpec {
	return FieldSpec{Name: name, Type: t}
}

// Serialized declares a field holding a serialized-at-rest array.
func Serialized(name string) FieldSpec {
	return FieldSpec{Name: name, Type: TypeSerialized}
}

// Object declares a nested object field that is filled by the mapper itself.
func Object(name string) FieldSpec {
	return FieldSpec{Name: name, Type: TypeObject}
}

// GeoPoint declares a geo point built from two row columns.
func GeoPoint(name, latField, lonField string) FieldSpec {
	return FieldSpec{
		Name:     name,
		Type:     TypeGeoPoint,
		GeoPoint: &GeoPointSource{LatField: latField, LonField: lonField},
	}
}

// LeftJoin declares a field aggregated from a child table.
func LeftJoin(name, table, foreignKey, keyColumn, valueColumn string) FieldSpec {
	return FieldSpec{
		Name: name,
		Type: TypeLeftJoin,
		LeftJoin: &LeftJoinSource{
			Table:       table,
			ForeignKey:  foreignKey,
			KeyColumn:   keyColumn,
			ValueColumn: valueColumn,
		},
	}
}

// TranslationField is a translatable field and the primitive type its values are coerced to.
type TranslationField struct {
	Name string
	Type FieldType
}

// Descriptors bundles the field tables shared by the mapper and the search service.
// A Descriptors value is built once and never mutated afterwards.
type Descriptors struct {
	Fields       []FieldSpec
	Translations []TranslationField
}

// Field returns the FieldSpec of the named field.
func (d *Descriptors) Field(name string) (FieldSpec, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Translation returns the translation field with the given name.
func (d *Descriptors) Translation(name string) (TranslationField, bool) {
	for _, f := range d.Translations {
		if f.Name == name {
			return f, true
		}
	}
	return TranslationField{}, false
}
