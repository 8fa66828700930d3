package domain

import "errors"

// Document store identifiers for property documents.
const (
	IndexName = "liveonriviera"
	TypeName  = "objects"
)

// Property field names referenced outside the descriptor table.
const (
	FieldID             = "id"
	FieldPropertyType   = "type"
	FieldEstateType     = "estatetype_id"
	FieldCountryID      = "country_id"
	FieldCityID         = "city_id"
	FieldRegionID       = "region_id"
	FieldRooms          = "rooms"
	FieldBedrooms       = "bedrooms"
	FieldGuests         = "guests"
	FieldSize           = "size"
	FieldSizeTotal      = "size_total"
	FieldPrice          = "price"
	FieldPriceStandard  = "price_standard"
	FieldImportAgencyID = "import_agency_id"
	FieldDistances      = "distances"
	FieldTranslations   = "translations"
	FieldLocation       = "location"
	FieldFeatures       = "features"
	FieldAvailables     = "availables"

	TranslationName        = "name"
	TranslationLocation    = "location"
	TranslationDescription = "description"
)

// ErrMissingID is returned when a row carries no usable id.
var ErrMissingID = errors.New("row has no id")

// Row is one relational record keyed by column name.
type Row map[string]any

// Document is the body stored in the index for one property.
type Document map[string]any

var propertyDescriptors = &Descriptors{
	Fields: []FieldSpec{
		Primitive(FieldID, TypeInteger),
		Primitive(FieldPropertyType, TypeInteger),
		Primitive(FieldEstateType, TypeInteger),
		Primitive(FieldCountryID, TypeString),
		Primitive(FieldCityID, TypeInteger),
		Primitive(FieldRegionID, TypeInteger),
		Primitive(FieldRooms, TypeInteger),
		Primitive(FieldBedrooms, TypeInteger),
		Primitive(FieldGuests, TypeInteger),
		Primitive(FieldSize, TypeInteger),
		Primitive(FieldSizeTotal, TypeInteger),
		Primitive(FieldPrice, TypeFloat),
		Primitive(FieldPriceStandard, TypeFloat),
		Primitive(FieldImportAgencyID, TypeInteger),
		Serialized(FieldDistances),
		Object(FieldTranslations),
		GeoPoint(FieldLocation, "lat", "lon"),
		LeftJoin(FieldFeatures, "properties2features", "property_id", "feature_id", "value"),
		LeftJoin(FieldAvailables, "properties_availabilities", "property_id", "date", "state"),
	},
	Translations: []TranslationField{
		{Name: TranslationName, Type: TypeString},
		{Name: TranslationLocation, Type: TypeString},
		{Name: TranslationDescription, Type: TypeString},
	},
}

// PropertyDescriptors returns the shared field tables of property documents.
func PropertyDescriptors() *Descriptors {
	return propertyDescriptors
}
