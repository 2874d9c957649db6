package model

// FieldType is the declared type of an entity field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldText    FieldType = "text"
	FieldHTML    FieldType = "html"
	FieldEmail   FieldType = "email"
	FieldURL     FieldType = "url"
	FieldNumber  FieldType = "number"
	FieldInteger FieldType = "integer"
	FieldBool    FieldType = "bool"
	FieldDate    FieldType = "date"
	FieldEnum    FieldType = "enum"
	FieldRef     FieldType = "ref"
	FieldList    FieldType = "list"
	FieldObjects FieldType = "objects"
	// FieldMap holds free-form string values keyed by string (questionnaire answers).
	FieldMap FieldType = "map"
)

// KnownFieldTypes is used by the catalog loader to reject typos.
var KnownFieldTypes = map[FieldType]bool{
	FieldString: true, FieldText: true, FieldHTML: true, FieldEmail: true,
	FieldURL: true, FieldNumber: true, FieldInteger: true, FieldBool: true,
	FieldDate: true, FieldEnum: true, FieldRef: true, FieldList: true,
	FieldObjects: true, FieldMap: true,
}

// FieldSpec declares one form field of an entity kind.
type FieldSpec struct {
	Name      string      `yaml:"name" json:"name"`
	Label     string      `yaml:"label,omitempty" json:"label,omitempty"`
	Type      FieldType   `yaml:"type" json:"type"`
	Required  bool        `yaml:"required,omitempty" json:"required,omitempty"`
	Default   interface{} `yaml:"default,omitempty" json:"default,omitempty"`
	Min       *float64    `yaml:"min,omitempty" json:"min,omitempty"`
	Max       *float64    `yaml:"max,omitempty" json:"max,omitempty"`
	MaxLength int         `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Options   []string    `yaml:"options,omitempty" json:"options,omitempty"`
	Ref       string      `yaml:"ref,omitempty" json:"ref,omitempty"`
	// Pattern names a registered format check, e.g. "slug".
	Pattern string      `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Items   []FieldSpec `yaml:"items,omitempty" json:"items,omitempty"`
}

// AccessRules are CEL expressions evaluated against `auth` and `doc`.
// An empty expression allows every member of the tenant.
type AccessRules struct {
	Read  string `yaml:"read,omitempty" json:"read,omitempty"`
	Write string `yaml:"write,omitempty" json:"write,omitempty"`
}

// EntityKind is the schema of one document collection.
type EntityKind struct {
	Name  string `yaml:"name" json:"name"`
	Label string `yaml:"label" json:"label"`
	// ReadOnly kinds are written by dedicated services only.
	ReadOnly     bool        `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	DefaultSort  string      `yaml:"defaultSort,omitempty" json:"defaultSort,omitempty"`
	SearchFields []string    `yaml:"searchFields,omitempty" json:"searchFields,omitempty"`
	Fields       []FieldSpec `yaml:"fields" json:"fields"`
	Rules        AccessRules `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// Field returns the field definition named name.
func (k *EntityKind) Field(name string) (*FieldSpec, bool) {
	for i := range k.Fields {
		if k.Fields[i].Name == name {
			return &k.Fields[i], true
		}
	}
	return nil, false
}

// RefFields returns the fields that reference another kind.
func (k *EntityKind) RefFields() []FieldSpec {
	var refs []FieldSpec
	for _, f := range k.Fields {
		if f.Type == FieldRef {
			refs = append(refs, f)
		}
	}
	return refs
}

// SortSpec splits DefaultSort ("-createdAt") into field and direction.
func (k *EntityKind) SortSpec() (string, string) {
	s := k.DefaultSort
	if s == "" {
		return "createdAt", Descending
	}
	if s[0] == '-' {
		return s[1:], Descending
	}
	return s, Ascending
}
