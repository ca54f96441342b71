package model

// Document is a raw search index document.
type Document map[string]any

// SortField names the attribute used for cursor pagination. A nil Value
// means "from the beginning". Type is the field's EDM type when known.
type SortField struct {
	Key   string  `json:"key"`
	Value *string `json:"value"`
	Type  string  `json:"type,omitempty"`
}

// IndexSchema lists the field names of a search index and their EDM types.
type IndexSchema struct {
	Name       string            `json:"name"`
	Fields     []string          `json:"fields"`
	FieldTypes map[string]string `json:"field_types,omitempty"`
}
