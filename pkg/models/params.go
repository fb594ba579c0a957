package models

// SerializationParams controls how a dataset is rendered in a response:
// either a named view or an explicit set of keys.
type SerializationParams struct {
	View        string   `json:"view,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	DefaultView string   `json:"-"`
}

// FilterQueryParams carries the generic attribute/value filter pairs and
// paging options accepted by list endpoints.
type FilterQueryParams struct {
	Q      []string `json:"q,omitempty"`
	Qv     []string `json:"qv,omitempty"`
	Offset int      `json:"offset,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Order  string   `json:"order,omitempty"`
}
