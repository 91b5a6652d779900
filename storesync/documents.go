package storesync

import (
	"encoding/json"
	"fmt"
)

// Keys written into a display document entry by an extraction.
const (
	keyDocPath             = "doc_path"
	keyDescription         = "description"
	keyIncidentDate        = "incident_date"
	keyIncidentEndDate     = "incident_end_date"
	keyEmails              = "emails"
	keyExtractionTimestamp = "extraction_timestamp"
	keyExtractedBy         = "extracted_by"
	keyUpdatedAt           = "updated_at"
)

// DocumentEntry is one element of a case's documents collection. Only the
// path and description are typed; every other key, known or not, is kept
// verbatim so a merge never drops data written by other systems.
type DocumentEntry struct {
	Path        string
	Description string
	fields      map[string]json.RawMessage
}

// NewDocumentEntry returns an entry with just a path and description.
func NewDocumentEntry(path, description string) DocumentEntry {
	return DocumentEntry{Path: path, Description: description, fields: map[string]json.RawMessage{}}
}

func (d *DocumentEntry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]json.RawMessage{}
	}

	var path, desc string
	if v, ok := raw[keyDocPath]; ok {
		if err := json.Unmarshal(v, &path); err != nil {
			return fmt.Errorf("invalid %s: %w", keyDocPath, err)
		}
	}
	if v, ok := raw[keyDescription]; ok {
		// Non-string descriptions are left in fields untouched.
		_ = json.Unmarshal(v, &desc)
	}

	*d = DocumentEntry{Path: path, Description: desc, fields: raw}
	return nil
}

func (d DocumentEntry) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.fields)+2)
	for k, v := range d.fields {
		out[k] = v
	}

	path, err := json.Marshal(d.Path)
	if err != nil {
		return nil, err
	}
	out[keyDocPath] = path

	if d.Description != "" {
		desc, err := json.Marshal(d.Description)
		if err != nil {
			return nil, err
		}
		out[keyDescription] = desc
	}
	return json.Marshal(out)
}

// Field returns the raw JSON of key, or nil when the entry lacks it.
func (d DocumentEntry) Field(key string) json.RawMessage {
	return d.fields[key]
}

// String returns key decoded as a string; null and missing give "".
func (d DocumentEntry) String(key string) string {
	var s string
	if v, ok := d.fields[key]; ok {
		_ = json.Unmarshal(v, &s)
	}
	return s
}

// set stores v under key. Values come from Record and always marshal.
func (d *DocumentEntry) set(key string, v any) {
	if d.fields == nil {
		d.fields = map[string]json.RawMessage{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	d.fields[key] = data
}

// merge writes the extraction fields of rec into the entry.
func (d *DocumentEntry) merge(rec Record) {
	d.set(keyIncidentDate, rec.incidentDateString())
	d.set(keyIncidentEndDate, rec.incidentEndDateString())
	d.set(keyEmails, rec.emails())
	d.set(keyExtractionTimestamp, rec.ExtractionTimestamp.UTC().Format(timestampLayout))
	d.set(keyExtractedBy, rec.ExtractedBy)
	d.set(keyUpdatedAt, rec.UpdatedAt.UTC().Format(timestampLayout))
}

// Documents is a case's ordered document collection.
type Documents []DocumentEntry

// ParseDocuments decodes a documents column. NULL and empty input give an
// empty collection.
func ParseDocuments(data []byte) (Documents, error) {
	if len(data) == 0 || string(data) == "null" {
		return Documents{}, nil
	}
	var docs Documents
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, nil
}

// Find returns the index of the entry with path, or -1.
func (ds Documents) Find(path string) int {
	for i := range ds {
		if ds[i].Path == path {
			return i
		}
	}
	return -1
}

// Merge applies rec to the entry at rec.DocumentPath. It reports false and
// leaves the collection untouched when no entry has that path.
func (ds Documents) Merge(rec Record) bool {
	i := ds.Find(rec.DocumentPath)
	if i < 0 {
		return false
	}
	ds[i].merge(rec)
	return true
}
