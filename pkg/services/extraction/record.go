package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Node is one level of the extraction tree as decoded from JSON.
type Node = map[string]any

// RecordID accepts the identifier shapes found in exported corpora:
// a plain string, a number, or a {"$oid": "..."} object.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = RecordID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = RecordID(n.String())
		return nil
	}

	var oid struct {
		OID string `json:"$oid"`
	}
	if err := json.Unmarshal(data, &oid); err == nil && oid.OID != "" {
		*id = RecordID(oid.OID)
		return nil
	}

	return fmt.Errorf("unsupported _id value: %s", raw)
}

// Metadata carries upload information about the scanned file.
type Metadata struct {
	DocID            string `json:"docId,omitempty"`
	OriginalFileName string `json:"originalFileName,omitempty"`
	UploadedAt       any    `json:"uploadedAt,omitempty"`
}

// RawRecord is a single document as produced by the upstream extraction service.
type RawRecord struct {
	ID            RecordID  `json:"_id"`
	Name          string    `json:"name,omitempty"`
	FilePath      string    `json:"filePath,omitempty"`
	Metadata      *Metadata `json:"metadata,omitempty"`
	ExtractedData Node      `json:"extractedData,omitempty"`
}
