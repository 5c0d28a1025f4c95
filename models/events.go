package models

// UploadEvent is one progress update of the streaming ingest. Terminal
// events carry Done=true; successful terminals also carry the DocID.
type UploadEvent struct {
	Status string `json:"status"`
	DocID  string `json:"doc_id,omitempty"`
	Done   bool   `json:"-"`
}
