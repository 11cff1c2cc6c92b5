package eventlog

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// File is the wire format of a stored event log.
type File struct {
	Log []Event `json:"log"`
}

// Parse decodes a stored log. Both the {"log": [...]} envelope and a bare event array are accepted.
func Parse(data []byte) (*Log, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var events []Event
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case '{':
		var file File
		if err := json.Unmarshal(trimmed, &file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		events = file.Log
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", ErrMalformed)
	}

	return New(events)
}

// Marshal encodes the log in the envelope format.
func (l *Log) Marshal() ([]byte, error) {
	return json.Marshal(File{Log: l.events})
}
