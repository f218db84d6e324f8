package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
)

// ErrNoCandidates is returned for a data set without candidates.
var ErrNoCandidates = errors.New("no candidates provided")

// Data is the input of a notification round.
type Data struct {
	Candidates     []Candidate `json:"candidates" mapstructure:"candidates"`
	JobDescription string      `json:"jobDescription" mapstructure:"jobDescription"`
}

// DecodeData converts a generic document into Data. Unknown keys are ignored.
func DecodeData(raw map[string]any) (*Data, error) {
	var data Data

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &data,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode notification data: %w", err)
	}

	if len(data.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	return &data, nil
}

// LoadData reads a JSON data file of the form
// {"candidates": [{"name": "...", "email": "..."}], "jobDescription": "..."}.
func LoadData(path string) (*Data, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notification data: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse notification data: %w", err)
	}

	return DecodeData(raw)
}
