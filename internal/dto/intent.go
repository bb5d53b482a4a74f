package dto

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/sonicwave/pulse/pkg/domain"
)

// IntentRequest is the wire form of an intent, as posted by hosts:
//
//	{"type": "append_digit", "digit": "5"}
//	{"type": "select_input", "field": "intensity"}
//	{"type": "adjust_time", "delta": -1}
//	{"type": "toggle_start_stop", "customer": {"id": 7, "name": "Ana"}}
//	{"type": "preview_tone", "enabled": true}
type IntentRequest struct {
	Type     domain.IntentKind `json:"type" mapstructure:"type"`
	Digit    string            `json:"digit,omitempty" mapstructure:"digit"`
	Field    string            `json:"field,omitempty" mapstructure:"field"`
	Delta    int               `json:"delta,omitempty" mapstructure:"delta"`
	Customer *domain.Customer  `json:"customer,omitempty" mapstructure:"customer"`
	Enabled  bool              `json:"enabled,omitempty" mapstructure:"enabled"`
}

// DecodeIntent maps a loosely typed payload (decoded JSON or YAML) onto a
// domain intent. Unknown keys are rejected.
func DecodeIntent(raw map[string]any) (domain.Intent, error) {
	var req IntentRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUnknownIntent, err)
	}
	return req.Intent()
}

// ParseIntent decodes a JSON document into a domain intent.
func ParseIntent(data []byte) (domain.Intent, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid intent payload: %w", err)
	}
	return DecodeIntent(raw)
}

// Intent converts the request into its domain value.
func (r IntentRequest) Intent() (domain.Intent, error) {
	switch r.Type {
	case domain.KindSelectInput:
		f, err := domain.ParseField(r.Field)
		if err != nil {
			return nil, err
		}
		return domain.SelectInput{Field: f}, nil
	case domain.KindAppendDigit:
		return domain.AppendDigit{Digit: r.Digit}, nil
	case domain.KindDeleteDigit:
		return domain.DeleteDigit{}, nil
	case domain.KindClearCurrent:
		return domain.ClearCurrent{}, nil
	case domain.KindCommitAndCycle:
		return domain.CommitAndCycle{}, nil
	case domain.KindAdjustFrequency:
		return domain.AdjustFrequency{Delta: r.Delta}, nil
	case domain.KindAdjustIntensity:
		return domain.AdjustIntensity{Delta: r.Delta}, nil
	case domain.KindAdjustTime:
		return domain.AdjustTime{Delta: r.Delta}, nil
	case domain.KindToggleStartStop:
		return domain.ToggleStartStop{Customer: r.Customer}, nil
	case domain.KindClearAll:
		return domain.ClearAll{}, nil
	case domain.KindSoftReduceFromTap:
		return domain.SoftReduceFromTap{}, nil
	case domain.KindSoftReductionStopClicked:
		return domain.SoftReductionStopClicked{}, nil
	case domain.KindSoftReductionResumeClicked:
		return domain.SoftReductionResumeClicked{}, nil
	case domain.KindSoftReductionCollapsePanel:
		return domain.SoftReductionCollapsePanel{}, nil
	case domain.KindTogglePause:
		return domain.TogglePause{}, nil
	case domain.KindStop:
		return domain.Stop{}, nil
	case domain.KindPreviewTone:
		return domain.PreviewTone{Enabled: r.Enabled}, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownIntent, r.Type)
}

// FromIntent builds the wire form of an intent.
func FromIntent(in domain.Intent) IntentRequest {
	req := IntentRequest{Type: in.Kind()}
	switch v := in.(type) {
	case domain.SelectInput:
		req.Field = v.Field.String()
	case domain.AppendDigit:
		req.Digit = v.Digit
	case domain.AdjustFrequency:
		req.Delta = v.Delta
	case domain.AdjustIntensity:
		req.Delta = v.Delta
	case domain.AdjustTime:
		req.Delta = v.Delta
	case domain.ToggleStartStop:
		req.Customer = v.Customer
	case domain.PreviewTone:
		req.Enabled = v.Enabled
	}
	return req
}
