package store

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/roach88/tiermigrate/internal/ir"
)

// marshalAmount converts an amount to decimal TEXT. nil stores as "0".
func marshalAmount(v *uint256.Int) string {
	return ir.FormatAmount(v)
}

// unmarshalAmount parses decimal TEXT written by marshalAmount.
func unmarshalAmount(data string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal amount %q: %w", data, err)
	}
	return v, nil
}

// marshalAddress converts an address to its EIP-55 hex form. Every query
// keyed by address uses this form so lookups match byte for byte.
func marshalAddress(a common.Address) string {
	return a.Hex()
}

func unmarshalAddress(data string) (common.Address, error) {
	if !common.IsHexAddress(data) {
		return common.Address{}, fmt.Errorf("unmarshal address: %q is not a hex address", data)
	}
	return common.HexToAddress(data), nil
}

// marshalParams converts record params to a canonical JSON array of
// decimal strings.
func marshalParams(params []*uint256.Int) (string, error) {
	if params == nil {
		params = []*uint256.Int{}
	}
	data, err := ir.MarshalCanonical(params)
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

func unmarshalParams(data string) ([]*uint256.Int, error) {
	var raw []string
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	out := make([]*uint256.Int, len(raw))
	for i, s := range raw {
		v, err := unmarshalAmount(s)
		if err != nil {
			return nil, fmt.Errorf("unmarshal params[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// marshalPayload converts an event payload to canonical JSON TEXT.
func marshalPayload(payload map[string]any) (string, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := ir.MarshalCanonical(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

func unmarshalPayload(data string) (map[string]any, error) {
	return ir.UnmarshalPayload([]byte(data))
}
