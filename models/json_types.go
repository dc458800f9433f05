package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringSet is a JSON array column with union-append semantics.
type StringSet []string

func (s StringSet) Value() (driver.Value, error) {
	if s == nil {
		s = StringSet{}
	}
	b, err := json.Marshal([]string(s))
	return string(b), err
}

func (s *StringSet) Scan(src any) error {
	var out []string
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*s = out
	return nil
}

// VoucherFlags maps a voucher tier to its claimed flag for the current referral day.
type VoucherFlags map[string]bool

func (v VoucherFlags) Value() (driver.Value, error) {
	if v == nil {
		v = NewVoucherFlags()
	}
	b, err := json.Marshal(map[string]bool(v))
	return string(b), err
}

func (v *VoucherFlags) Scan(src any) error {
	var out map[string]bool
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*v = out
	return nil
}

// JSONMap holds free-form payloads such as verification data.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	return string(b), err
}

func (m *JSONMap) Scan(src any) error {
	var out map[string]any
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

func scanJSON(src any, dst any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into JSON column", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
