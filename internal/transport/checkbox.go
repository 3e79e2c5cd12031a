package transport

import (
	"fmt"
	"strings"
)

// Checkbox decodes an HTML checkbox value. An absent field stays false.
type Checkbox bool

func ParseCheckbox(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes", "si", "sí":
		return true, nil
	case "", "off", "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid checkbox value %q", v)
	}
}

// UnmarshalParam lets echo's binder decode form values into Checkbox.
func (c *Checkbox) UnmarshalParam(param string) error {
	b, err := ParseCheckbox(param)
	if err != nil {
		return err
	}
	*c = Checkbox(b)
	return nil
}

func (c Checkbox) Bool() bool { return bool(c) }
