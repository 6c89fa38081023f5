package email

import "strings"

// Parameter is one attribute=value pair from a Content-Type or
// Content-Disposition header.
type Parameter struct {
	Attribute string
	Value     string
}

// ParameterList holds a part's parameters in order. Attribute lookup is
// case-insensitive; order is preserved for re-emission.
type ParameterList []*Parameter

// Get returns the value of the named attribute.
func (pl ParameterList) Get(attribute string) (string, bool) {
	for _, p := range pl {
		if strings.EqualFold(p.Attribute, attribute) {
			return p.Value, true
		}
	}
	return "", false
}

// Set replaces the value of an existing attribute, or prepends a new pair.
func (pl *ParameterList) Set(attribute, value string) {
	for _, p := range *pl {
		if strings.EqualFold(p.Attribute, attribute) {
			p.Value = value
			return
		}
	}
	*pl = append(ParameterList{{Attribute: attribute, Value: value}}, *pl...)
}

// Delete removes the first pair with the named attribute.
func (pl *ParameterList) Delete(attribute string) {
	for i, p := range *pl {
		if strings.EqualFold(p.Attribute, attribute) {
			*pl = append((*pl)[:i], (*pl)[i+1:]...)
			return
		}
	}
}

// CmpStrict reports whether two lists are identical: same length, same
// order, and byte-equal attributes and values.
func (pl ParameterList) CmpStrict(other ParameterList) bool {
	if len(pl) != len(other) {
		return false
	}
	for i := range pl {
		if pl[i].Attribute != other[i].Attribute || pl[i].Value != other[i].Value {
			return false
		}
	}
	return true
}
