package domain

import "fmt"

// CapabilitySource identifies where an extraction capability comes from.
// It is comparable and used as a grouping key.
type CapabilitySource struct {
	Name string     `json:"name"`
	Type SourceType `json:"type"`
}

// NoneSource is reported when no extractor is available to attribute a result to.
var NoneSource = CapabilitySource{Name: "none", Type: SourceLocal}

func (s CapabilitySource) IsLocal() bool    { return s.Type == SourceLocal }
func (s CapabilitySource) IsExternal() bool { return s.Type == SourceExternalAPI }

func (s CapabilitySource) String() string {
	return fmt.Sprintf("%s/%s", s.Name, s.Type)
}
