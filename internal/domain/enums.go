package domain

// SourceType tells whether a capability runs in-process or calls a remote API.
type SourceType string

const (
	SourceLocal       SourceType = "LOCAL"
	SourceExternalAPI SourceType = "EXTERNAL_API"
)

// Target field names for vehicle-service receipts.
const (
	FieldDate      = "date"
	FieldMileage   = "mileage"
	FieldPrice     = "price"
	FieldWorks     = "works"
	FieldMaterials = "materials"
)

// DefaultFields is the field set extracted when nothing else is configured.
var DefaultFields = []string{FieldDate, FieldMileage, FieldPrice, FieldWorks, FieldMaterials}

// PromptRole is the author of a chat message.
type PromptRole string

const (
	RoleSystem    PromptRole = "system"
	RoleUser      PromptRole = "user"
	RoleAssistant PromptRole = "assistant"
)
