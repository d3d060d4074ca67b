package rootio

// TObjString is the one object type this writer knows how to serialize:
// a ROOT TObjString, i.e. a named string value.
type TObjString struct {
	Value string
}

// NewTObjString wraps s as a TObjString, UTF-8 encoding happens at the
// Sink boundary (SetObject), matching the original prototype's
// `item.string.encode("utf-8")` step.
func NewTObjString(s string) *TObjString { return &TObjString{Value: s} }

// ClassName returns the ROOT class name used in streamer registration and
// key class-name fields.
func (*TObjString) ClassName() string { return "TObjString" }

// payloadSize returns the number of bytes SetObject will write for v.
func payloadSize(v *TObjString) int64 { return sizeofTString(v.Value) }
