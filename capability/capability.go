package capability

import "strings"

// Capability is a bit-flag set describing what a model can accept and
// produce. Flags combine with | and are tested with Has, which keeps
// containment checks O(1).
type Capability uint32

const (
	TextInput Capability = 1 << iota
	TextOutput
	ImageInput
	ImageOutput
	AudioInput
	AudioOutput
	JSONInput
	JSONOutput
	FunctionCalling
	StructuredOutput
)

// None is the empty capability set.
const None Capability = 0

// Common combinations used when registering models and building requests.
const (
	Text2Text  = TextInput | TextOutput
	Text2JSON  = TextInput | JSONOutput
	Text2Image = TextInput | ImageOutput
	Image2Text = ImageInput | TextOutput
	BasicChat  = Text2Text | FunctionCalling
)

// flagNames lists individual flags in declaration order for string output.
var flagNames = []struct {
	flag Capability
	name string
}{
	{TextInput, "TextInput"},
	{TextOutput, "TextOutput"},
	{ImageInput, "ImageInput"},
	{ImageOutput, "ImageOutput"},
	{AudioInput, "AudioInput"},
	{AudioOutput, "AudioOutput"},
	{JSONInput, "JSONInput"},
	{JSONOutput, "JSONOutput"},
	{FunctionCalling, "FunctionCalling"},
	{StructuredOutput, "StructuredOutput"},
}

// Has reports whether c contains every flag in required.
func (c Capability) Has(required Capability) bool {
	return c&required == required
}

// Names returns the individual flag names present in c.
func (c Capability) Names() []string {
	var names []string
	for _, fn := range flagNames {
		if c.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// DetailedString renders the set as a human-readable flag list.
func (c Capability) DetailedString() string {
	if c == None {
		return "None"
	}
	return strings.Join(c.Names(), " | ")
}

func (c Capability) String() string {
	return c.DetailedString()
}
