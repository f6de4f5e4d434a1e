package tree

// Default ceilings applied to every payload
const (
	DefaultMaxDepth        = 20
	DefaultMaxNodeCount    = 200
	DefaultMaxPayloadBytes = 512 * 1024 // 512KB
	DefaultMaxTextLength   = 10000
	DefaultMaxLogEntries   = 50
)

// Limits bounds what an untrusted payload may contain
type Limits struct {
	MaxDepth        int `json:"maxDepth" yaml:"maxDepth"`
	MaxNodeCount    int `json:"maxNodeCount" yaml:"maxNodeCount"`
	MaxPayloadBytes int `json:"maxPayloadBytes" yaml:"maxPayloadBytes"`
	MaxTextLength   int `json:"maxTextLength" yaml:"maxTextLength"`
	MaxLogEntries   int `json:"maxLogEntries" yaml:"maxLogEntries"`
}

// DefaultLimits returns the standard ceilings
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        DefaultMaxDepth,
		MaxNodeCount:    DefaultMaxNodeCount,
		MaxPayloadBytes: DefaultMaxPayloadBytes,
		MaxTextLength:   DefaultMaxTextLength,
		MaxLogEntries:   DefaultMaxLogEntries,
	}
}

// Normalize replaces non-positive fields with their defaults
func (l Limits) Normalize() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxNodeCount <= 0 {
		l.MaxNodeCount = d.MaxNodeCount
	}
	if l.MaxPayloadBytes <= 0 {
		l.MaxPayloadBytes = d.MaxPayloadBytes
	}
	if l.MaxTextLength <= 0 {
		l.MaxTextLength = d.MaxTextLength
	}
	if l.MaxLogEntries <= 0 {
		l.MaxLogEntries = d.MaxLogEntries
	}
	return l
}
