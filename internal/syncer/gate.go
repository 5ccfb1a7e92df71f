package syncer

// Gate is the post-generation quality check: it rejects a freshly generated
// file whose size is implausible for the length of its source text, guarding
// against a speech model emitting pathological long silence or noise.
//
// The ceiling is BytesPerChar per source character, plus ShortTextBonus per
// character for texts at or below ShortTextLen characters — fixed
// per-utterance overhead dominates very short strings and would otherwise
// cause false rejections.
//
// The thresholds are empirical, tuned against one backend's failure modes;
// they are configuration, not derived invariants. A nil *Gate disables the
// check entirely.
type Gate struct {
	BytesPerChar   int64
	ShortTextLen   int
	ShortTextBonus int64
}

// Default gate thresholds.
const (
	DefaultBytesPerChar   = 2048
	DefaultShortTextLen   = 9
	DefaultShortTextBonus = 1024
)

// DefaultGate returns a Gate with the empirical default thresholds.
func DefaultGate() *Gate {
	return &Gate{
		BytesPerChar:   DefaultBytesPerChar,
		ShortTextLen:   DefaultShortTextLen,
		ShortTextBonus: DefaultShortTextBonus,
	}
}

// MaxAllowedBytes returns the largest plausible output size for a source text
// of textLen characters.
func (g *Gate) MaxAllowedBytes(textLen int) int64 {
	perChar := g.BytesPerChar
	if textLen <= g.ShortTextLen {
		perChar += g.ShortTextBonus
	}
	return perChar * int64(textLen)
}
