package normalize

import (
	"slices"

	"github.com/ibeckermayer/proofshot/internal/types"
)

// MaxReactions is how many reaction kinds a comment can show at once
const MaxReactions = 3

// DefaultReaction is restored when the last reaction is removed
const DefaultReaction = types.ReactionLike

// ToggleReaction adds r when absent and there is room, removes it when
// present, and never returns an empty set. The input slice is not modified.
func ToggleReaction(set []types.Reaction, r types.Reaction) []types.Reaction {
	out := slices.Clone(set)

	if i := slices.Index(out, r); i >= 0 {
		out = slices.Delete(out, i, i+1)
		if len(out) == 0 {
			return []types.Reaction{DefaultReaction}
		}
		return out
	}

	if !r.Valid() || len(out) >= MaxReactions {
		return out
	}
	return append(out, r)
}

// cleanReactions dedupes, drops unknown kinds and caps the set
func cleanReactions(v any) []types.Reaction {
	var names []string
	switch list := v.(type) {
	case []string:
		names = list
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case []types.Reaction:
		for _, r := range list {
			names = append(names, string(r))
		}
	}

	out := make([]types.Reaction, 0, MaxReactions)
	for _, name := range names {
		r := types.Reaction(name)
		if !r.Valid() || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
		if len(out) == MaxReactions {
			break
		}
	}
	if len(out) == 0 {
		return []types.Reaction{DefaultReaction}
	}
	return out
}
