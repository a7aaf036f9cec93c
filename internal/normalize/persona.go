package normalize

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ibeckermayer/proofshot/internal/types"
)

// AvatarSize is the square thumbnail edge requested for persona avatars
const AvatarSize = 128

// personaPool is the fixed set of display identities drawn from
var personaPool = []types.Persona{
	{DisplayName: "Sarah Mitchell", Handle: "sarahmitch", Locale: "US"},
	{DisplayName: "James Cooper", Handle: "jcooper_dev", Locale: "US"},
	{DisplayName: "Priya Sharma", Handle: "priyabuilds", Locale: "IN"},
	{DisplayName: "Lucas Moreau", Handle: "lucasmoreau", Locale: "FR"},
	{DisplayName: "Emma Schneider", Handle: "emma.schn", Locale: "DE"},
	{DisplayName: "Daniel Okafor", Handle: "danokafor", Locale: "GB"},
	{DisplayName: "Mia Tanaka", Handle: "miatanaka", Locale: "JP"},
	{DisplayName: "Carlos Rivera", Handle: "crivera", Locale: "ES"},
}

// Pool returns a copy of the persona pool with avatars filled in
func Pool() []types.Persona {
	out := make([]types.Persona, len(personaPool))
	for i, p := range personaPool {
		p.AvatarURL = AvatarURL(p.Handle)
		out[i] = p
	}
	return out
}

// AvatarURL builds a fixed-size, face-cropped thumbnail URL for seed
func AvatarURL(seed string) string {
	q := url.Values{}
	q.Set("u", seed)
	q.Set("fit", "crop")
	q.Set("crop", "faces")
	return fmt.Sprintf("https://i.pravatar.cc/%d?%s", AvatarSize, q.Encode())
}

// PersonaFor returns the pinned identity verbatim when the platform pins one,
// otherwise a uniform draw from the pool.
func (n *Normalizer) PersonaFor(platform types.Platform, pinned *types.PinnedIdentity) types.Persona {
	if platform == types.PlatformEmail && pinned != nil && pinned.Name != "" {
		return types.Persona{
			DisplayName:  pinned.Name,
			EmailAddress: pinned.Email,
			AvatarURL:    AvatarURL(pinned.Email),
		}
	}

	p := personaPool[n.rng.IntN(len(personaPool))]
	p.AvatarURL = AvatarURL(p.Handle)
	if platform == types.PlatformEmail {
		p.EmailAddress = emailFor(p)
	}
	return p
}

// PinnedFrom extracts sender identity keys from a metrics override bag
func PinnedFrom(raw map[string]any) *types.PinnedIdentity {
	name := stringField(raw, KeySenderName, "")
	if name == "" {
		return nil
	}
	return &types.PinnedIdentity{
		Name:  name,
		Email: stringField(raw, KeySenderEmail, ""),
	}
}

func emailFor(p types.Persona) string {
	local := strings.ToLower(strings.ReplaceAll(p.DisplayName, " ", "."))
	return local + "@gmail.com"
}
