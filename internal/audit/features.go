package audit

import "sort"

// Feature names one discrepancy category the engine can compute. The engine
// is parameterized by a feature set instead of shipping multiple audit
// variants; a reduced set reproduces a lighter audit without duplicating the
// comparison logic.
type Feature string

const (
	FeatureOwnerless                Feature = "ownerless"
	FeatureVoterless                Feature = "voterless"
	FeatureDuplicateRepresentatives Feature = "duplicate_representatives"
	FeatureWrongVoter               Feature = "wrong_voter"
	FeatureDuplicateVoters          Feature = "duplicate_voters"
	FeatureInvalidInvites           Feature = "invalid_invites"
	FeatureUnauthorizedMembers      Feature = "unauthorized_members"
	FeatureMissingCouncilMembers    Feature = "missing_council_members"
	FeatureDesyncedRoles            Feature = "desynced_roles"
)

var allFeatures = []Feature{
	FeatureOwnerless,
	FeatureVoterless,
	FeatureDuplicateRepresentatives,
	FeatureWrongVoter,
	FeatureDuplicateVoters,
	FeatureInvalidInvites,
	FeatureUnauthorizedMembers,
	FeatureMissingCouncilMembers,
	FeatureDesyncedRoles,
}

// Features is the set of active discrepancy categories.
type Features map[Feature]bool

// AllFeatures returns the full category set, the default for an audit run.
func AllFeatures() Features {
	f := make(Features, len(allFeatures))
	for _, feat := range allFeatures {
		f[feat] = true
	}
	return f
}

// Without returns a copy of f with the given categories switched off.
func (f Features) Without(feats ...Feature) Features {
	out := make(Features, len(f))
	for feat, on := range f {
		out[feat] = on
	}
	for _, feat := range feats {
		out[feat] = false
	}
	return out
}

// Enabled reports whether a category is active.
func (f Features) Enabled(feat Feature) bool {
	return f[feat]
}

// Disabled lists the switched-off categories in stable order.
func (f Features) Disabled() []Feature {
	var out []Feature
	for _, feat := range allFeatures {
		if !f[feat] {
			out = append(out, feat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
