package update

import "sort"

// RejectReason explains why a release was not selected.
type RejectReason string

const (
	RejectDraft      RejectReason = "draft"
	RejectPrerelease RejectReason = "prerelease"
	RejectInvalidTag RejectReason = "invalid-tag"
	RejectNotNewer   RejectReason = "not-newer"
	RejectConstraint RejectReason = "constraint"
	RejectNoManifest RejectReason = "no-manifest"
)

// Rejection records one release dropped by the selector.
type Rejection struct {
	Tag    string       `json:"tag" yaml:"tag"`
	Reason RejectReason `json:"reason" yaml:"reason"`
	Err    error        `json:"-" yaml:"-"`
}

// Selection is the outcome of evaluating a release list.
type Selection struct {
	Candidate Candidate
	Found     bool
	Rejected  []Rejection
}

// Evaluate filters releases down to the newest one applicable to current
// under constraint. Filters apply in order: draft/prerelease flags, tag
// parse, strictly newer than current, constraint, manifest asset. Among
// survivors the highest version wins; equal versions keep input order.
func Evaluate(releases []Release, current Version, constraint Constraint) Selection {
	var sel Selection
	var survivors []Candidate

	for i := range releases {
		r := &releases[i]
		if r.Draft {
			sel.reject(r.TagName, RejectDraft, nil)
			continue
		}
		if r.Prerelease {
			sel.reject(r.TagName, RejectPrerelease, nil)
			continue
		}
		v, err := ParseTag(r.TagName)
		if err != nil {
			sel.reject(r.TagName, RejectInvalidTag, err)
			continue
		}
		if !v.GreaterThan(current) {
			sel.reject(r.TagName, RejectNotNewer, nil)
			continue
		}
		if !constraint.Matches(v) {
			sel.reject(r.TagName, RejectConstraint, nil)
			continue
		}
		if r.FindAsset(ManifestAssetName) == nil {
			sel.reject(r.TagName, RejectNoManifest, nil)
			continue
		}
		survivors = append(survivors, Candidate{
			Name:    r.Name,
			Tag:     r.TagName,
			Version: v,
			Assets:  r.Assets,
		})
	}

	if len(survivors) == 0 {
		return sel
	}
	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Version.GreaterThan(survivors[j].Version)
	})
	sel.Candidate = survivors[0]
	sel.Found = true
	return sel
}

// SelectRelease returns the newest applicable release, if any.
func SelectRelease(releases []Release, current Version, constraint Constraint) (Candidate, bool) {
	sel := Evaluate(releases, current, constraint)
	return sel.Candidate, sel.Found
}

func (s *Selection) reject(tag string, reason RejectReason, err error) {
	s.Rejected = append(s.Rejected, Rejection{Tag: tag, Reason: reason, Err: err})
}
