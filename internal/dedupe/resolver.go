package dedupe

import (
	"context"
	"sort"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tidylist/contactscan/internal/model"
	"github.com/tidylist/contactscan/internal/phone"
)

const (
	// similarLookAhead bounds how far past a contact the similar-name scan
	// looks in the name-sorted order.
	similarLookAhead = 50

	// similarMaxLenDiff skips comparisons between names whose lengths
	// differ too much to ever clear the threshold.
	similarMaxLenDiff = 3

	// maxNameLen guards the distance computation against degenerate names.
	maxNameLen = 1000
)

// Resolver groups contacts into duplicate sets. It needs the complete
// contact set: grouping requires global visibility and cannot stream.
type Resolver struct {
	handler             phone.Handler
	defaultRegion       string
	similarityThreshold float64
	levParams           *levenshtein.Params
}

// NewResolver creates a resolver. threshold is the similar-name similarity
// cut-off in (0, 1); 0.82 is the tuned default.
func NewResolver(handler phone.Handler, defaultRegion string, threshold float64) *Resolver {
	return &Resolver{
		handler:             handler,
		defaultRegion:       defaultRegion,
		similarityThreshold: threshold,
		levParams:           levenshtein.NewParams(),
	}
}

// Resolve builds all duplicate groups for the contact set.
//
// Groups are emitted in tier priority order (number > email > name >
// similar-name): a contact claimed by a higher tier is not re-offered to a
// lower one. The cross-account pass runs independently of the claims and
// may overlap. Output order and membership are deterministic for a given
// input set.
func (r *Resolver) Resolve(ctx context.Context, contacts []model.Contact) ([]model.DuplicateGroup, error) {
	var (
		numberGroups  []model.DuplicateGroup
		emailGroups   []model.DuplicateGroup
		nameGroups    []model.DuplicateGroup
		crossAccounts []model.DuplicateGroup
	)

	// The four index passes are pure and independent; run them in parallel.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		numberGroups = r.groupByNumber(contacts)
		return nil
	})
	g.Go(func() error {
		emailGroups = r.groupByEmail(contacts)
		return nil
	})
	g.Go(func() error {
		nameGroups = r.groupByName(contacts)
		return nil
	})
	g.Go(func() error {
		crossAccounts = r.groupCrossAccount(contacts)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	claimed := make(map[int64]struct{})
	var out []model.DuplicateGroup
	for _, tier := range [][]model.DuplicateGroup{numberGroups, emailGroups, nameGroups} {
		var tierIDs []int64
		for _, grp := range tier {
			kept := filterUnclaimed(grp.Contacts, claimed)
			if len(kept) < 2 {
				continue
			}
			grp.Contacts = kept
			out = append(out, grp)
			for _, c := range kept {
				tierIDs = append(tierIDs, c.ID)
			}
		}
		for _, id := range tierIDs {
			claimed[id] = struct{}{}
		}
	}

	// Similar-name tier works on whatever the exact tiers left unclaimed.
	remaining := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if _, ok := claimed[c.ID]; !ok {
			remaining = append(remaining, c)
		}
	}
	out = append(out, r.groupBySimilarName(remaining)...)

	out = append(out, crossAccounts...)

	zap.L().Debug("duplicate resolution complete",
		zap.Int("contacts", len(contacts)),
		zap.Int("groups", len(out)),
	)
	return out, nil
}

// SelectSurvivor picks the record that survives a merge: richest data
// first, smallest id (oldest created) on ties.
func SelectSurvivor(group model.DuplicateGroup) model.Contact {
	best := group.Contacts[0]
	for _, c := range group.Contacts[1:] {
		if c.FieldRichness() > best.FieldRichness() ||
			(c.FieldRichness() == best.FieldRichness() && c.ID < best.ID) {
			best = c
		}
	}
	return best
}

// MergeInto folds the other group members' numbers and emails into the
// survivor, preserving order and dropping duplicates.
func MergeInto(survivor model.Contact, group model.DuplicateGroup) model.Contact {
	seenNumbers := make(map[string]struct{}, len(survivor.Numbers))
	for _, n := range survivor.Numbers {
		seenNumbers[n] = struct{}{}
	}
	seenEmails := make(map[string]struct{}, len(survivor.Emails))
	for _, e := range survivor.Emails {
		seenEmails[FoldEmail(e)] = struct{}{}
	}

	for _, c := range sortedByID(group.Contacts) {
		if c.ID == survivor.ID {
			continue
		}
		if survivor.Name == "" && c.Name != "" {
			survivor.Name = c.Name
		}
		for _, n := range c.Numbers {
			if _, ok := seenNumbers[n]; !ok {
				seenNumbers[n] = struct{}{}
				survivor.Numbers = append(survivor.Numbers, n)
			}
		}
		for _, e := range c.Emails {
			if _, ok := seenEmails[FoldEmail(e)]; !ok {
				seenEmails[FoldEmail(e)] = struct{}{}
				survivor.Emails = append(survivor.Emails, e)
			}
		}
	}
	return survivor
}

type keyedContact struct {
	key     string
	contact model.Contact
}

func (r *Resolver) groupByNumber(contacts []model.Contact) []model.DuplicateGroup {
	var entries []keyedContact
	for _, c := range contacts {
		for _, n := range c.Numbers {
			key := r.handler.NormalizeToE164(n, r.defaultRegion)
			if key != "" {
				entries = append(entries, keyedContact{key: key, contact: c})
			}
		}
	}
	return collectGroups(entries, model.DupNumber)
}

func (r *Resolver) groupByEmail(contacts []model.Contact) []model.DuplicateGroup {
	var entries []keyedContact
	for _, c := range contacts {
		for _, e := range c.Emails {
			if key := FoldEmail(e); key != "" {
				entries = append(entries, keyedContact{key: key, contact: c})
			}
		}
	}
	return collectGroups(entries, model.DupEmail)
}

func (r *Resolver) groupByName(contacts []model.Contact) []model.DuplicateGroup {
	var entries []keyedContact
	for _, c := range contacts {
		if key := FoldName(c.Name); key != "" {
			entries = append(entries, keyedContact{key: key, contact: c})
		}
	}
	return collectGroups(entries, model.DupName)
}

// groupBySimilarName sweeps a name-sorted window, pairing names whose
// Levenshtein similarity clears the threshold. Exact matches belong to the
// name tier and are excluded here.
func (r *Resolver) groupBySimilarName(contacts []model.Contact) []model.DuplicateGroup {
	type named struct {
		folded  string
		contact model.Contact
	}
	var pool []named
	for _, c := range contacts {
		key := FoldName(c.Name)
		if key == "" || len(key) > maxNameLen {
			continue
		}
		pool = append(pool, named{folded: key, contact: c})
	}
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].folded != pool[j].folded {
			return pool[i].folded < pool[j].folded
		}
		return pool[i].contact.ID < pool[j].contact.ID
	})

	var groups []model.DuplicateGroup
	used := make(map[int64]struct{})

	for i := range pool {
		anchor := pool[i]
		if _, ok := used[anchor.contact.ID]; ok {
			continue
		}

		members := []model.Contact{anchor.contact}
		limit := min(i+similarLookAhead, len(pool)-1)
		for j := i + 1; j <= limit; j++ {
			candidate := pool[j]
			if _, ok := used[candidate.contact.ID]; ok {
				continue
			}
			// Sorted order: once first letters diverge, nothing further matches.
			if candidate.folded[0] != anchor.folded[0] {
				break
			}
			if absInt(len(candidate.folded)-len(anchor.folded)) > similarMaxLenDiff {
				continue
			}
			if candidate.folded == anchor.folded {
				continue
			}
			if levenshtein.Similarity(anchor.folded, candidate.folded, r.levParams) > r.similarityThreshold {
				members = append(members, candidate.contact)
				used[candidate.contact.ID] = struct{}{}
			}
		}

		if len(members) > 1 {
			used[anchor.contact.ID] = struct{}{}
			groups = append(groups, model.DuplicateGroup{
				MatchingKey:   anchor.folded,
				DuplicateType: model.DupSimilarName,
				Contacts:      sortedByID(members),
			})
		}
	}
	return groups
}

// groupCrossAccount independently groups contacts that share a matching key
// but live in different source accounts.
func (r *Resolver) groupCrossAccount(contacts []model.Contact) []model.DuplicateGroup {
	var entries []keyedContact
	for _, c := range contacts {
		if key := r.MatchingKey(c); key != "" {
			entries = append(entries, keyedContact{key: key, contact: c})
		}
	}

	candidates := collectGroups(entries, model.DupCrossAccount)
	var groups []model.DuplicateGroup
	for _, grp := range candidates {
		identities := make(map[string]struct{})
		for _, c := range grp.Contacts {
			identities[accountIdentity(c.AccountType, c.AccountName)] = struct{}{}
		}
		if len(identities) >= 2 {
			groups = append(groups, grp)
		}
	}
	return groups
}

// MatchingKey derives the cross-account identity key for a contact:
// normalized number, else first email, else folded name.
func (r *Resolver) MatchingKey(c model.Contact) string {
	if n := c.PrimaryNumber(); n != "" {
		if key := r.handler.NormalizeToE164(n, r.defaultRegion); key != "" {
			return key
		}
	}
	if len(c.Emails) > 0 {
		if key := FoldEmail(c.Emails[0]); key != "" {
			return key
		}
	}
	return FoldName(c.Name)
}

// collectGroups sorts keyed entries and sweeps for runs sharing a key.
// Groups keep only distinct contacts and require at least two members.
func collectGroups(entries []keyedContact, dupType model.DuplicateType) []model.DuplicateGroup {
	if len(entries) == 0 {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key != entries[j].key {
			return entries[i].key < entries[j].key
		}
		return entries[i].contact.ID < entries[j].contact.ID
	})

	var groups []model.DuplicateGroup
	i := 0
	for i < len(entries) {
		j := i + 1
		for j < len(entries) && entries[j].key == entries[i].key {
			j++
		}
		if j-i > 1 {
			seen := make(map[int64]struct{}, j-i)
			var members []model.Contact
			for k := i; k < j; k++ {
				c := entries[k].contact
				if _, ok := seen[c.ID]; ok {
					continue
				}
				seen[c.ID] = struct{}{}
				members = append(members, c)
			}
			if len(members) > 1 {
				groups = append(groups, model.DuplicateGroup{
					MatchingKey:   entries[i].key,
					DuplicateType: dupType,
					Contacts:      members,
				})
			}
		}
		i = j
	}
	return groups
}

func filterUnclaimed(contacts []model.Contact, claimed map[int64]struct{}) []model.Contact {
	var kept []model.Contact
	for _, c := range contacts {
		if _, ok := claimed[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	return kept
}

func sortedByID(contacts []model.Contact) []model.Contact {
	out := make([]model.Contact, len(contacts))
	copy(out, contacts)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
