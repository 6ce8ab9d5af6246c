package service

import (
	"slices"

	"github.com/ayo6706/currency-widget/internal/currency"
	"github.com/ayo6706/currency-widget/internal/domain"
)

// TargetList is an immutable ordered list of destination currency codes.
// Every operation returns a new list; the receiver is never modified.
type TargetList struct {
	codes []string
}

func NewTargetList(codes ...string) TargetList {
	return TargetList{codes: slices.Clone(codes)}
}

func (l TargetList) Codes() []string {
	out := slices.Clone(l.codes)
	if out == nil {
		return []string{}
	}
	return out
}

func (l TargetList) Len() int {
	return len(l.codes)
}

// Full reports whether the list is at its cap.
func (l TargetList) Full() bool {
	return len(l.codes) >= domain.MaxTargetCurrencies
}

// Add appends the first catalog currency that is neither source nor
// already listed. At the cap, or with no candidate left, l is returned as is.
func (l TargetList) Add(source string) TargetList {
	if l.Full() {
		return l
	}
	candidates := l.AddCandidates(source)
	if len(candidates) == 0 {
		return l
	}
	next := append(slices.Clone(l.codes), candidates[0])
	return TargetList{codes: next}
}

// Replace overwrites the entry at index. Out of range is a no-op.
func (l TargetList) Replace(index int, code string) TargetList {
	if index < 0 || index >= len(l.codes) {
		return l
	}
	next := slices.Clone(l.codes)
	next[index] = code
	return TargetList{codes: next}
}

// Remove deletes the entry at index, shifting later entries left.
func (l TargetList) Remove(index int) TargetList {
	if index < 0 || index >= len(l.codes) {
		return l
	}
	return TargetList{codes: slices.Delete(slices.Clone(l.codes), index, index+1)}
}

// AddCandidates lists, in catalog order, the codes Add may pick from.
func (l TargetList) AddCandidates(source string) []string {
	out := []string{}
	for _, code := range currency.Codes() {
		if code == source || slices.Contains(l.codes, code) {
			continue
		}
		out = append(out, code)
	}
	return out
}

// ReplaceCandidates lists the codes a slot may be switched to: every
// catalog currency except the source.
func ReplaceCandidates(source string) []string {
	out := []string{}
	for _, code := range currency.Codes() {
		if code != source {
			out = append(out, code)
		}
	}
	return out
}
