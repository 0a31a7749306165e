// Package bosses holds the reference table of trackable bosses and their
// respawn intervals. The table is immutable at runtime.
package bosses

import (
	"errors"
	"sort"
	"strings"
	"time"
)

var ErrUnknownBoss = errors.New("unknown boss")

// intervals maps a canonical boss name to its respawn intervals in hours:
// the first value is the normal cycle, the second the cycle right after a
// server epoch reset.
var intervals = map[string][2]int{
	"Andaras":            {15, 14},
	"Basila":             {4, 4},
	"Balbo":              {12, 12},
	"Breka":              {6, 6},
	"Tempest":            {6, 6},
	"Gareth":             {9, 9},
	"Glaki":              {8, 14},
	"Contaminated Kruma": {8, 8},
	"Mirror of Oblivion": {11, 8},
	"Cabrio":             {12, 14},
	"Kamenuk":            {7, 7},
	"Katan":              {10, 10},
	"Kelsus":             {10, 10},
	"Queen Ant":          {6, 8},
	"Korun":              {12, 8},
	"Landor":             {9, 8},
	"Matura":             {6, 6},
	"Medusa":             {10, 10},
	"Mutant Kruma":       {8, 8},
	"Olkuth":             {24, 14},
	"Orfen":              {24, 14},
	"Pan Dryad":          {12, 12},
	"Pan Marod":          {5, 5},
	"Rahha":              {33, 14},
	"Repiro":             {7, 7},
	"Saban":              {12, 12},
	"Samuel":             {12, 8},
	"Selu":               {12, 12},
	"Talakin":            {10, 10},
	"Talkin":             {8, 8},
	"Thanatos":           {25, 14},
	"Timiniel":           {8, 8},
	"Timitris":           {8, 8},
	"Farabos":            {7, 7},
	"Felis":              {3, 3},
	"Phoenix":            {24, 14},
	"Vollint":            {14, 14},
	"Haff":               {20, 14},
	"Hisilrome":          {6, 8},
	"Black Lily":         {12, 8},
	"Chertuba":           {6, 6},
	"Behemoth":           {9, 9},
	"Monstrous Dragon":   {12, 14},
	"Sharka":             {10, 10},
	"Enkura":             {6, 6},
	"Core":               {10, 8},
}

// canonical maps a folded name back to its canonical spelling.
var canonical = func() map[string]string {
	m := make(map[string]string, len(intervals))
	for name := range intervals {
		m[fold(name)] = name
	}
	return m
}()

func fold(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Canonical resolves a user-supplied boss name (any case, sloppy spacing)
// to the table's canonical spelling.
func Canonical(name string) (string, error) {
	c, ok := canonical[fold(name)]
	if !ok {
		return "", ErrUnknownBoss
	}
	return c, nil
}

// Interval returns the respawn interval for a boss. With epoch set, the
// post-reset interval variant is returned instead of the normal one.
func Interval(name string, epoch bool) (time.Duration, error) {
	c, err := Canonical(name)
	if err != nil {
		return 0, err
	}
	hours := intervals[c][0]
	if epoch {
		hours = intervals[c][1]
	}
	return time.Duration(hours) * time.Hour, nil
}

// All returns every canonical boss name, sorted for stable listings.
func All() []string {
	names := make([]string, 0, len(intervals))
	for name := range intervals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table adapts the package-level lookups to the directory interface the
// engine consumes.
type Table struct{}

func (Table) Canonical(name string) (string, error) { return Canonical(name) }
func (Table) Interval(name string, epoch bool) (time.Duration, error) {
	return Interval(name, epoch)
}
func (Table) All() []string { return All() }

// NormalHours returns the normal-cycle interval in whole hours, for the
// boss list rendering.
func NormalHours(name string) (int, error) {
	c, err := Canonical(name)
	if err != nil {
		return 0, err
	}
	return intervals[c][0], nil
}
