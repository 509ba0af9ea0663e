package domain

import (
	"fmt"
	"sort"
)

// ContentCategory groups activities presented during content selection.
type ContentCategory string

const (
	// CategoryGuardianRaid is the four-player hunt category.
	CategoryGuardianRaid ContentCategory = "guardian-raid"
	// CategoryAbyssDungeon is the gated dungeon category.
	CategoryAbyssDungeon ContentCategory = "abyss-dungeon"
	// CategoryAbyssRaid is the large raid category.
	CategoryAbyssRaid ContentCategory = "abyss-raid"
)

// ParseContentCategory maps a selection value to a content category.
func ParseContentCategory(value string) (ContentCategory, error) {
	switch ContentCategory(value) {
	case CategoryGuardianRaid, CategoryAbyssDungeon, CategoryAbyssRaid:
		return ContentCategory(value), nil
	default:
		return "", fmt.Errorf("%w: category %q", ErrUnknownContent, value)
	}
}

// Display returns the human-readable category name.
func (c ContentCategory) Display() string {
	switch c {
	case CategoryGuardianRaid:
		return "Guardian Raid"
	case CategoryAbyssDungeon:
		return "Abyss Dungeon"
	case CategoryAbyssRaid:
		return "Abyss Raid"
	default:
		return string(c)
	}
}

// ContentInfo describes one selectable activity instance.
type ContentInfo struct {
	Key          string
	Name         string
	Category     ContentCategory
	Tier         int
	MinItemLevel int
	PartySize    int
}

// catalog holds every selectable activity keyed by its selection value.
// Party sizes and item-level gates decide roster capacity and candidate
// eligibility.
var catalog = map[string]ContentInfo{
	"urnil":            {Key: "urnil", Name: "Ur'nil", Category: CategoryGuardianRaid, Tier: 1, MinItemLevel: 302, PartySize: 4},
	"lumerus":          {Key: "lumerus", Name: "Lumerus", Category: CategoryGuardianRaid, Tier: 1, MinItemLevel: 340, PartySize: 4},
	"icy-legoros":      {Key: "icy-legoros", Name: "Icy Legoros", Category: CategoryGuardianRaid, Tier: 1, MinItemLevel: 380, PartySize: 4},
	"vertus":           {Key: "vertus", Name: "Vertus", Category: CategoryGuardianRaid, Tier: 1, MinItemLevel: 420, PartySize: 4},
	"chromanium":       {Key: "chromanium", Name: "Chromanium", Category: CategoryGuardianRaid, Tier: 2, MinItemLevel: 460, PartySize: 4},
	"nacrasena":        {Key: "nacrasena", Name: "Nacrasena", Category: CategoryGuardianRaid, Tier: 2, MinItemLevel: 500, PartySize: 4},
	"flame-fox-yoho":   {Key: "flame-fox-yoho", Name: "Flame Fox Yoho", Category: CategoryGuardianRaid, Tier: 2, MinItemLevel: 540, PartySize: 4},
	"tytalos":          {Key: "tytalos", Name: "Tytalos", Category: CategoryGuardianRaid, Tier: 2, MinItemLevel: 580, PartySize: 4},
	"velganos":         {Key: "velganos", Name: "Velganos", Category: CategoryGuardianRaid, Tier: 3, MinItemLevel: 1385, PartySize: 4},
	"demon-beast-canyon":          {Key: "demon-beast-canyon", Name: "Demon Beast Canyon", Category: CategoryAbyssDungeon, Tier: 1, MinItemLevel: 340, PartySize: 4},
	"necromancers-origin":         {Key: "necromancers-origin", Name: "Necromancer's Origin", Category: CategoryAbyssDungeon, Tier: 1, MinItemLevel: 340, PartySize: 4},
	"hall-of-the-twisted-warlord": {Key: "hall-of-the-twisted-warlord", Name: "Hall of the Twisted Warlord", Category: CategoryAbyssDungeon, Tier: 1, MinItemLevel: 460, PartySize: 8},
	"hildebrandt-palace":          {Key: "hildebrandt-palace", Name: "Hildebrandt Palace", Category: CategoryAbyssDungeon, Tier: 1, MinItemLevel: 460, PartySize: 8},
	"road-of-lament":              {Key: "road-of-lament", Name: "Road of Lament", Category: CategoryAbyssDungeon, Tier: 2, MinItemLevel: 840, PartySize: 4},
	"forge-of-fallen-pride":       {Key: "forge-of-fallen-pride", Name: "Forge of Fallen Pride", Category: CategoryAbyssDungeon, Tier: 2, MinItemLevel: 840, PartySize: 4},
	"sea-of-indolence":            {Key: "sea-of-indolence", Name: "Sea of Indolence", Category: CategoryAbyssDungeon, Tier: 3, MinItemLevel: 960, PartySize: 8},
	"tranquil-karkosa":            {Key: "tranquil-karkosa", Name: "Tranquil Karkosa", Category: CategoryAbyssDungeon, Tier: 3, MinItemLevel: 960, PartySize: 8},
	"alarics-sanctuary":           {Key: "alarics-sanctuary", Name: "Alaric's Sanctuary", Category: CategoryAbyssDungeon, Tier: 3, MinItemLevel: 960, PartySize: 8},
	"argos-phase-1": {Key: "argos-phase-1", Name: "Argos Phase 1", Category: CategoryAbyssRaid, Tier: 3, MinItemLevel: 1370, PartySize: 8},
	"argos-phase-2": {Key: "argos-phase-2", Name: "Argos Phase 2", Category: CategoryAbyssRaid, Tier: 3, MinItemLevel: 1385, PartySize: 8},
	"argos-phase-3": {Key: "argos-phase-3", Name: "Argos Phase 3", Category: CategoryAbyssRaid, Tier: 3, MinItemLevel: 1400, PartySize: 8},
}

// ContentByKey returns the activity registered under key.
func ContentByKey(key string) (ContentInfo, error) {
	info, ok := catalog[key]
	if !ok {
		return ContentInfo{}, fmt.Errorf("%w: %q", ErrUnknownContent, key)
	}
	return info, nil
}

// ContentsByCategory returns every activity in a category ordered by item
// level, then key. The order is stable so selection menus render
// deterministically.
func ContentsByCategory(category ContentCategory) []ContentInfo {
	var infos []ContentInfo
	for _, info := range catalog {
		if info.Category == category {
			infos = append(infos, info)
		}
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].MinItemLevel != infos[j].MinItemLevel {
			return infos[i].MinItemLevel < infos[j].MinItemLevel
		}
		return infos[i].Key < infos[j].Key
	})
	return infos
}
