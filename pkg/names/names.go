// Package names maps Warcraft III object, ability and command codes to
// display names, and classifies race-identifying objects for race
// inference.
package names

import "github.com/condor/w3g-decoder/pkg/w3g"

// Table is a code-to-name lookup service. The zero value is empty; use
// Standard for the built-in game catalog.
type Table struct {
	items    map[string]string
	commands map[uint16]string
	races    map[string]string
}

// Standard returns a Table covering the standard melee catalog.
func Standard() *Table {
	return &Table{
		items:    itemNames,
		commands: commandNames,
		races:    raceItems,
	}
}

// LookupItem resolves a 4-byte object code. Numeric codes resolve
// through the command table.
func (t *Table) LookupItem(code w3g.ItemCode) (string, bool) {
	if code.IsNumeric() {
		return t.LookupCommand(code.Command())
	}
	name, ok := t.items[string(code[:])]
	return name, ok
}

// LookupCommand resolves a numeric command code.
func (t *Table) LookupCommand(cmd uint16) (string, bool) {
	name, ok := t.commands[cmd]
	return name, ok
}

// RaceOf reports which race an object code belongs to, for codes that
// identify one unambiguously.
func (t *Table) RaceOf(code w3g.ItemCode) (string, bool) {
	if code.IsNumeric() {
		return "", false
	}
	race, ok := t.races[string(code[:])]
	return race, ok
}

var commandNames = map[uint16]string{
	3:  "Right-click / Smart",
	6:  "Move",
	7:  "Attack",
	12: "Hold Position",
	13: "Patrol",
	19: "Stop",
	89: "Rally Point",
}

// raceItems lists the workers, halls and altars each race builds or
// trains first. Any of these in a player's opening settles the race.
var raceItems = map[string]string{
	"hpea": "human",
	"htow": "human",
	"halt": "human",
	"opeo": "orc",
	"ogre": "orc",
	"oalt": "orc",
	"ewsp": "night elf",
	"etol": "night elf",
	"eate": "night elf",
	"uaco": "undead",
	"unpl": "undead",
	"uaod": "undead",
}

var itemNames = map[string]string{
	// Human buildings
	"halt": "Altar of Kings",
	"hbar": "Barracks",
	"hbla": "Blacksmith",
	"hhou": "Farm",
	"hgra": "Gryphon Aviary",
	"hars": "Arcane Sanctum",
	"hlum": "Lumber Mill",
	"htow": "Town Hall",
	"hkee": "Keep",
	"hcas": "Castle",
	"harm": "Workshop",
	"hwtw": "Scout Tower",
	"hgtw": "Guard Tower",
	"hctw": "Cannon Tower",
	"hatw": "Arcane Tower",

	// Human units
	"hpea": "Peasant",
	"hfoo": "Footman",
	"hrif": "Rifleman",
	"hkni": "Knight",
	"hmpr": "Priest",
	"hsor": "Sorceress",
	"hspt": "Spell Breaker",
	"hmtm": "Mortar Team",
	"hgyr": "Flying Machine",
	"hgry": "Gryphon Rider",
	"hmtt": "Siege Engine",

	// Human heroes
	"Hamg": "Archmage",
	"Hblm": "Blood Mage",
	"Hmkg": "Mountain King",
	"Hpal": "Paladin",

	// Orc buildings
	"oalt": "Altar of Storms",
	"obar": "Barracks",
	"ofor": "War Mill",
	"ogre": "Great Hall",
	"ostr": "Stronghold",
	"ofrt": "Fortress",
	"obea": "Beastiary",
	"osld": "Spirit Lodge",
	"otrb": "Orc Burrow",
	"ovln": "Voodoo Lounge",
	"otau": "Tauren Totem",
	"owtw": "Watch Tower",

	// Orc units
	"opeo": "Peon",
	"ogru": "Grunt",
	"ohun": "Headhunter",
	"orai": "Raider",
	"okod": "Kodo Beast",
	"oshm": "Shaman",
	"odoc": "Witch Doctor",
	"ospw": "Spirit Walker",
	"owyv": "Wind Rider",
	"otbr": "Troll Batrider",

	// Orc heroes
	"Obla": "Blademaster",
	"Ofar": "Far Seer",
	"Otch": "Tauren Chieftain",
	"Oshd": "Shadow Hunter",

	// Night Elf buildings
	"eate": "Altar of Elders",
	"eaom": "Ancient of War",
	"eaow": "Ancient of Wonders",
	"eaoe": "Ancient of Lore",
	"edob": "Hunter's Hall",
	"etol": "Tree of Life",
	"etoa": "Tree of Ages",
	"etoe": "Tree of Eternity",
	"emow": "Moon Well",
	"eden": "Ancient of Wind",
	"edos": "Chimaera Roost",

	// Night Elf units
	"ewsp": "Wisp",
	"earc": "Archer",
	"esen": "Huntress",
	"ebal": "Glaive Thrower",
	"edry": "Dryad",
	"edot": "Druid of the Talon",
	"edoc": "Druid of the Claw",
	"emtg": "Mountain Giant",
	"efdr": "Faerie Dragon",
	"ehip": "Hippogryph",
	"echm": "Chimaera",

	// Night Elf heroes
	"Edem": "Demon Hunter",
	"Ekee": "Keeper of the Grove",
	"Emoo": "Priestess of the Moon",
	"Ewar": "Warden",

	// Undead buildings
	"uaod": "Altar of Darkness",
	"unpl": "Necropolis",
	"unp1": "Halls of the Dead",
	"unp2": "Black Citadel",
	"usep": "Crypt",
	"ugrv": "Graveyard",
	"uzig": "Ziggurat",
	"uzg1": "Spirit Tower",
	"uzg2": "Nerubian Tower",
	"uslh": "Slaughterhouse",
	"utod": "Temple of the Damned",
	"usap": "Sacrificial Pit",
	"ubon": "Boneyard",
	"utom": "Tomb of Relics",

	// Undead units
	"uaco": "Acolyte",
	"ugho": "Ghoul",
	"ucry": "Crypt Fiend",
	"ugar": "Gargoyle",
	"uabo": "Abomination",
	"umtw": "Meat Wagon",
	"unec": "Necromancer",
	"uban": "Banshee",
	"uobs": "Obsidian Statue",
	"ubsp": "Destroyer",
	"ufro": "Frost Wyrm",
	"ushd": "Shade",

	// Undead heroes
	"Udea": "Death Knight",
	"Udre": "Dread Lord",
	"Ulic": "Lich",
	"Ucrl": "Crypt Lord",
}
