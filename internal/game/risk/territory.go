package risk

// TerritoryCount is the number of territories on the standard board.
const TerritoryCount = 42

// territories is the canonical board in continent order. It is an array so
// that assignment copies it; callers never see the backing storage.
var territories = [TerritoryCount]string{
	// North America
	"Alaska",
	"Alberta (Western Canada)",
	"Central America",
	"Eastern United States",
	"Greenland",
	"Northwest Territory",
	"Ontario (Central Canada)",
	"Quebec (Eastern Canada)",
	"Western United States",
	// South America
	"Argentina",
	"Brazil",
	"Peru",
	"Venezuela",
	// Europe
	"Great Britain (Great Britain & Ireland)",
	"Iceland",
	"Northern Europe",
	"Scandinavia",
	"Southern Europe",
	"Ukraine (Eastern Europe, Russia)",
	"Western Europe",
	// Africa
	"Congo (Central Africa)",
	"East Africa",
	"Egypt",
	"Madagascar",
	"North Africa",
	"South Africa",
	// Asia
	"Afghanistan",
	"China",
	"India (Hindustan)",
	"Irkutsk",
	"Japan",
	"Kamchatka",
	"Middle East",
	"Mongolia",
	"Siam (Southeast Asia)",
	"Siberia",
	"Ural",
	"Yakutsk",
	// Australia
	"Eastern Australia",
	"Indonesia",
	"New Guinea",
	"Western Australia",
}

// Territories returns a fresh copy of the canonical territory list.
//
// Postcondition: len(result) == TerritoryCount; mutating result never affects later calls.
func Territories() []string {
	board := territories
	return board[:]
}
