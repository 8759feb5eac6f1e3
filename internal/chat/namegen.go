package chat

import "math/rand/v2"

var (
	adjectives = []string{
		"Brave", "Calm", "Clever", "Cosmic", "Dizzy", "Eager", "Fancy", "Fuzzy",
		"Gentle", "Happy", "Jolly", "Lucky", "Mellow", "Nimble", "Proud", "Quiet",
		"Rapid", "Shiny", "Silly", "Sleepy", "Sneaky", "Swift", "Witty", "Zesty",
	}
	animals = []string{
		"Badger", "Beaver", "Bison", "Crane", "Dingo", "Falcon", "Ferret", "Gecko",
		"Heron", "Ibis", "Koala", "Lemur", "Lynx", "Marmot", "Newt", "Otter",
		"Panda", "Puffin", "Quokka", "Raven", "Salmon", "Tapir", "Walrus", "Yak",
	}
)

// WordGenerator builds names like "SwiftOtter" from two fixed word lists.
type WordGenerator struct{}

// Generate returns a random adjective followed by a random animal.
func (WordGenerator) Generate() string {
	return adjectives[rand.IntN(len(adjectives))] + animals[rand.IntN(len(animals))]
}
