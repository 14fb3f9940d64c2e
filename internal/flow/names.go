package flow

import (
	"math/rand/v2"
)

var (
	adjectives = []string{
		"amber", "bold", "brave", "calm", "crimson", "daring", "eager", "fuzzy",
		"gentle", "golden", "hasty", "icy", "jolly", "keen", "lively", "mellow",
		"misty", "nimble", "olive", "proud", "quiet", "rapid", "rustic", "silver",
		"sturdy", "tidy", "vivid", "witty", "zealous",
	}
	animals = []string{
		"albatross", "badger", "bison", "condor", "dingo", "falcon", "gecko",
		"heron", "ibis", "jackal", "kestrel", "lemur", "lynx", "marmot", "newt",
		"ocelot", "otter", "panda", "quail", "raven", "salamander", "tapir",
		"urchin", "vole", "walrus", "yak", "zebra",
	}
)

// RunName returns a random adjective-animal run name.
func RunName() string {
	return adjectives[rand.IntN(len(adjectives))] + "-" + animals[rand.IntN(len(animals))]
}
