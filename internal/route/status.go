// Package route plans coarse room-level routes and keeps the room status
// cache the planner and the pathfinder consult.
package route

import (
	"github.com/Garsondee/Squad-Voyager/internal/geo"
	"github.com/Garsondee/Squad-Voyager/internal/world"
)

// Status classifies a room for traversal decisions.
type Status int

const (
	Unknown Status = iota
	Neutral
	Highway
	SourceKeeper
	Ally
	AllyRemote
	Hostile
	HostileRemote
	InvaderRemote
)

func (s Status) String() string {
	switch s {
	case Neutral:
		return "neutral"
	case Highway:
		return "highway"
	case SourceKeeper:
		return "source_keeper"
	case Ally:
		return "ally"
	case AllyRemote:
		return "ally_remote"
	case Hostile:
		return "hostile"
	case HostileRemote:
		return "hostile_remote"
	case InvaderRemote:
		return "invader_remote"
	default:
		return "unknown"
	}
}

// DefaultAllowed is the status set a path query may cross when the caller
// does not name one.
var DefaultAllowed = []Status{Ally, AllyRemote, Highway, InvaderRemote, Neutral, Unknown}

// invaderPlayer reserves rooms on behalf of the environment.
const invaderPlayer = "Invader"

// Classify derives a room's status from its visible facts. The checks run
// in a fixed order; the first match wins.
func Classify(info world.RoomInfo, isAlly func(player string) bool) Status {
	switch {
	case info.Controller && info.Owner == "" && info.Reserver == "":
		return Neutral
	case info.Owner != "" && isAlly(info.Owner):
		return Ally
	case info.Owner == "" && info.Reserver != "" && isAlly(info.Reserver):
		return AllyRemote
	case geo.IsHighway(info.Name):
		return Highway
	case geo.IsSourceKeeper(info.Name):
		return SourceKeeper
	case info.Owner != "":
		return Hostile
	case info.Reserver == invaderPlayer:
		return InvaderRemote
	case info.Reserver != "":
		return HostileRemote
	default:
		return Unknown
	}
}

func allowed(s Status, set []Status) bool {
	for _, a := range set {
		if a == s {
			return true
		}
	}
	return false
}
