// Package world is the query surface the movement and squad code reads, and
// an in-memory implementation of it used by the headless engine and tests.
package world

import (
	"errors"
	"math"

	"github.com/Garsondee/Squad-Voyager/internal/geo"
)

type Terrain uint8

const (
	Plain Terrain = iota
	Swamp
	Wall
)

func (t Terrain) String() string {
	switch t {
	case Swamp:
		return "swamp"
	case Wall:
		return "wall"
	default:
		return "plain"
	}
}

type StructureType string

const (
	Road            StructureType = "road"
	ConstructedWall StructureType = "constructedWall"
	Rampart         StructureType = "rampart"
	Spawn           StructureType = "spawn"
	Tower           StructureType = "tower"
	Extension       StructureType = "extension"
	Container       StructureType = "container"
	KeeperLair      StructureType = "keeperLair"
	InvaderCore     StructureType = "invaderCore"
)

// Structure is a static object occupying one tile.
type Structure struct {
	ID      string        `json:"id"`
	Type    StructureType `json:"type"`
	Pos     geo.Pos       `json:"pos"`
	Owner   string        `json:"owner,omitempty"`
	Hits    int           `json:"hits"`
	HitsMax int           `json:"hits_max"`
}

// Walkable reports whether a unit owned by player may stand on the tile.
// Ramparts only let their owner through.
func (s Structure) Walkable(player string) bool {
	switch s.Type {
	case Road, Container:
		return true
	case Rampart:
		return s.Owner == player
	default:
		return false
	}
}

type BodyPart string

const (
	Move         BodyPart = "move"
	Work         BodyPart = "work"
	Carry        BodyPart = "carry"
	Attack       BodyPart = "attack"
	RangedAttack BodyPart = "ranged_attack"
	Heal         BodyPart = "heal"
	Tough        BodyPart = "tough"
)

// PartHits is the hit pool each body part contributes.
const PartHits = 100

// Unit is a mobile agent.
type Unit struct {
	ID      string     `json:"id"`
	Owner   string     `json:"owner"`
	Pos     geo.Pos    `json:"pos"`
	Body    []BodyPart `json:"body"`
	Hits    int        `json:"hits"`
	HitsMax int        `json:"hits_max"`
	Fatigue int        `json:"fatigue"`
	// SpawnCycles counts the cycles left before the unit leaves its spawn.
	SpawnCycles int `json:"spawn_cycles,omitempty"`
}

// Count returns the number of body parts of the given type.
func (u Unit) Count(part BodyPart) int {
	n := 0
	for _, p := range u.Body {
		if p == part {
			n++
		}
	}
	return n
}

func (u Unit) Has(part BodyPart) bool {
	return u.Count(part) > 0
}

func (u Unit) Alive() bool {
	return u.Hits > 0
}

func (u Unit) Spawning() bool {
	return u.SpawnCycles > 0
}

// heavyParts counts the parts that generate fatigue.
func (u Unit) heavyParts() int {
	n := 0
	for _, p := range u.Body {
		if p != Move && p != Carry {
			n++
		}
	}
	return n
}

// RoomInfo holds the facts about a visible room.
type RoomInfo struct {
	Name       string `json:"name"`
	Controller bool   `json:"controller"`
	Owner      string `json:"owner,omitempty"`
	Reserver   string `json:"reserver,omitempty"`
	Level      int    `json:"level,omitempty"`
}

// ObjectKind distinguishes the things Object can resolve.
type ObjectKind string

const (
	KindUnit      ObjectKind = "unit"
	KindStructure ObjectKind = "structure"
)

// Object is the common view of anything addressable by id.
type Object struct {
	ID      string     `json:"id"`
	Kind    ObjectKind `json:"kind"`
	Pos     geo.Pos    `json:"pos"`
	Owner   string     `json:"owner,omitempty"`
	Hits    int        `json:"hits"`
	HitsMax int        `json:"hits_max"`
}

// RouteCost prices entering room from the neighbouring room from. Returning
// +Inf forbids the room.
type RouteCost func(room, from string) float64

// Infinity is the RouteCost value for a forbidden room.
var Infinity = math.Inf(1)

// Query is the read side of the world.
type Query interface {
	Time() int
	Me() string
	IsAlly(player string) bool
	Terrain(p geo.Pos) Terrain
	HasRoom(room string) bool
	// Room returns the room facts; ok is false when the room is not visible.
	Room(room string) (RoomInfo, bool)
	Structures(room string) []Structure
	Units(room string) []Unit
	Unit(id string) (Unit, bool)
	Object(id string) (Object, bool)
	Exits(room string) map[geo.Direction]string
	FindRoute(from, to string, cost RouteCost) ([]string, bool)
}

// Mover issues the single-step move primitive.
type Mover interface {
	Move(unitID string, d geo.Direction) error
}

// Actor applies combat actions.
type Actor interface {
	Attack(unitID, targetID string) error
	RangedAttack(unitID, targetID string) error
	Heal(unitID, targetID string) error
}

var (
	ErrNotFound         = errors.New("object not found")
	ErrTired            = errors.New("unit is tired")
	ErrSpawning         = errors.New("unit is still spawning")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrNoBodyPart       = errors.New("missing body part")
	ErrNotInRange       = errors.New("target not in range")
)
