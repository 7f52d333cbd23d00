package epiworld

// Entity is a named subpopulation used as the unit of group-mixing.
// Membership is symmetric: an agent belongs to an entity iff the
// entity's member set contains the agent's id, maintained by addMember /
// removeMember always being called alongside Agent.Entities updates.
type Entity struct {
	ID      int
	Name    string
	members map[int]bool

	// Distribute, if set, picks the initial member set at population
	// construction (e.g. proportional or uniform assignment); nil means
	// entities start empty and are populated explicitly.
	Distribute func(model *Model) []int
}

// NewEntity creates an empty named entity.
func NewEntity(id int, name string) *Entity {
	return &Entity{ID: id, Name: name, members: make(map[int]bool)}
}

// HasMember reports agent membership.
func (e *Entity) HasMember(agentID int) bool { return e.members[agentID] }

// Members returns the current member ids (unordered).
func (e *Entity) Members() []int {
	ids := make([]int, 0, len(e.members))
	for id := range e.members {
		ids = append(ids, id)
	}
	return ids
}

// Size returns the number of members.
func (e *Entity) Size() int { return len(e.members) }

func (e *Entity) addMember(agentID int) { e.members[agentID] = true }
func (e *Entity) removeMember(agentID int) { delete(e.members, agentID) }

// Copy deep-copies entity state for Model.Clone.
func (e *Entity) Copy() *Entity {
	n := &Entity{ID: e.ID, Name: e.Name, members: make(map[int]bool, len(e.members)), Distribute: e.Distribute}
	for id := range e.members {
		n.members[id] = true
	}
	return n
}
