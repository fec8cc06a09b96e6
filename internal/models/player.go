package models

// PlayerStatus mirrors the on-chain player status
type PlayerStatus string

const (
	StatusNormal        PlayerStatus = "normal"
	StatusBeingMugged   PlayerStatus = "being_mugged"
	StatusBeingArrested PlayerStatus = "being_arrested"
)

func (s PlayerStatus) Valid() bool {
	switch s {
	case StatusNormal, StatusBeingMugged, StatusBeingArrested:
		return true
	}
	return false
}

// Player is a snapshot of a player's on-chain state
type Player struct {
	GameID    string            `json:"game_id"`
	PlayerID  string            `json:"player_id"`
	Name      string            `json:"name"`
	Cash      float64           `json:"cash"`
	Health    int               `json:"health"`
	Turn      int               `json:"turn"`
	Status    PlayerStatus      `json:"status"`
	Location  string            `json:"location"`
	Drugs     map[string]uint64 `json:"drugs"`     // held quantity per drug id
	Transport uint64            `json:"transport"` // bag capacity
}

// Held returns how many units of drug the player carries
func (p *Player) Held(drug string) uint64 {
	if p == nil || p.Drugs == nil {
		return 0
	}
	return p.Drugs[drug]
}

// DrugCount is the total number of units in the bag
func (p *Player) DrugCount() uint64 {
	if p == nil {
		return 0
	}
	var n uint64
	for _, q := range p.Drugs {
		n += q
	}
	return n
}

// BagSpace is how many more units fit in the bag
func (p *Player) BagSpace() uint64 {
	if p == nil {
		return 0
	}
	count := p.DrugCount()
	if count >= p.Transport {
		return 0
	}
	return p.Transport - count
}
